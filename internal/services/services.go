// package services defines interface Backend for the analysis server
package services

import (
	"context"
	"net/http"
	"time"

	"github.com/desertthunder/emotune/internal/models"
	"golang.org/x/oauth2"
)

// Backend defines the remote endpoints the analysis session depends on.
type Backend interface {
	// Analyze submits one JPEG frame and returns the classification.
	Analyze(ctx context.Context, jpeg []byte) (*models.AnalysisResult, error)

	// GetSettings fetches the server-tracked settings and play counter.
	GetSettings(ctx context.Context) (*models.SessionSettings, error)

	// UpdateSettings stores a new songs-before-recheck threshold.
	UpdateSettings(ctx context.Context, songsBeforeRecheck int) error

	// ResetCounter zeroes the play counter.
	ResetCounter(ctx context.Context) error

	// SetAutoCapture asks the server to enable or disable auto-capture and
	// returns the state the server settled on.
	SetAutoCapture(ctx context.Context, enable bool) (bool, error)

	// Health reports the server's self-check.
	Health(ctx context.Context) (*HealthStatus, error)
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"-"`
}

// NewHTTPClient builds the client used for backend calls. A non-empty token is
// attached to every request as a bearer token.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	var client *http.Client
	if token != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	} else {
		client = &http.Client{}
	}
	client.Timeout = timeout
	return client
}

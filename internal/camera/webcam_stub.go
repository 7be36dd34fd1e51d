//go:build !gocv

package camera

func newWebcamSource(int) (Source, error) {
	return nil, ErrWebcamUnsupported
}

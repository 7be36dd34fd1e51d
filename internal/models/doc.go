// Package models defines the data carried between the capture session, the analysis backend and the rendering layer.
//
// The package contains three groups of types:
//
// 1. Session state owned by the analysis session
//   - [SessionSettings] : songs-before-recheck threshold, play counter and current emotion
//
// 2. Wire results from the backend
//   - [AnalysisResult] : one frame's classification and music links, consumed once
//   - [EmotionScores] : label/score pairs kept in the order the backend sent them
//
// 3. Output to the rendering layer and the journal
//   - [DisplayModel] : ranked scores, link visibility flags and play count
//   - [RoundRecord] : outcome summary of one capture round, persisted by the journal
//
// [RankScores] orders scores by descending value; ties keep their received order.
package models

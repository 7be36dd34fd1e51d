// Package tasks runs multi-request jobs against the analysis backend with
// progress reporting.
//
// # Operations
//
//  1. [Engine.BatchAnalyze] : analyze every image in a list
//     - Worker pool bounded by [BatchOpts.NumWorkers]
//     - Requests paced by a [rate.Limiter]
//     - Frames go through a [camera.Device] over a [camera.FileSource], so
//       they are JPEG-encoded exactly like live captures
//     - One failed frame does not stop the batch
//
//  2. [Engine.Dump] : fetch /health and /settings raw for diagnostics
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends use
// select with default so a slow reader never stalls the job.
package tasks

// Package camera owns the frame stream: acquiring it from a [Source], binding it
// to a preview [Sink], grabbing JPEG snapshots and releasing it.
//
// A [Device] holds at most one stream. Every other package reaches the camera
// only through a Device.
package camera

// Package server provides HTTP routing, middleware, and the headless control
// surface for a capture session.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// One path may carry a handler per method.
//
// # Control Surface
//
// [ControlHandler] drives a [Controller] over loopback JSON:
//
//	GET  /state          current state, display model and settings
//	POST /camera/start   acquire the camera
//	POST /camera/stop    release the camera and force auto-capture off
//	POST /capture        run one manual round
//	POST /auto-capture   {"enabled": bool}
//	POST /settings       {"songs_before_recheck": n}
//	POST /reset          zero the play counter
//
// Controller errors map to statuses in [StatusFor]: state conflicts are 409,
// validation failures 400, analysis failures 422, camera failures 503 and
// backend transport failures 502.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

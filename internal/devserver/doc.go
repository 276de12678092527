// Package devserver implements the development server lifecycle.
//
// A Controller drives one run of the server through a fixed sequence of
// states: configuration is resolved, a port is bound (scanning upward from
// the preferred port unless strictPort is set), URLs are computed and
// printed, before-start hooks fire, the server is created and begins
// listening, and after-start hooks fire. Any failure moves the run to the
// failed state with a coded error; there are no partial restarts inside a
// run.
//
// Around the controller sit the supporting pieces: ResolvePort probes
// candidate ports, ComputeURLs derives local/network addresses from the
// host setting, ReloadServer pushes build events to browsers over a
// websocket, and Coordinator watches config and env files to tear down and
// re-run the whole lifecycle when they change.
package devserver

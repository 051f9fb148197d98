package main

// General API documentation for swaggo. Build with -tags swagger to serve /swagger/.
//
// @title           worker API
// @version         1.0
// @description     Inference worker sidecar: admission control, readiness and load telemetry in front of a local model server.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

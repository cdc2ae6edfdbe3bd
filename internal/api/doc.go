// Package api exposes the benchmark proof and consent engine over HTTP. It
// owns routing, the JSON envelope, bearer authentication wiring and the only
// mapping from error kinds to HTTP status codes.
package api

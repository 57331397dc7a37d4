// Package api provides an HTTP server for inspecting the routing
// document and transcript log: health, aggregate stats, and per-category
// detail. It is read-only; all mutations go through Discord commands.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string
}

// Package server exposes the deploy and update workflows over HTTP.
//
// Routes: a liveness text on GET /, GET /deploy/{ref...} and GET /update/{ref...}
// for post-receive hooks, POST /webhook/deploy and POST /webhook/update for GitHub
// push events, and GET /metrics when metrics are enabled.
package server

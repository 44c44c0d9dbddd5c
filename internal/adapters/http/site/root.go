// Package site serves the embedded browser client.
package site

import (
	"context"
	"net/http"
)

// Register mounts the browser client at /. Unknown paths fall through to
// the file server and return 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}

// Package web embeds the browser front end: login and enrollment forms, the
// problem form and the displacement notice driven by the realtime channel.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var Static embed.FS

// Handler serves the embedded static files rooted at "/".
func Handler() (http.Handler, error) {
	sub, err := fs.Sub(Static, "static")
	if err != nil {
		return nil, err
	}
	return http.FileServer(http.FS(sub)), nil
}

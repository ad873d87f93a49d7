// Package webui embeds the browser front end served at "/". The page talks
// to the /search, /file-content and /call-hierarchy endpoints.
package webui

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Static returns the embedded files rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

// Index returns the contents of index.html.
func Index() []byte {
	data, err := fs.ReadFile(staticFS, "static/index.html")
	if err != nil {
		panic(err)
	}
	return data
}

// Package dashboard provides the embedded web UI assets for RaceScreen.
//
// The page is an html/template rendered by the server package on every
// request to "/". Embedding keeps deployment to a single binary.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html.tmpl - Dashboard page template with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS

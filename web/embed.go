package web

import "embed"

// FS contains all embedded web assets (HTML, CSS, JS).
//
//go:embed *.html
var FS embed.FS

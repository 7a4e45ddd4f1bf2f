// Package web embeds the page templates and static assets.
package web

import "embed"

// FS holds template/*.html and static/*.
//
//go:embed template static
var FS embed.FS

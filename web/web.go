// Package web holds the embedded console page.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte

package web

import "embed"

// TemplatesFS holds the dashboard page and the fragments htmx swaps in.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the dialog/notification script.
//go:embed static/*
var StaticFS embed.FS

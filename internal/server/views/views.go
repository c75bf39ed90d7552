// Package views holds the server-rendered pages.
package views

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Page template names.
const (
	FormPage        = "form.html"
	RecordsPage     = "records.html"
	UnavailablePage = "unavailable.html"
)

// Templates parses every embedded page together with the shared partials.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(files, "templates/*.html"))
}

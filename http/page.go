package http

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/sagarc03/mediarelay"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type indexPage struct {
	Users []mediarelay.UserRecord
}

// renderIndex renders the listing page. The page is rendered into a buffer
// first so a template failure still produces a clean 500.
func renderIndex(w http.ResponseWriter, users []mediarelay.UserRecord) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "index.html", indexPage{Users: users}); err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write page", "err", err)
	}
}

// writeImageError writes the plain-text 404 returned for every image failure.
func writeImageError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, "Error fetching image: "+err.Error())
}

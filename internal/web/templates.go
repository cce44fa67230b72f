// ABOUTME: Template rendering for the storefront UI
// ABOUTME: Loads pages from the embedded filesystem and renders them over base.html

package web

import (
	"html/template"
	"net/http"

	"github.com/shopyhq/shopy/internal/identity"
	"github.com/shopyhq/shopy/internal/store"
)

// productItem is a product prepared for display.
type productItem struct {
	ID          string
	Name        string
	Price       string
	ImagePath   string
	Description template.HTML
}

// pageData is the template data shared by all pages. Pages use the fields
// they need and ignore the rest.
type pageData struct {
	Title        string
	Error        string
	Message      string
	CSRFToken    string
	Principal    *identity.Principal
	Store        *store.StoreRecord
	Industries   []string
	Products     []productItem
	Product      *productItem
	ProductCount int
	ResetToken   string
}

// renderPage renders one page template over the base layout.
func (s *Server) renderPage(w http.ResponseWriter, page string, data pageData) {
	tmpl := template.Must(template.ParseFS(templateFS,
		"templates/base.html", "templates/"+page+".html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "page", page, "error", err)
	}
}

// renderLoading renders the loading affordance shown while an aggregation
// pass is in flight; it refreshes itself so the visitor lands on the right
// page once the pass settles.
func (s *Server) renderLoading(w http.ResponseWriter) {
	tmpl := template.Must(template.ParseFS(templateFS,
		"templates/base.html", "templates/loading.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, pageData{Title: "Loading"}); err != nil {
		s.logger.Error("failed to render loading page", "error", err)
	}
}

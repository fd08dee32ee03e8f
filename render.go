package main

import (
	"html/template"
	"log"
	"net/http"
	"path/filepath"
)

var pageFuncs = template.FuncMap{
	"themeStyle": func(theme string) ThemeStyle {
		return WallTheme(theme).Style()
	},
}

// renderPage renders templates/<tmpl>.html inside the shared layout. The
// current user rides along so every page can show the signed-in state.
func renderPage(w http.ResponseWriter, r *http.Request, tmpl string, data any) {
	templateData := struct {
		CurrentUser *User
		Data        any
	}{
		CurrentUser: getSignedInUserOrNil(r),
		Data:        data,
	}

	templates, err := template.New(tmpl + ".html").Funcs(pageFuncs).ParseFiles(
		filepath.Join("templates", tmpl+".html"),
		filepath.Join("templates", "layout.html"),
	)
	if err != nil {
		log.Printf("Error parsing templates for %s: %v", tmpl, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	err = templates.ExecuteTemplate(w, tmpl+".html", templateData)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

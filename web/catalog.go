package web

import (
	"net/http"

	"github.com/robinvdvleuten/ledgerscript/library"
	"github.com/robinvdvleuten/ledgerscript/schedule"
)

// FunctionInfo describes one function of the catalog.
type FunctionInfo struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TemplateInfo describes one schedule template.
type TemplateInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Columns     []schedule.Column `json:"columns"`
	Program     string            `json:"program"`
}

// handleGetFunctions handles GET requests to /api/functions.
// Functions are grouped by category in registration order; the category
// query parameter selects one category.
func (s *Server) handleGetFunctions(w http.ResponseWriter, r *http.Request) {
	order, groups := library.Categories(s.registry)
	only := r.URL.Query().Get("category")

	functions := make([]FunctionInfo, 0, s.registry.Len())
	for _, category := range order {
		if only != "" && category != only {
			continue
		}
		for _, fn := range groups[category] {
			functions = append(functions, FunctionInfo{
				Name:        fn.Name,
				Signature:   fn.Signature(),
				Category:    category,
				Description: fn.Doc,
			})
		}
	}

	writeJSONResponse(w, map[string]any{
		"categories": order,
		"functions":  functions,
	})
}

// handleGetTemplates handles GET requests to /api/templates.
func (s *Server) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	templates := schedule.Templates()
	infos := make([]TemplateInfo, len(templates))
	for i, t := range templates {
		infos[i] = templateInfo(t)
	}
	writeJSONResponse(w, infos)
}

// handleGetTemplate handles GET requests to /api/templates/{name}.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := schedule.LookupTemplate(r.PathValue("name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSONResponse(w, templateInfo(t))
}

func templateInfo(t schedule.Template) TemplateInfo {
	return TemplateInfo{
		Name:        t.Name,
		Description: t.Description,
		Columns:     t.Columns,
		Program:     t.Program(),
	}
}

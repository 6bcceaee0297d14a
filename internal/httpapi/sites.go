package httpapi

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MalithGihan/sitehost-service/internal/project"
	"github.com/MalithGihan/sitehost-service/pkg/types"
)

var indexFiles = []string{"index.html", "index.php"}

func (s *Server) handleListSites(w http.ResponseWriter, _ *http.Request) {
	names, err := s.store.List()
	if err != nil {
		s.logger.Error("list sites", zap.Error(err))
		http.Error(w, "Error loading sites list", http.StatusInternalServerError)
		return
	}
	s.metrics.SetProjects(len(names))

	sites := make([]types.Project, 0, len(names))
	for _, n := range names {
		sites = append(sites, types.Project{Name: n, URL: project.URL(n)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, "sites.html", sites); err != nil {
		s.logger.Error("render sites", zap.Error(err))
	}
}

// handleSite serves /sites/{project}/... : .php through the PHP bridge,
// everything else as static files with index.html then index.php as
// directory index.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "project")
	dir, err := s.store.Open(name)
	if err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	base := project.URL(name)
	rel := chi.URLParam(r, "*")
	if rel == "" && !strings.HasSuffix(r.URL.Path, "/") {
		http.Redirect(w, r, base+"/", http.StatusMovedPermanently)
		return
	}
	clean := path.Clean("/" + rel)

	if isPHP(clean) {
		s.servePHP(w, r, dir, clean, base)
		return
	}

	full := filepath.Join(dir, filepath.FromSlash(clean))
	info, err := os.Stat(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		index := findIndex(full)
		switch {
		case index == "":
			http.NotFound(w, r)
			return
		case isPHP(index):
			s.servePHP(w, r, dir, path.Join(clean, index), base)
			return
		}
	}

	http.StripPrefix(base, http.FileServer(http.Dir(dir))).ServeHTTP(w, r)
}

func (s *Server) servePHP(w http.ResponseWriter, r *http.Request, dir, script, base string) {
	if s.config.PHP == nil {
		http.Error(w, "PHP execution is disabled", http.StatusForbidden)
		return
	}
	s.config.PHP.Serve(w, r, dir, strings.TrimPrefix(script, "/"), base+script)
}

func isPHP(p string) bool {
	return strings.EqualFold(path.Ext(p), ".php")
}

func findIndex(dir string) string {
	for _, name := range indexFiles {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

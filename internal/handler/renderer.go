package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
)

// Renderer manages template parsing and rendering with isolated template sets.
// It supports two layouts:
//   - "auth" layout for unauthenticated pages (login, register)
//   - "app" layout for authenticated pages (dashboard, contacts, companies)
//
// Templates are organized as:
//   - layouts/auth.html, layouts/app.html - base layouts
//   - components/*.html - reusable components (shared across layouts)
//   - partials/*.html - standalone fragments
//   - pages/auth/*.html - auth pages (use auth layout)
//   - pages/*.html and pages/<resource>/*.html - app pages (use app layout)
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
	isDev     bool
	mu        sync.RWMutex

	// For dev mode hot-reload
	templatesDir string
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	TemplatesDir string
	Logger       *slog.Logger
	IsDev        bool
}

// NewRenderer creates a new template renderer.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		templates:    make(map[string]*template.Template),
		logger:       cfg.Logger,
		isDev:        cfg.IsDev,
		templatesDir: cfg.TemplatesDir,
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Renderer) loadTemplates() error {
	templatesDir := r.templatesDir

	// Component templates are shared across layouts
	componentFiles, err := filepath.Glob(filepath.Join(templatesDir, "components", "*.html"))
	if err != nil {
		return fmt.Errorf("failed to glob components: %w", err)
	}

	// Partial templates (standalone fragments)
	partialFiles, err := filepath.Glob(filepath.Join(templatesDir, "partials", "*.html"))
	if err != nil {
		return fmt.Errorf("failed to glob partials: %w", err)
	}

	// Build a base template set per layout: layout + components + partials
	layouts := map[string]*template.Template{}
	for _, layout := range []string{"auth", "app"} {
		layoutPath := filepath.Join(templatesDir, "layouts", layout+".html")
		base, err := template.New(layout).Funcs(TemplateFuncs()).ParseFiles(layoutPath)
		if err != nil {
			return fmt.Errorf("failed to parse %s layout: %w", layout, err)
		}

		if len(componentFiles) > 0 {
			base, err = base.ParseFiles(componentFiles...)
			if err != nil {
				return fmt.Errorf("failed to parse components into %s layout: %w", layout, err)
			}
		}
		if len(partialFiles) > 0 {
			base, err = base.ParseFiles(partialFiles...)
			if err != nil {
				return fmt.Errorf("failed to parse partials into %s layout: %w", layout, err)
			}
		}

		layouts[layout] = base
	}

	// Auth pages (login, register)
	authPages, err := filepath.Glob(filepath.Join(templatesDir, "pages", "auth", "*.html"))
	if err != nil {
		return fmt.Errorf("failed to glob auth pages: %w", err)
	}
	for _, page := range authPages {
		if err := r.addPage(layouts["auth"], "auth/", page); err != nil {
			return err
		}
	}

	// Root-level app pages (dashboard)
	appPages, err := filepath.Glob(filepath.Join(templatesDir, "pages", "*.html"))
	if err != nil {
		return fmt.Errorf("failed to glob app pages: %w", err)
	}
	for _, page := range appPages {
		if err := r.addPage(layouts["app"], "", page); err != nil {
			return err
		}
	}

	// Nested app pages (contacts/*, companies/*)
	for _, dir := range []string{"contacts", "companies"} {
		nestedPages, err := filepath.Glob(filepath.Join(templatesDir, "pages", dir, "*.html"))
		if err != nil {
			continue
		}
		for _, page := range nestedPages {
			if err := r.addPage(layouts["app"], dir+"/", page); err != nil {
				return err
			}
		}
	}

	r.logger.Info("templates loaded", "count", len(r.templates))
	return nil
}

// addPage clones the layout base set, parses the page file into it and
// stores the result under prefix + page name.
func (r *Renderer) addPage(base *template.Template, prefix, page string) error {
	pageTmpl, err := base.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone template for %s: %w", page, err)
	}

	pageTmpl, err = pageTmpl.ParseFiles(page)
	if err != nil {
		return fmt.Errorf("failed to parse page %s: %w", page, err)
	}

	pageName := strings.TrimSuffix(filepath.Base(page), filepath.Ext(page))
	r.templates[prefix+pageName] = pageTmpl
	return nil
}

// Reload reloads all templates from disk. Useful for development.
func (r *Renderer) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates = make(map[string]*template.Template)
	return r.loadTemplates()
}

// Render renders a template to an io.Writer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	// In dev mode, reload templates on each request
	if r.isDev {
		if err := r.Reload(); err != nil {
			return fmt.Errorf("template reload failed: %w", err)
		}
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	return tmpl.ExecuteTemplate(w, baseTemplateName(name), data)
}

// RenderHTTP renders a template directly to an http.ResponseWriter.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	if r.isDev {
		if err := r.Reload(); err != nil {
			r.logger.Error("template reload failed", "error", err)
			http.Error(w, "Template reload failed", http.StatusInternalServerError)
			return
		}
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.Error("template not found", "name", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	// Render to buffer first to catch errors before writing headers
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, baseTemplateName(name), data); err != nil {
		r.logger.Error("template execution failed", "name", name, "error", err)
		http.Error(w, "Template execution failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// ListTemplates returns the names of all loaded templates. Useful for debugging.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// baseTemplateName determines which layout template to execute.
func baseTemplateName(name string) string {
	if strings.HasPrefix(name, "auth/") {
		return "auth"
	}
	return "app"
}

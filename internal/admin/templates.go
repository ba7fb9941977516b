package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"sync"
	"time"
)

var bodyTemplateAllowList = map[string]struct{}{
	"main": {},
}

// templateSet parses the template directory on first use and keeps the
// result until invalidate is called.
type templateSet struct {
	dir     string
	modules UIModules

	mu sync.Mutex
	t  *template.Template
}

func newTemplateSet(dir string, modules UIModules) *templateSet {
	return &templateSet{dir: dir, modules: modules}
}

func (s *templateSet) get() (*template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t != nil {
		return s.t, nil
	}
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	s.t = t
	return t, nil
}

func (s *templateSet) invalidate() {
	s.mu.Lock()
	s.t = nil
	s.mu.Unlock()
}

func (s *templateSet) load() (*template.Template, error) {
	if s.dir == "" {
		return nil, fmt.Errorf("admin: template path not set")
	}
	t := template.New("layout")
	t = t.Funcs(template.FuncMap{
		"render": func(name string, data any) (template.HTML, error) {
			if _, ok := bodyTemplateAllowList[name]; !ok {
				return "", fmt.Errorf("unknown template: %q", name)
			}

			var buf bytes.Buffer
			if err := t.ExecuteTemplate(&buf, name, data); err != nil {
				return "", err
			}
			return template.HTML(buf.String()), nil
		},
		"module": func(name string, args ...any) (template.HTML, error) {
			m, ok := s.modules[name]
			if !ok {
				return "", fmt.Errorf("unknown ui module: %q", name)
			}
			data, err := m.prepare(args...)
			if err != nil {
				return "", fmt.Errorf("ui module %s: %w", name, err)
			}

			var buf bytes.Buffer
			if err := t.ExecuteTemplate(&buf, m.Template, data); err != nil {
				return "", err
			}
			return template.HTML(buf.String()), nil
		},
		"format_time": formatTime,
		"to_json":     toJSON,
	})

	fsys := os.DirFS(s.dir)
	if _, err := t.ParseFS(fsys, "*.html"); err != nil {
		return nil, fmt.Errorf("admin: parse templates in %s: %w", s.dir, err)
	}
	if _, err := t.ParseFS(fsys, "modules/*.html"); err != nil {
		return nil, fmt.Errorf("admin: parse ui module templates in %s: %w", s.dir, err)
	}
	return t, nil
}

// formatTime renders timestamps the way the observatory reports them: UTC,
// second precision. Zero times render as a dash.
func formatTime(v any) string {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x != nil {
			t = *x
		}
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return x
		}
		t = parsed
	}
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

// pageData is what the "layout" template executes against.
type pageData struct {
	Title        string
	SiteTitle    string
	BodyTemplate string
	Data         any

	ctx *Context
}

func (p pageData) StaticURL(path string) string {
	if p.ctx == nil {
		return "/static/" + path
	}
	return p.ctx.StaticURL(path)
}

func (p pageData) XSRFToken() string {
	if p.ctx == nil {
		return ""
	}
	return p.ctx.XSRFToken()
}

func (p pageData) XSRFFormHTML() template.HTML {
	if p.ctx == nil {
		return ""
	}
	return p.ctx.XSRFFormHTML()
}

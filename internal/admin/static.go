package admin

import (
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// staticFiles serves the static directory and computes content versions
// for static_url.
type staticFiles struct {
	dir  string
	fsys fs.FS

	mu       sync.Mutex
	versions map[string]string
}

func newStaticFiles(dir string) *staticFiles {
	return &staticFiles{dir: dir, fsys: os.DirFS(dir), versions: map[string]string{}}
}

func (s *staticFiles) routes() []Route {
	h := func() any { return &staticHandler{files: s} }
	return []Route{
		{Pattern: "/static/(.*)", Name: "static", New: h},
		{Pattern: `/(favicon\.ico)`, Name: "favicon", New: h},
		{Pattern: `/(robots\.txt)`, Name: "robots", New: h},
	}
}

// url returns /static/<path>?v=<hash>. The version is omitted when the file
// cannot be read.
func (s *staticFiles) url(path string) string {
	path = strings.TrimPrefix(path, "/")
	u := "/static/" + path
	if v := s.version(path); v != "" {
		u += "?v=" + url.QueryEscape(v)
	}
	return u
}

func (s *staticFiles) version(path string) string {
	if !fs.ValidPath(path) {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.versions[path]; ok {
		return v
	}
	b, err := fs.ReadFile(s.fsys, path)
	if err != nil {
		return ""
	}
	v := strconv.FormatUint(xxhash.Sum64(b), 16)
	s.versions[path] = v
	return v
}

func (s *staticFiles) invalidate() {
	s.mu.Lock()
	s.versions = map[string]string{}
	s.mu.Unlock()
}

type staticHandler struct {
	files *staticFiles
}

func (h *staticHandler) Get(c *Context) error {
	var name string
	if len(c.Args) > 0 {
		name = c.Args[0]
	}
	if name == "" || !fs.ValidPath(name) {
		return errStatus(http.StatusNotFound)
	}
	st, err := fs.Stat(h.files.fsys, name)
	if err != nil || st.IsDir() {
		return errStatus(http.StatusNotFound)
	}

	if c.Request.URL.Query().Get("v") != "" {
		c.Writer.Header().Set("Cache-Control", "max-age=31536000")
	} else {
		c.Writer.Header().Set("Cache-Control", "public")
	}
	http.ServeFileFS(c.Writer, c.Request, h.files.fsys, name)
	return nil
}

func (h *staticHandler) Head(c *Context) error {
	return h.Get(c)
}

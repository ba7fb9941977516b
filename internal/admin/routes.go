package admin

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// HandlerFactory returns a fresh handler for one request. The handler
// implements one or more of the per-verb interfaces below; verbs it does not
// implement are answered with 405.
type HandlerFactory func() any

type Route struct {
	Pattern string
	Name    string
	New     HandlerFactory
}

// Routes is the application's route table, matched in order.
func Routes() []Route {
	return []Route{
		{Pattern: "/", Name: "main", New: func() any { return new(MainHandler) }},
	}
}

type GetHandler interface{ Get(c *Context) error }
type HeadHandler interface{ Head(c *Context) error }
type PostHandler interface{ Post(c *Context) error }
type PutHandler interface{ Put(c *Context) error }
type PatchHandler interface{ Patch(c *Context) error }
type DeleteHandler interface{ Delete(c *Context) error }
type OptionsHandler interface{ Options(c *Context) error }

var supportedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

type compiledRoute struct {
	Route
	re *regexp.Regexp
}

func compileRoutes(routes []Route) ([]compiledRoute, error) {
	out := make([]compiledRoute, 0, len(routes))
	for _, rt := range routes {
		if rt.New == nil {
			return nil, fmt.Errorf("admin: route %q has no handler", rt.Pattern)
		}
		pattern := rt.Pattern
		if !strings.HasSuffix(pattern, "$") {
			pattern += "$"
		}
		re, err := regexp.Compile("^" + pattern)
		if err != nil {
			return nil, fmt.Errorf("admin: route %q: %w", rt.Pattern, err)
		}
		out = append(out, compiledRoute{Route: rt, re: re})
	}
	return out, nil
}

func matchRoute(routes []compiledRoute, path string) (compiledRoute, []string, bool) {
	for _, rt := range routes {
		m := rt.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		return rt, m[1:], true
	}
	return compiledRoute{}, nil, false
}

func dispatch(h any, c *Context) error {
	switch c.Request.Method {
	case http.MethodGet:
		if v, ok := h.(GetHandler); ok {
			return v.Get(c)
		}
	case http.MethodHead:
		if v, ok := h.(HeadHandler); ok {
			return v.Head(c)
		}
	case http.MethodPost:
		if v, ok := h.(PostHandler); ok {
			return v.Post(c)
		}
	case http.MethodPut:
		if v, ok := h.(PutHandler); ok {
			return v.Put(c)
		}
	case http.MethodPatch:
		if v, ok := h.(PatchHandler); ok {
			return v.Patch(c)
		}
	case http.MethodDelete:
		if v, ok := h.(DeleteHandler); ok {
			return v.Delete(c)
		}
	case http.MethodOptions:
		if v, ok := h.(OptionsHandler); ok {
			return v.Options(c)
		}
	}
	return errStatus(http.StatusMethodNotAllowed)
}

// HTTPError lets a handler choose the response status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func errStatus(code int) error {
	return &HTTPError{StatusCode: code}
}

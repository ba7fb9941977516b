package admin

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/hashicorp/go-hclog"
)

// Context carries one request through a handler.
type Context struct {
	Settings *Settings
	Request  *http.Request
	Writer   http.ResponseWriter
	Args     []string
	Route    string

	app       *Application
	xsrfToken string
	session   *sessions.Session
}

func (c *Context) Log() hclog.Logger {
	return c.app.log.With("route", c.Route)
}

// Render executes the layout around the named body template. Output is
// buffered so a template error still produces a clean 500.
func (c *Context) Render(body, title string, data any) error {
	t, err := c.app.templates.get()
	if err != nil {
		return err
	}

	page := pageData{
		Title:        title,
		SiteTitle:    c.Settings.SiteTitle,
		BodyTemplate: body,
		Data:         data,
		ctx:          c,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", body, err)
	}

	if c.session != nil {
		if err := c.session.Save(c.Request, c.Writer); err != nil {
			c.Log().Warn("save session", "error", err)
		}
	}

	c.Writer.Header().Set("Content-Type", "text/html; charset=UTF-8")
	c.Writer.WriteHeader(http.StatusOK)
	_, err = c.Writer.Write(buf.Bytes())
	return err
}

// Session returns the signed-cookie session for this request. A cookie that
// fails verification yields a fresh session.
func (c *Context) Session() *sessions.Session {
	if c.session != nil {
		return c.session
	}
	s, err := c.app.sessions.Get(c.Request, sessionName)
	if err != nil {
		c.Log().Debug("discarding invalid session cookie", "error", err)
	}
	c.session = s
	return s
}

func (c *Context) StaticURL(path string) string {
	if c.app.static == nil {
		return "/static/" + path
	}
	return c.app.static.url(path)
}

package admin

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"html"
	"html/template"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

const (
	xsrfCookieName = "_xsrf"
	xsrfFormField  = "_xsrf"

	sessionName   = "panoptes"
	sessionMaxAge = 30 * 24 * 60 * 60
)

var xsrfHeaders = []string{"X-Xsrftoken", "X-Csrftoken"}

func needsXSRFCheck(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// XSRFToken returns the token for this request, setting the _xsrf cookie
// when the client does not have one yet.
func (c *Context) XSRFToken() string {
	if c.xsrfToken != "" {
		return c.xsrfToken
	}
	if ck, err := c.Request.Cookie(xsrfCookieName); err == nil && ck.Value != "" {
		c.xsrfToken = ck.Value
		return c.xsrfToken
	}

	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	c.xsrfToken = hex.EncodeToString(b[:])
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     xsrfCookieName,
		Value:    c.xsrfToken,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   isSecureRequest(c.Request),
	})
	return c.xsrfToken
}

func (c *Context) XSRFFormHTML() template.HTML {
	return template.HTML(`<input type="hidden" name="` + xsrfFormField + `" value="` + html.EscapeString(c.XSRFToken()) + `"/>`)
}

func (c *Context) checkXSRF() error {
	ck, err := c.Request.Cookie(xsrfCookieName)
	if err != nil || ck.Value == "" {
		return &HTTPError{StatusCode: http.StatusForbidden, Message: "'_xsrf' argument missing from POST"}
	}

	token := c.Request.FormValue(xsrfFormField)
	for _, h := range xsrfHeaders {
		if token != "" {
			break
		}
		token = c.Request.Header.Get(h)
	}
	if token == "" {
		return &HTTPError{StatusCode: http.StatusForbidden, Message: "'_xsrf' argument missing from POST"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(ck.Value)) != 1 {
		return &HTTPError{StatusCode: http.StatusForbidden, Message: "XSRF cookie does not match POST argument"}
	}
	return nil
}

func newSessionStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore(
		deriveKey(secret, "panoptes session auth", 32),
		deriveKey(secret, "panoptes session enc", 32),
	)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func deriveKey(secret, info string, n int) []byte {
	key := make([]byte, n)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		panic(err)
	}
	return key
}

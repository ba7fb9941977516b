package admin

import (
	"path/filepath"

	"panoptes-web/internal/docstore"
	"panoptes-web/internal/pocs"
)

const (
	// DefaultCookieSecret is the literal secret the PANOPTES admin has always
	// shipped with. Sessions signed by older deployments only validate against
	// it, so it stays the default; override it with --cookie-secret.
	DefaultCookieSecret = "PANOPTES_SUPER_DOOPER_SECRET"

	DefaultSiteTitle = "PANOPTES"
)

// Settings is shared by every request handler through Context.Settings.
type Settings struct {
	CookieSecret     string
	TemplatePath     string
	StaticPath       string
	XSRFCookies      bool
	DB               docstore.Store
	Config           *pocs.Config
	SiteTitle        string
	UIModules        UIModules
	CompressResponse bool
	Autoreload       bool
}

// NewSettings assembles the settings for a web root holding templates/ and static/.
func NewSettings(webRoot string, db docstore.Store, cfg *pocs.Config, debug bool) Settings {
	return Settings{
		CookieSecret:     DefaultCookieSecret,
		TemplatePath:     filepath.Join(webRoot, "templates"),
		StaticPath:       filepath.Join(webRoot, "static"),
		XSRFCookies:      true,
		DB:               db,
		Config:           cfg,
		SiteTitle:        DefaultSiteTitle,
		UIModules:        DefaultUIModules(),
		CompressResponse: true,
		Autoreload:       debug,
	}
}

func (s Settings) UsesDefaultCookieSecret() bool {
	return s.CookieSecret == DefaultCookieSecret
}

package admin

import (
	"context"
	"errors"
	"time"

	"panoptes-web/internal/docstore"
)

// statusCollections are shown on the main page, in display order.
var statusCollections = []string{"state", "weather", "environment", "mount"}

const statusTimeout = 2 * time.Second

type MainHandler struct{}

type statusSection struct {
	Collection string
	Record     docstore.Record
}

type mainData struct {
	UnitName     string
	LocationName string
	Webcams      []map[string]any
	Status       []statusSection
	LastVisit    time.Time
	Now          time.Time
}

func (h *MainHandler) Get(c *Context) error {
	cfg := c.Settings.Config
	data := mainData{
		UnitName:     cfg.String("name"),
		LocationName: cfg.String("location.name"),
		Webcams:      cfg.Maps("webcams"),
		Now:          time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statusTimeout)
	defer cancel()
	for _, coll := range statusCollections {
		rec, err := c.Settings.DB.GetCurrent(ctx, coll)
		if err != nil {
			if !errors.Is(err, docstore.ErrNotFound) {
				c.Log().Warn("current status unavailable", "collection", coll, "error", err)
			}
			continue
		}
		data.Status = append(data.Status, statusSection{Collection: coll, Record: rec})
	}

	sess := c.Session()
	if v, ok := sess.Values["last_visit"].(int64); ok {
		data.LastVisit = time.Unix(v, 0).UTC()
	}
	sess.Values["last_visit"] = data.Now.Unix()

	title := data.UnitName
	if title == "" {
		title = c.Settings.SiteTitle
	}
	return c.Render("main", title, data)
}

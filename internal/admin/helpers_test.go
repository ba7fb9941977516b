package admin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"panoptes-web/internal/docstore"
	"panoptes-web/internal/pocs"
)

const testWebRoot = "../../web"

const testConfigYAML = `
name: PAN001
location:
  name: Mauna Loa Observatory
webcams:
  - name: east
  - name: west
    image: /webcams/west-latest.jpeg
`

func testConfig(t *testing.T) *pocs.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pocs.yaml"), []byte(testConfigYAML), 0o644))
	cfg, err := pocs.LoadConfig(dir, pocs.LoadOptions{})
	require.NoError(t, err)
	return cfg
}

func testStore(t *testing.T) docstore.Store {
	t.Helper()
	st, err := docstore.OpenSQLite(filepath.Join(t.TempDir(), "panoptes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(t.Context()) })
	return st
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	return NewSettings(testWebRoot, testStore(t), testConfig(t), false)
}

func newTestApp(t *testing.T, routes []Route, s Settings) *Application {
	t.Helper()
	app, err := NewApplication(routes, s, hclog.NewNullLogger())
	require.NoError(t, err)
	return app
}

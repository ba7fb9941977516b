package admin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPrepareWebcam(t *testing.T) {
	v, err := prepareWebcam(map[string]any{"name": "east", "port": 1})
	require.NoError(t, err)
	require.Equal(t, webcamView{Name: "east", Image: "/static/webcams/east.jpeg"}, v)

	v, err = prepareWebcam(map[string]any{"name": "west", "image": "/img/west.jpg"})
	require.NoError(t, err)
	require.Equal(t, webcamView{Name: "west", Image: "/img/west.jpg"}, v)

	_, err = prepareWebcam(map[string]any{"port": 1})
	require.Error(t, err)
	_, err = prepareWebcam("east")
	require.Error(t, err)
	_, err = prepareWebcam()
	require.Error(t, err)
}

func TestPrepareSensorStatus_FlattensSorted(t *testing.T) {
	v, err := prepareSensorStatus("environment", map[string]any{
		"temp": 12.5,
		"camera_box": map[string]any{
			"humidity": 40,
			"fan":      map[string]any{"on": true},
		},
		"ambient": "ok",
	})
	require.NoError(t, err)

	want := statusView{
		Title: "environment",
		Rows: []statusRow{
			{Key: "ambient", Value: "ok"},
			{Key: "camera_box.fan.on", Value: true},
			{Key: "camera_box.humidity", Value: 40},
			{Key: "temp", Value: 12.5},
		},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("status view mismatch (-want +got):\n%s", diff)
	}
}

func TestPrepareSensorStatus_Errors(t *testing.T) {
	v, err := prepareSensorStatus("mount", nil)
	require.NoError(t, err)
	require.Empty(t, v.(statusView).Rows)

	_, err = prepareSensorStatus("mount", 3)
	require.Error(t, err)
	_, err = prepareSensorStatus("mount")
	require.Error(t, err)
}

func TestUIModule_PrepareDefault(t *testing.T) {
	m := UIModule{Template: "x"}
	v, err := m.prepare("one")
	require.NoError(t, err)
	require.Equal(t, "one", v)

	v, err = m.prepare("one", "two")
	require.NoError(t, err)
	require.Equal(t, []any{"one", "two"}, v)
}

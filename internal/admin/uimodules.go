package admin

import (
	"fmt"
	"sort"
)

// UIModule is a reusable page fragment. Templates call it as
// {{module "Name" args...}}; Prepare turns the arguments into the data the
// module template executes against.
type UIModule struct {
	Template string
	Prepare  func(args ...any) (any, error)
}

type UIModules map[string]UIModule

func (m UIModule) prepare(args ...any) (any, error) {
	if m.Prepare == nil {
		if len(args) == 1 {
			return args[0], nil
		}
		return args, nil
	}
	return m.Prepare(args...)
}

func DefaultUIModules() UIModules {
	return UIModules{
		"Webcam":       {Template: "webcam", Prepare: prepareWebcam},
		"SensorStatus": {Template: "sensor_status", Prepare: prepareSensorStatus},
		"MountStatus":  {Template: "mount_status", Prepare: prepareSensorStatus},
	}
}

type webcamView struct {
	Name  string
	Image string
}

func prepareWebcam(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("want 1 argument, got %d", len(args))
	}
	cam, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("webcam must be a mapping, got %T", args[0])
	}
	v := webcamView{}
	v.Name, _ = cam["name"].(string)
	if v.Name == "" {
		return nil, fmt.Errorf("webcam has no name")
	}
	v.Image = "/static/webcams/" + v.Name + ".jpeg"
	if img, ok := cam["image"].(string); ok && img != "" {
		v.Image = img
	}
	return v, nil
}

type statusRow struct {
	Key   string
	Value any
}

type statusView struct {
	Title string
	Rows  []statusRow
}

// prepareSensorStatus flattens a status record into sorted key/value rows;
// nested mappings become dotted keys.
func prepareSensorStatus(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("want 2 arguments, got %d", len(args))
	}
	title, _ := args[0].(string)
	v := statusView{Title: title}
	switch data := args[1].(type) {
	case nil:
	case map[string]any:
		flattenRows("", data, &v.Rows)
	default:
		return nil, fmt.Errorf("status must be a mapping, got %T", args[1])
	}
	sort.Slice(v.Rows, func(i, j int) bool { return v.Rows[i].Key < v.Rows[j].Key })
	return v, nil
}

func flattenRows(prefix string, m map[string]any, out *[]statusRow) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flattenRows(key, sub, out)
			continue
		}
		*out = append(*out, statusRow{Key: key, Value: val})
	}
}

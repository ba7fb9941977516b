package docstore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// encodeData renders record data as canonical Extended JSON, which keeps
// integers, doubles and dates distinct where plain JSON would not.
func encodeData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := bson.MarshalExtJSON(bson.M(data), true, false)
	if err != nil {
		return "", fmt.Errorf("docstore: encode data: %w", err)
	}
	return string(b), nil
}

// decodeData reads relaxed mode, which accepts canonical Extended JSON as
// well as plain JSON written before data was stored this way.
func decodeData(raw string) (map[string]any, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &m); err != nil {
		return nil, fmt.Errorf("docstore: decode data: %w", err)
	}
	out := plainMap(m)
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// cachedRecord is the Redis form of a Record. Date travels as nanoseconds
// because BSON datetimes stop at milliseconds.
type cachedRecord struct {
	ID   string `bson:"id"`
	Type string `bson:"type"`
	Date int64  `bson:"date"`
	Data bson.M `bson:"data"`
}

func marshalCached(r Record) ([]byte, error) {
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}
	return bson.Marshal(cachedRecord{ID: r.ID, Type: r.Type, Date: r.Date.UnixNano(), Data: bson.M(data)})
}

func unmarshalCached(b []byte) (Record, error) {
	var c cachedRecord
	if err := bson.Unmarshal(b, &c); err != nil {
		return Record{}, err
	}
	r := Record{ID: c.ID, Type: c.Type, Date: time.Unix(0, c.Date).UTC(), Data: plainMap(c.Data)}
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	return r, nil
}

// plainMap converts decoded BSON into plain Go values so callers outside
// this package never see driver types: maps, []any, int64, float64,
// time.Time and hex ids.
func plainMap(m bson.M) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case bson.M:
		return plainMap(x)
	case map[string]any:
		return plainMap(bson.M(x))
	case bson.D:
		m := make(bson.M, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return plainMap(m)
	case bson.A:
		return plainSlice(x)
	case []any:
		return plainSlice(x)
	case int32:
		return int64(x)
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	}
	return v
}

func plainSlice(a []any) []any {
	out := make([]any, len(a))
	for i, e := range a {
		out[i] = plainValue(e)
	}
	return out
}

package docstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed width so that ORDER BY date sorts chronologically.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a file-backed store with the same
// collections as the Mongo backend.
func OpenSQLite(dbPath string) (Store, error) {
	if dbPath == "" {
		return nil, errors.New("docstore: sqlite path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	var currentVersion int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion < 1 {
		_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  collection TEXT NOT NULL,
  date TEXT NOT NULL,
  data_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection_date ON documents(collection, date);

CREATE TABLE IF NOT EXISTS current (
  type TEXT PRIMARY KEY,
  date TEXT NOT NULL,
  data_json TEXT NOT NULL
);
`)
		if err != nil {
			return err
		}
		if _, err := db.Exec("PRAGMA user_version = 1;"); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := checkTyped(collection); err != nil {
		return "", err
	}
	return s.insert(ctx, collection, nowUTC(), data)
}

func (s *sqliteStore) insert(ctx context.Context, collection string, date time.Time, data map[string]any) (string, error) {
	raw, err := encodeData(data)
	if err != nil {
		return "", err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, date, data_json) VALUES (?, ?, ?)",
		collection, formatDate(date), raw,
	)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *sqliteStore) InsertCurrent(ctx context.Context, collection string, data map[string]any, keep bool) (string, error) {
	if err := checkTyped(collection); err != nil {
		return "", err
	}
	raw, err := encodeData(data)
	if err != nil {
		return "", err
	}
	date := nowUTC()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO current (type, date, data_json) VALUES (?, ?, ?)
ON CONFLICT(type) DO UPDATE SET date = excluded.date, data_json = excluded.data_json
`, collection, formatDate(date), raw)
	if err != nil {
		return "", err
	}
	if !keep {
		return "", nil
	}
	return s.insert(ctx, collection, date, data)
}

func (s *sqliteStore) GetCurrent(ctx context.Context, collection string) (Record, error) {
	if err := checkTyped(collection); err != nil {
		return Record{}, err
	}
	var date, raw string
	err := s.db.QueryRowContext(ctx, "SELECT date, data_json FROM current WHERE type = ?", collection).Scan(&date, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return decodeRecord("", collection, date, raw)
}

func (s *sqliteStore) Find(ctx context.Context, collection string, limit int) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if collection == "current" {
		return s.findCurrent(ctx, limit)
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, date, data_json FROM documents WHERE collection = ? ORDER BY date DESC, id DESC LIMIT ?",
		collection, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []Record{}
	for rows.Next() {
		var id int64
		var date, raw string
		if err := rows.Scan(&id, &date, &raw); err != nil {
			return nil, err
		}
		r, err := decodeRecord(strconv.FormatInt(id, 10), collection, date, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) findCurrent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, "SELECT type, date, data_json FROM current ORDER BY date DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []Record{}
	for rows.Next() {
		var typ, date, raw string
		if err := rows.Scan(&typ, &date, &raw); err != nil {
			return nil, err
		}
		r, err := decodeRecord("", typ, date, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStore) Close(context.Context) error {
	return s.db.Close()
}

func decodeRecord(id, typ, date, raw string) (Record, error) {
	ts, err := time.Parse(dateLayout, date)
	if err != nil {
		return Record{}, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, Type: typ, Date: ts.UTC(), Data: data}, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

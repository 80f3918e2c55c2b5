package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lurk-reader/lurk/internal/api"
)

// Store is the sqlite backing for item bodies and ranked-id lists.
// The default DSN is ":memory:"; the store's lifetime is the session.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database and runs migrations.
func OpenStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(wal)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			by_user TEXT,
			time_unix INTEGER,
			text TEXT,
			parent_id INTEGER,
			url TEXT,
			title TEXT,
			score INTEGER DEFAULT 0,
			descendants INTEGER DEFAULT 0,
			kids TEXT,
			parts TEXT,
			dead INTEGER DEFAULT 0,
			deleted INTEGER DEFAULT 0,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_id)`,

		`CREATE TABLE IF NOT EXISTS ranked_lists (
			category TEXT PRIMARY KEY,
			item_ids TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// GetItem retrieves a stored item. Returns nil on miss.
func (s *Store) GetItem(id int) (*api.Item, error) {
	row := s.db.QueryRow(`SELECT id, type, by_user, time_unix, text, parent_id, url,
		title, score, descendants, kids, parts, dead, deleted
		FROM items WHERE id = ?`, id)

	var item api.Item
	var byUser, text, url, title, kids, parts sql.NullString
	var parentID sql.NullInt64
	var dead, deleted int

	err := row.Scan(&item.ID, &item.Type, &byUser, &item.Time, &text, &parentID,
		&url, &title, &item.Score, &item.Descendants, &kids, &parts, &dead, &deleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item.By = byUser.String
	item.Text = text.String
	item.URL = url.String
	item.Title = title.String
	item.Dead = dead != 0
	item.Deleted = deleted != 0
	if parentID.Valid {
		item.Parent = int(parentID.Int64)
	}
	if kids.Valid && kids.String != "" {
		item.RawKids = json.RawMessage(kids.String)
	}
	if parts.Valid && parts.String != "" {
		item.RawParts = json.RawMessage(parts.String)
	}
	return &item, nil
}

// PutItem stores an item, replacing any prior row for the id.
func (s *Store) PutItem(item *api.Item) error {
	var dead, deleted int
	if item.Dead {
		dead = 1
	}
	if item.Deleted {
		deleted = 1
	}
	partsJSON := "[]"
	if len(item.RawParts) > 0 {
		partsJSON = string(item.RawParts)
	}

	_, err := s.db.Exec(`INSERT OR REPLACE INTO items
		(id, type, by_user, time_unix, text, parent_id, url, title, score, descendants, kids, parts, dead, deleted, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Type, nullStr(item.By), item.Time, nullStr(item.Text),
		nullInt(item.Parent), nullStr(item.URL), nullStr(item.Title),
		item.Score, item.Descendants, item.KidsJSON(), partsJSON, dead, deleted,
		time.Now().Unix())
	return err
}

// GetRankedIDs retrieves a stored ranked-id list for a category.
// Returns (ids, isFresh, error); ids is nil on miss.
func (s *Store) GetRankedIDs(cat api.Category, ttl time.Duration) ([]int, bool, error) {
	row := s.db.QueryRow(`SELECT item_ids, fetched_at FROM ranked_lists WHERE category = ?`, string(cat))

	var idsJSON string
	var fetchedAt int64
	err := row.Scan(&idsJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ids []int
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return nil, false, err
	}
	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return ids, isFresh, nil
}

// PutRankedIDs stores a ranked-id list for a category.
func (s *Store) PutRankedIDs(cat api.Category, ids []int) error {
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO ranked_lists (category, item_ids, fetched_at) VALUES (?, ?, ?)`,
		string(cat), string(idsJSON), time.Now().Unix())
	return err
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

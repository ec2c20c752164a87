package blogimageeditor

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
)

// Store wraps a SQLite database holding connections, post snapshots and the
// processed image log.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the request goroutines read while one writes; busy_timeout
	// makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS connections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_url TEXT NOT NULL,
    username TEXT NOT NULL,
    app_password TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS post_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    connection_id INTEGER NOT NULL,
    wp_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    status TEXT NOT NULL,
    featured_image_url TEXT NOT NULL DEFAULT '',
    last_synced TEXT NOT NULL,
    UNIQUE (connection_id, wp_id)
);
CREATE TABLE IF NOT EXISTS processed_images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    connection_id INTEGER NOT NULL DEFAULT 0,
    original_url TEXT NOT NULL,
    processed_url TEXT NOT NULL,
    media_id INTEGER NOT NULL DEFAULT 0,
    filename TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    alt_text TEXT NOT NULL DEFAULT '',
    file_size INTEGER NOT NULL DEFAULT 0,
    quality INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS processed_images_created ON processed_images (created_at DESC);
`)
	return err
}

// SaveConnection inserts a connection and returns it with its new ID.
func (s *Store) SaveConnection(c Connection) (Connection, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`INSERT INTO connections (site_url, username, app_password, created_at) VALUES (?, ?, ?, ?)`,
		c.SiteURL, c.Username, c.AppPassword, c.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return Connection{}, err
	}
	c.ID, err = res.LastInsertId()
	return c, err
}

// GetConnection returns a connection by ID, or apperr.ErrNotFound.
func (s *Store) GetConnection(id int64) (Connection, error) {
	var c Connection
	var created string
	err := s.db.QueryRow(`SELECT id, site_url, username, app_password, created_at FROM connections WHERE id = ?`, id).
		Scan(&c.ID, &c.SiteURL, &c.Username, &c.AppPassword, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, apperr.ErrNotFound
	}
	if err != nil {
		return Connection{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

// DeleteConnection removes a connection and its post snapshots.
func (s *Store) DeleteConnection(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM post_snapshots WHERE connection_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM connections WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SavePostSnapshot upserts the snapshot for (ConnectionID, WPID).
func (s *Store) SavePostSnapshot(p PostSnapshot) error {
	if p.LastSynced.IsZero() {
		p.LastSynced = time.Now().UTC()
	}
	_, err := s.db.Exec(`
INSERT INTO post_snapshots (connection_id, wp_id, title, content, status, featured_image_url, last_synced)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (connection_id, wp_id) DO UPDATE SET
    title = excluded.title,
    content = excluded.content,
    status = excluded.status,
    featured_image_url = excluded.featured_image_url,
    last_synced = excluded.last_synced`,
		p.ConnectionID, p.WPID, p.Title, p.Content, p.Status, p.FeaturedImageURL, p.LastSynced.UTC().Format(timeLayout))
	return err
}

// GetPostSnapshot returns the stored snapshot, or apperr.ErrNotFound.
func (s *Store) GetPostSnapshot(connectionID, wpID int64) (PostSnapshot, error) {
	var p PostSnapshot
	var synced string
	err := s.db.QueryRow(`SELECT id, connection_id, wp_id, title, content, status, featured_image_url, last_synced FROM post_snapshots WHERE connection_id = ? AND wp_id = ?`,
		connectionID, wpID).
		Scan(&p.ID, &p.ConnectionID, &p.WPID, &p.Title, &p.Content, &p.Status, &p.FeaturedImageURL, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return PostSnapshot{}, apperr.ErrNotFound
	}
	if err != nil {
		return PostSnapshot{}, err
	}
	p.LastSynced = parseTime(synced)
	return p, nil
}

// SaveProcessedImage appends to the processed image log.
func (s *Store) SaveProcessedImage(img ProcessedImage) (ProcessedImage, error) {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
INSERT INTO processed_images (connection_id, original_url, processed_url, media_id, filename, author, alt_text, file_size, quality, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ConnectionID, img.OriginalURL, img.ProcessedURL, img.MediaID, img.Filename, img.Author, img.AltText, img.FileSize, img.Quality,
		img.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return ProcessedImage{}, err
	}
	img.ID, err = res.LastInsertId()
	return img, err
}

// ListProcessedImages returns a connection's entries, newest first. A
// non-positive limit means 50.
func (s *Store) ListProcessedImages(connectionID int64, limit int) ([]ProcessedImage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
SELECT id, connection_id, original_url, processed_url, media_id, filename, author, alt_text, file_size, quality, created_at
FROM processed_images WHERE connection_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, connectionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []ProcessedImage{}
	for rows.Next() {
		var img ProcessedImage
		var created string
		if err := rows.Scan(&img.ID, &img.ConnectionID, &img.OriginalURL, &img.ProcessedURL, &img.MediaID, &img.Filename,
			&img.Author, &img.AltText, &img.FileSize, &img.Quality, &created); err != nil {
			return nil, err
		}
		img.CreatedAt = parseTime(created)
		images = append(images, img)
	}
	return images, rows.Err()
}

// DeleteProcessedImage removes a connection's log entry by ID and returns it.
// Entries of other connections report apperr.ErrNotFound.
func (s *Store) DeleteProcessedImage(connectionID, id int64) (ProcessedImage, error) {
	var img ProcessedImage
	var created string
	err := s.db.QueryRow(`
SELECT id, connection_id, original_url, processed_url, media_id, filename, author, alt_text, file_size, quality, created_at
FROM processed_images WHERE id = ? AND connection_id = ?`, id, connectionID).
		Scan(&img.ID, &img.ConnectionID, &img.OriginalURL, &img.ProcessedURL, &img.MediaID, &img.Filename,
			&img.Author, &img.AltText, &img.FileSize, &img.Quality, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ProcessedImage{}, apperr.ErrNotFound
	}
	if err != nil {
		return ProcessedImage{}, err
	}
	img.CreatedAt = parseTime(created)
	if _, err := s.db.Exec(`DELETE FROM processed_images WHERE id = ? AND connection_id = ?`, id, connectionID); err != nil {
		return ProcessedImage{}, err
	}
	return img, nil
}

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS alerts (
    id           TEXT PRIMARY KEY,
    product_id   TEXT NOT NULL,
    contact      TEXT NOT NULL,
    target_price TEXT NOT NULL,
    created_at   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS favorites (
    product_id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);`

// sqliteTimeLayout is fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists alerts and favorites in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating when needed) the database at path and ensures its schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage.sqlite_path is required")
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db, nil
}

// InsertAlert persists a new alert.
func (s *SQLiteStore) InsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	db, err := s.getDB()
	if err != nil {
		return Alert{}, err
	}
	alert = prepareAlert(alert)
	_, err = db.ExecContext(ctx,
		`INSERT INTO alerts (id, product_id, contact, target_price, created_at) VALUES (?, ?, ?, ?, ?)`,
		alert.ID, alert.ProductID, alert.Contact, alert.TargetPrice.String(), alert.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}

// ListAlerts lists every stored alert, oldest first.
func (s *SQLiteStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, contact, target_price, created_at FROM alerts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		var (
			rec                  Alert
			targetStr, createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Contact, &targetStr, &createdAt); err != nil {
			return nil, err
		}
		if rec.TargetPrice, err = decimal.NewFromString(targetStr); err != nil {
			return nil, fmt.Errorf("parse target price of alert %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of alert %s: %w", rec.ID, err)
		}
		alerts = append(alerts, rec)
	}
	return alerts, rows.Err()
}

// DeleteAlert removes an alert by id.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddFavorite bookmarks a product.
func (s *SQLiteStore) AddFavorite(ctx context.Context, productID string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (product_id, created_at) VALUES (?, ?)`,
		productID, time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite drops a bookmark.
func (s *SQLiteStore) RemoveFavorite(ctx context.Context, productID string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM favorites WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListFavorites lists bookmarks ordered by product id.
func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]Favorite, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT product_id, created_at FROM favorites ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]Favorite, 0)
	for rows.Next() {
		var (
			fav       Favorite
			createdAt string
		)
		if err := rows.Scan(&fav.ProductID, &createdAt); err != nil {
			return nil, err
		}
		if fav.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of favorite %s: %w", fav.ProductID, err)
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	postgresSchemaSQL = `
    CREATE TABLE IF NOT EXISTS alerts (
        id           TEXT PRIMARY KEY,
        product_id   TEXT NOT NULL,
        contact      TEXT NOT NULL,
        target_price NUMERIC NOT NULL,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS favorites (
        product_id TEXT PRIMARY KEY,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	insertAlertSQL = `INSERT INTO alerts (
        id,
        product_id,
        contact,
        target_price,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id, product_id, contact, target_price::text, created_at;`

	listAlertsSQL = `SELECT
        id,
        product_id,
        contact,
        target_price::text,
        created_at
    FROM alerts
    ORDER BY created_at, id;`

	deleteAlertSQL = `DELETE FROM alerts WHERE id = $1;`

	addFavoriteSQL = `INSERT INTO favorites (product_id) VALUES ($1)
    ON CONFLICT (product_id) DO NOTHING;`

	removeFavoriteSQL = `DELETE FROM favorites WHERE product_id = $1;`

	listFavoritesSQL = `SELECT product_id, created_at FROM favorites ORDER BY product_id;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PostgresStore persists alerts and favorites in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *PostgresStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort: the session lock also goes away with the connection
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists a new alert.
func (s *PostgresStore) InsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}

	alert = prepareAlert(alert)
	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.ID,
		alert.ProductID,
		alert.Contact,
		alert.TargetPrice.String(),
		alert.CreatedAt,
	)

	rec, err := scanAlert(row)
	if err != nil {
		return Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return rec, nil
}

// ListAlerts lists every stored alert, oldest first.
func (s *PostgresStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlert removes an alert by id.
func (s *PostgresStore) DeleteAlert(ctx context.Context, id string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteAlertSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete alert: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddFavorite bookmarks a product.
func (s *PostgresStore) AddFavorite(ctx context.Context, productID string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, addFavoriteSQL, productID); execErr != nil {
		return fmt.Errorf("add favorite: %w", execErr)
	}
	return nil
}

// RemoveFavorite drops a bookmark.
func (s *PostgresStore) RemoveFavorite(ctx context.Context, productID string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, removeFavoriteSQL, productID); execErr != nil {
		return fmt.Errorf("remove favorite: %w", execErr)
	}
	return nil
}

// ListFavorites lists bookmarks ordered by product id.
func (s *PostgresStore) ListFavorites(ctx context.Context) ([]Favorite, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listFavoritesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list favorites: %w", queryErr)
	}
	defer rows.Close()

	favorites := make([]Favorite, 0)
	for rows.Next() {
		var fav Favorite
		if err := rows.Scan(&fav.ProductID, &fav.CreatedAt); err != nil {
			return nil, err
		}
		favorites = append(favorites, fav)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return favorites, nil
}

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		rec       Alert
		targetStr string
	)
	if err := row.Scan(&rec.ID, &rec.ProductID, &rec.Contact, &targetStr, &rec.CreatedAt); err != nil {
		return Alert{}, err
	}
	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return Alert{}, fmt.Errorf("parse target price: %w", err)
	}
	rec.TargetPrice = target
	return rec, nil
}

var (
	_ Store          = (*PostgresStore)(nil)
	_ AdvisoryLocker = (*PostgresStore)(nil)
)

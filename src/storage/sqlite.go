package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"coindash/src/logger"
	"coindash/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteCacheStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteCacheStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteCacheStore, error) {
	return &SQLiteCacheStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// SQLite types: INTEGER for unix millis, TEXT for json payloads
	query := `
		CREATE TABLE IF NOT EXISTS market_series_cache (
			asset_id TEXT NOT NULL,
			range_bucket TEXT NOT NULL,
			currency TEXT NOT NULL,
			payload TEXT NOT NULL,
			data_source TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (asset_id, range_bucket, currency)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create market_series_cache: %w", err)
	}

	d.Logger.Info("SQLiteCacheStore initialized successfully (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

// GetSeries returns the cached row for a tuple, (nil, nil) when absent.
func (d *SQLiteCacheStore) GetSeries(assetID, rng, currency string) (*models.MCacheRow, error) {
	query := `
		SELECT payload, data_source, updated_at
		FROM market_series_cache
		WHERE asset_id = ? AND range_bucket = ? AND currency = ?
	`

	var payload, dataSource string
	var updatedAtMs int64
	err := d.DB.QueryRow(query, assetID, rng, currency).Scan(&payload, &dataSource, &updatedAtMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache row: %w", err)
	}

	var series models.MMarketSeries
	if err := json.Unmarshal([]byte(payload), &series); err != nil {
		return nil, fmt.Errorf("corrupt cache payload for %s/%s/%s: %w", assetID, rng, currency, err)
	}

	return &models.MCacheRow{
		Series:     &series,
		DataSource: dataSource,
		UpdatedAt:  time.UnixMilli(updatedAtMs),
	}, nil
}

// -----------------------------------------------------------------------------

// UpsertSeries writes a row, last-write-wins on the composite key.
func (d *SQLiteCacheStore) UpsertSeries(series *models.MMarketSeries, dataSource string) error {
	if series.IsSynthetic {
		return fmt.Errorf("refusing to persist synthetic series for %s/%s/%s",
			series.AssetID, series.Range, series.Currency)
	}

	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	query := `
		INSERT INTO market_series_cache (asset_id, range_bucket, currency, payload, data_source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (asset_id, range_bucket, currency)
		DO UPDATE SET payload = excluded.payload,
		              data_source = excluded.data_source,
		              updated_at = excluded.updated_at
	`
	_, err = d.DB.Exec(query, series.AssetID, series.Range, series.Currency,
		string(payload), dataSource, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert cache row: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// CleanupStale removes rows older than maxAge.
func (d *SQLiteCacheStore) CleanupStale(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := d.DB.Exec(`DELETE FROM market_series_cache WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		d.Logger.Info("Cleaned up %d stale cache rows", removed)
	}
	return removed, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"coindash/src/logger"
	"coindash/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresCacheStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresCacheStore(cfg *models.MConfig, log *logger.Logger) (*PostgresCacheStore, error) {
	return &PostgresCacheStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// The cache survives restarts, so no drop-and-recreate here.
	query := `
		CREATE TABLE IF NOT EXISTS market_series_cache (
			asset_id TEXT NOT NULL,
			range_bucket TEXT NOT NULL,
			currency TEXT NOT NULL,
			payload TEXT NOT NULL,
			data_source TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (asset_id, range_bucket, currency)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create market_series_cache: %w", err)
	}

	d.Logger.Info("PostgresCacheStore initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

// GetSeries returns the cached row for a tuple, (nil, nil) when absent.
func (d *PostgresCacheStore) GetSeries(assetID, rng, currency string) (*models.MCacheRow, error) {
	query := `
		SELECT payload, data_source, updated_at
		FROM market_series_cache
		WHERE asset_id = $1 AND range_bucket = $2 AND currency = $3
	`

	var payload, dataSource string
	var updatedAt time.Time
	err := d.DB.QueryRow(query, assetID, rng, currency).Scan(&payload, &dataSource, &updatedAt)
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
		UpdatedAt:  updatedAt,
	}, nil
}

// -----------------------------------------------------------------------------

// UpsertSeries writes a row, last-write-wins on the composite key.
func (d *PostgresCacheStore) UpsertSeries(series *models.MMarketSeries, dataSource string) error {
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
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (asset_id, range_bucket, currency)
		DO UPDATE SET payload = EXCLUDED.payload,
		              data_source = EXCLUDED.data_source,
		              updated_at = EXCLUDED.updated_at
	`
	_, err = d.DB.Exec(query, series.AssetID, series.Range, series.Currency,
		string(payload), dataSource, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert cache row: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// CleanupStale removes rows older than maxAge.
func (d *PostgresCacheStore) CleanupStale(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := d.DB.Exec(`DELETE FROM market_series_cache WHERE updated_at < $1`, cutoff)
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

func (d *PostgresCacheStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// Package sqlite persists canonical bars and indicator snapshots.
//
// Bars live in one table per timeframe keyed by (symbol, timestamp);
// snapshots live in a single technical_analysis table keyed by
// (symbol, timeframe, timestamp). All writes are INSERT OR REPLACE inside a
// single transaction, so re-ingesting or re-computing an overlapping window
// is idempotent: the most recent write wins, whole rows at a time.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"zenigh/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/zenigh.db"
}

// Store is a SQLite-backed time-series store for bars and snapshots.
type Store struct {
	db   *sql.DB
	path string
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database with WAL mode and the full schema.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("opened database", "path", cfg.DBPath)
	return &Store{db: db, path: cfg.DBPath}, nil
}

func createSchema(db *sql.DB) error {
	for _, tf := range model.Timeframes() {
		table, err := tf.Table()
		if err != nil {
			return err
		}
		_, err = db.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				symbol      TEXT    NOT NULL,
				ts          INTEGER NOT NULL,
				open        REAL    NOT NULL,
				high        REAL    NOT NULL,
				low         REAL    NOT NULL,
				close       REAL    NOT NULL,
				volume      INTEGER,
				trade_count INTEGER,
				vwap        REAL,
				PRIMARY KEY (symbol, ts)
			);
		`, table))
		if err != nil {
			return err
		}
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS technical_analysis (
			symbol           TEXT    NOT NULL,
			timeframe        TEXT    NOT NULL,
			ts               INTEGER NOT NULL,
			indicators       TEXT    NOT NULL,
			signals          TEXT,
			data_points_used INTEGER NOT NULL,
			PRIMARY KEY (symbol, timeframe, ts)
		);
	`)
	return err
}

// UpsertBars writes bars into the table for tf in one transaction, replacing
// rows that share a (symbol, timestamp) key. Returns the number written.
func (s *Store) UpsertBars(ctx context.Context, bars []model.Bar, tf model.Timeframe) (int, error) {
	table, err := tf.Table()
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (symbol, ts, open, high, low, close, volume, trade_count, vwap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table))
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			b.Symbol, b.Timestamp.UTC().UnixNano(),
			b.Open, b.High, b.Low, b.Close,
			nullInt(b.Volume), nullInt(b.TradeCount), nullFloat(b.VWAP),
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}
	return len(bars), nil
}

// ReadBars returns all stored bars for (symbol, tf) ordered by ascending
// timestamp.
func (s *Store) ReadBars(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error) {
	table, err := tf.Table()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT symbol, ts, open, high, low, close, volume, trade_count, vwap
		FROM %s
		WHERE symbol = ?
		ORDER BY ts ASC
	`, table), symbol)
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s: %w", table, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var ts int64
		var volume, tradeCount sql.NullInt64
		var vwap sql.NullFloat64
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &volume, &tradeCount, &vwap); err != nil {
			return nil, fmt.Errorf("sqlite scan %s: %w", table, err)
		}
		b.Timestamp = time.Unix(0, ts).UTC()
		if volume.Valid {
			v := volume.Int64
			b.Volume = &v
		}
		if tradeCount.Valid {
			n := tradeCount.Int64
			b.TradeCount = &n
		}
		if vwap.Valid {
			vw := vwap.Float64
			b.VWAP = &vw
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// UpsertSnapshots writes snapshots in one transaction, replacing whole rows
// that share a (symbol, timeframe, timestamp) key. Returns the number written.
func (s *Store) UpsertSnapshots(ctx context.Context, snaps []model.Snapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO technical_analysis (symbol, timeframe, ts, indicators, signals, data_points_used)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snaps {
		if !snap.Timeframe.Valid() {
			tx.Rollback()
			return 0, fmt.Errorf("%w: %q", model.ErrUnknownTimeframe, string(snap.Timeframe))
		}
		indicators, err := json.Marshal(snap.Indicators)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("marshal indicators: %w", err)
		}
		var signals any
		if len(snap.Signals) > 0 {
			signals = string(snap.Signals)
		}
		_, err = stmt.ExecContext(ctx,
			snap.Symbol, string(snap.Timeframe), snap.Timestamp.UTC().UnixNano(),
			string(indicators), signals, snap.DataPointsUsed,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite insert technical_analysis: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}
	return len(snaps), nil
}

// ReadSnapshots returns all stored snapshots for (symbol, tf) ordered by
// ascending timestamp.
func (s *Store) ReadSnapshots(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Snapshot, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownTimeframe, string(tf))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, ts, indicators, signals, data_points_used
		FROM technical_analysis
		WHERE symbol = ? AND timeframe = ?
		ORDER BY ts ASC
	`, symbol, string(tf))
	if err != nil {
		return nil, fmt.Errorf("sqlite query technical_analysis: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var tfStr string
		var ts int64
		var indicators string
		var signals sql.NullString
		if err := rows.Scan(&snap.Symbol, &tfStr, &ts, &indicators, &signals, &snap.DataPointsUsed); err != nil {
			return nil, fmt.Errorf("sqlite scan technical_analysis: %w", err)
		}
		snap.Timeframe = model.Timeframe(tfStr)
		snap.Timestamp = time.Unix(0, ts).UTC()
		if err := json.Unmarshal([]byte(indicators), &snap.Indicators); err != nil {
			return nil, fmt.Errorf("unmarshal indicators: %w", err)
		}
		if signals.Valid {
			snap.Signals = json.RawMessage(signals.String)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Size returns the database file size in bytes. Missing file counts as zero.
func (s *Store) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

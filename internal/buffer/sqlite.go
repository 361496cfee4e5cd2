package buffer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/speedwagon-io/gauge/internal/gauge"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
)

// Fixed-width UTC layout so created_at compares correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Buffer interface {
	Store(ctx context.Context, envelope *model.Envelope) error
	GetPending(ctx context.Context, limit int) ([]*model.Envelope, error)
	MarkSent(ctx context.Context, ids []string) error
	Cleanup(ctx context.Context, maxAge time.Duration) error
	Close() error
}

type SQLiteBuffer struct {
	log *slog.Logger
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteBuffer(log *slog.Logger, dbPath string) (*SQLiteBuffer, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create buffer directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	buf := &SQLiteBuffer{
		log: log,
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := buf.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return buf, nil
}

func (b *SQLiteBuffer) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS envelopes (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			source_name TEXT,
			target_id TEXT NOT NULL,
			target_name TEXT,
			target_group TEXT,
			timestamp TEXT NOT NULL,
			readings_json TEXT NOT NULL,
			worst_level TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_envelopes_created_at ON envelopes(created_at);
	`
	_, err := b.db.Exec(query)
	return err
}

func (b *SQLiteBuffer) Store(ctx context.Context, envelope *model.Envelope) error {
	readingsJSON, err := json.Marshal(envelope.Readings)
	if err != nil {
		return fmt.Errorf("failed to marshal readings: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO envelopes (id, source_id, source_name, target_id, target_name, target_group, timestamp, readings_json, worst_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		envelope.ID,
		envelope.SourceID,
		envelope.SourceName,
		envelope.TargetID,
		envelope.TargetName,
		envelope.TargetGroup,
		envelope.Timestamp.UTC().Format(timeLayout),
		string(readingsJSON),
		envelope.Worst().String(),
		b.now().Format(timeLayout),
	)

	if err != nil {
		return fmt.Errorf("failed to store envelope: %w", err)
	}

	b.log.Debug("envelope stored in buffer", slog.String("id", envelope.ID))
	return nil
}

func (b *SQLiteBuffer) GetPending(ctx context.Context, limit int) ([]*model.Envelope, error) {
	query := `
		SELECT id, source_id, source_name, target_id, target_name, target_group, timestamp, readings_json
		FROM envelopes
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := b.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []*model.Envelope
	for rows.Next() {
		var (
			id, sourceID, sourceName, targetID, targetName, targetGroup, timestampStr, readingsJSON string
		)

		if err := rows.Scan(&id, &sourceID, &sourceName, &targetID, &targetName, &targetGroup, &timestampStr, &readingsJSON); err != nil {
			b.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		timestamp, err := time.Parse(timeLayout, timestampStr)
		if err != nil {
			b.log.Error("failed to parse timestamp", sl.Err(err))
			continue
		}

		var readings []model.Reading
		if err := json.Unmarshal([]byte(readingsJSON), &readings); err != nil {
			b.log.Error("failed to unmarshal readings", sl.Err(err))
			continue
		}

		envelopes = append(envelopes, &model.Envelope{
			ID:          id,
			SourceID:    sourceID,
			SourceName:  sourceName,
			TargetID:    targetID,
			TargetName:  targetName,
			TargetGroup: targetGroup,
			Timestamp:   timestamp,
			Readings:    readings,
		})
	}

	return envelopes, rows.Err()
}

func (b *SQLiteBuffer) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM envelopes WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to delete envelope %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	b.log.Debug("marked envelopes as sent", slog.Int("count", len(ids)))
	return nil
}

func (b *SQLiteBuffer) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := b.now().Add(-maxAge).Format(timeLayout)

	result, err := b.db.ExecContext(ctx, "DELETE FROM envelopes WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old envelopes: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		b.log.Info("cleaned up old buffer entries", slog.Int64("deleted", deleted))
	}

	return nil
}

func (b *SQLiteBuffer) Close() error {
	return b.db.Close()
}

func (b *SQLiteBuffer) Count(ctx context.Context) (int64, error) {
	var count int64
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM envelopes").Scan(&count)
	return count, err
}

// CountByLevel reports how many buffered envelopes have each worst level.
func (b *SQLiteBuffer) CountByLevel(ctx context.Context) (map[gauge.Level]int64, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT worst_level, COUNT(*) FROM envelopes GROUP BY worst_level")
	if err != nil {
		return nil, fmt.Errorf("failed to count envelopes by level: %w", err)
	}
	defer rows.Close()

	counts := make(map[gauge.Level]int64)
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan level count: %w", err)
		}
		level, err := gauge.ParseLevel(name)
		if err != nil {
			return nil, err
		}
		counts[level] = count
	}

	return counts, rows.Err()
}

// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tuibeat/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MaxExerciseLogs is how many exercise logs are kept; older ones are pruned.
const MaxExerciseLogs = 100

// Preset errors.
var (
	ErrPresetLimit    = fmt.Errorf("preset limit of %d reached", model.MaxPresets)
	ErrPresetNotFound = errors.New("preset not found")
)

// Store wraps SQLite access for workout history and presets.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS exercise_logs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_seconds INTEGER NOT NULL,
			bpm INTEGER NOT NULL,
			sound_type TEXT NOT NULL,
			enable_count INTEGER NOT NULL,
			count_max INTEGER NOT NULL,
			preset TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS presets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			settings TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exercise_logs_ended_at ON exercise_logs(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendExerciseLog stores a finished session and prunes the history to the
// newest MaxExerciseLogs entries.
func (s *Store) AppendExerciseLog(ctx context.Context, entry model.ExerciseLog) (err error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO exercise_logs (id, started_at, ended_at, duration_seconds, bpm, sound_type, enable_count, count_max, preset)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.StartedAt.UTC().Format(timeLayout),
		entry.EndedAt.UTC().Format(timeLayout),
		entry.DurationSeconds,
		entry.BPM,
		string(entry.SoundType),
		entry.EnableCount,
		entry.CountMax,
		entry.Preset,
	)
	if err != nil {
		return fmt.Errorf("failed to insert exercise log: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM exercise_logs WHERE rowid NOT IN (
			SELECT rowid FROM exercise_logs ORDER BY ended_at DESC, rowid DESC LIMIT ?
		)`, MaxExerciseLogs)
	if err != nil {
		return fmt.Errorf("failed to prune exercise logs: %w", err)
	}
	return tx.Commit()
}

// ListExerciseLogs returns exercise logs oldest first. Last keeps only the
// newest N matches.
func (s *Store) ListExerciseLogs(ctx context.Context, filter model.HistoryFilter) ([]model.ExerciseLog, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	limit := -1
	if filter.Last > 0 {
		limit = filter.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, duration_seconds, bpm, sound_type, enable_count, count_max, preset
		FROM (
			SELECT rowid AS seq, * FROM exercise_logs
			WHERE %s
			ORDER BY ended_at DESC, rowid DESC
			LIMIT ?
		)
		ORDER BY ended_at ASC, seq ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var logs []model.ExerciseLog
	for rows.Next() {
		var entry model.ExerciseLog
		var startedAt, endedAt, sound string
		if err := rows.Scan(&entry.ID, &startedAt, &endedAt, &entry.DurationSeconds, &entry.BPM, &sound, &entry.EnableCount, &entry.CountMax, &entry.Preset); err != nil {
			return nil, err
		}
		if entry.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if entry.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, err
		}
		entry.SoundType = model.SoundType(sound)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// ClearExerciseLogs deletes all history and reports how many rows went.
func (s *Store) ClearExerciseLogs(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exercise_logs`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SavePreset stores settings under name. An existing preset with the same
// name is overwritten; a new one fails with ErrPresetLimit once
// model.MaxPresets exist.
func (s *Store) SavePreset(ctx context.Context, name string, settings model.Settings) (p model.Preset, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Preset{}, fmt.Errorf("preset name must not be empty")
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return model.Preset{}, fmt.Errorf("failed to encode preset: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Preset{}, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	existing, err := scanPreset(tx.QueryRowContext(ctx,
		`SELECT id, name, settings, created_at FROM presets WHERE name = ?`, name))
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `UPDATE presets SET settings = ? WHERE id = ?`, string(data), existing.ID)
		if err != nil {
			return model.Preset{}, err
		}
		existing.Settings = settings
		return existing, tx.Commit()
	case !errors.Is(err, ErrPresetNotFound):
		return model.Preset{}, err
	}

	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM presets`).Scan(&count); err != nil {
		return model.Preset{}, err
	}
	if count >= model.MaxPresets {
		err = ErrPresetLimit
		return model.Preset{}, err
	}
	p = model.Preset{
		ID:        uuid.NewString(),
		Name:      name,
		Settings:  settings,
		CreatedAt: s.now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO presets (id, name, settings, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, string(data), p.CreatedAt.Format(timeLayout))
	if err != nil {
		return model.Preset{}, fmt.Errorf("failed to insert preset: %w", err)
	}
	return p, tx.Commit()
}

// ListPresets returns presets in creation order.
func (s *Store) ListPresets(ctx context.Context) ([]model.Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, settings, created_at FROM presets ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var presets []model.Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return presets, nil
}

// GetPreset looks a preset up by name.
func (s *Store) GetPreset(ctx context.Context, name string) (model.Preset, error) {
	return scanPreset(s.db.QueryRowContext(ctx,
		`SELECT id, name, settings, created_at FROM presets WHERE name = ?`, strings.TrimSpace(name)))
}

// DeletePreset removes a preset by name.
func (s *Store) DeletePreset(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (model.Preset, error) {
	var p model.Preset
	var data, createdAt string
	if err := row.Scan(&p.ID, &p.Name, &data, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Preset{}, ErrPresetNotFound
		}
		return model.Preset{}, err
	}
	if err := json.Unmarshal([]byte(data), &p.Settings); err != nil {
		return model.Preset{}, fmt.Errorf("failed to decode preset %s: %w", p.Name, err)
	}
	parsed, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.Preset{}, err
	}
	p.CreatedAt = parsed
	return p, nil
}

// Package store keeps the parameters of the eye dancer that survive a
// restart (letter mapping, motor speed) and a journal of boots in a
// SQLite database. Reads are served from memory; every write goes to the
// database first.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver, no cgo on the Pi

	"lautenbacher.net/eyedancer/sequencer"
)

const (
	keyLetterMapping = "letter_mapping"
	keyMotorSpeed    = "motor_speed"
)

// Boot is one run of the application.
type Boot struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	StoppedAt time.Time `json:"stoppedAt,omitzero"`
	Version   string    `json:"version"`
}

type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	mapping string
	speed   uint8
}

// Open creates or opens dir/eyedancer.db and loads the parameters.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dsn := filepath.Join(dir, "eyedancer.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load parameters: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS params (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS boots (
			id         TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			stopped_at INTEGER,
			version    TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_boots_started ON boots(started_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) load() error {
	mapping, err := s.getParam(keyLetterMapping)
	if err != nil {
		return err
	}
	speed, err := s.getParam(keyMotorSpeed)
	if err != nil {
		return err
	}
	s.mapping = mapping
	if speed != "" {
		v, err := strconv.ParseUint(speed, 10, 8)
		if err != nil {
			return fmt.Errorf("stored motor speed %q: %w", speed, err)
		}
		s.speed = uint8(v)
	}
	return nil
}

// SeedLetterMapping stores mapping unless a mapping was stored before.
// It reports whether the seed was used.
func (s *Store) SeedLetterMapping(mapping string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapping != "" {
		return false, nil
	}
	if err := s.setParam(keyLetterMapping, mapping); err != nil {
		return false, err
	}
	s.mapping = mapping
	return true, nil
}

// LetterMapping returns the current letter-gesture mapping.
func (s *Store) LetterMapping() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapping
}

func (s *Store) SetLetterMapping(mapping string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setParam(keyLetterMapping, mapping); err != nil {
		return err
	}
	s.mapping = mapping
	return nil
}

func (s *Store) MotorSpeed() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speed
}

func (s *Store) SetMotorSpeed(speed uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setParam(keyMotorSpeed, strconv.Itoa(int(speed))); err != nil {
		return err
	}
	s.speed = speed
	return nil
}

// RecordBoot journals the start of a run and returns its id.
func (s *Store) RecordBoot(version string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO boots (id, started_at, version) VALUES (?, ?, ?)`,
		id, time.Now().UnixMilli(), version,
	)
	if err != nil {
		return "", fmt.Errorf("record boot: %w", err)
	}
	return id, nil
}

// RecordShutdown marks the run id as cleanly stopped.
func (s *Store) RecordShutdown(id string) error {
	res, err := s.db.Exec(`UPDATE boots SET stopped_at = ? WHERE id = ?`, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("record shutdown: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record shutdown: unknown boot %s", id)
	}
	return nil
}

// Boots returns the most recent runs, newest first.
func (s *Store) Boots(limit int) ([]Boot, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, stopped_at, version FROM boots ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boots []Boot
	for rows.Next() {
		var (
			b         Boot
			startedAt int64
			stoppedAt sql.NullInt64
		)
		if err := rows.Scan(&b.ID, &startedAt, &stoppedAt, &b.Version); err != nil {
			return nil, err
		}
		b.StartedAt = time.UnixMilli(startedAt)
		if stoppedAt.Valid {
			b.StoppedAt = time.UnixMilli(stoppedAt.Int64)
		}
		boots = append(boots, b)
	}
	return boots, rows.Err()
}

// GestureTable lists the gestures of the current mapping.
func (s *Store) GestureTable() []string {
	return sequencer.GestureTable(s.LetterMapping())
}

func (s *Store) getParam(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM params WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) setParam(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO params (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

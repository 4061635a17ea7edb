// Package journal persists dispatch and safety incidents in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alucardeht/logia/internal/logger"
)

var log = logger.ForComponent("journal")

type Kind string

const (
	KindDispatch Kind = "dispatch"
	KindSafety   Kind = "safety"
)

const DefaultLimit = 20

type Incident struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	RequestID  string    `json:"request_id,omitempty"`
	Department string    `json:"department,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Level      string    `json:"level,omitempty"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
}

type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the journal database at path. ":memory:"
// gives a private in-memory journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	log.Debug("journal opened", "path", path)
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS incidents (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		request_id TEXT,
		department TEXT,
		tool TEXT,
		outcome TEXT,
		level TEXT,
		summary TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_created ON incidents(created_at);
	CREATE INDEX IF NOT EXISTS idx_incidents_kind ON incidents(kind)
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores inc, filling ID and CreatedAt when they are empty.
func (j *Journal) Record(ctx context.Context, inc Incident) (*Incident, error) {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = time.Now()
	}
	inc.CreatedAt = inc.CreatedAt.UTC()

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO incidents (id, kind, request_id, department, tool, outcome, level, summary, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		inc.ID, string(inc.Kind), inc.RequestID, inc.Department, inc.Tool, inc.Outcome, inc.Level, inc.Summary, inc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record incident: %w", err)
	}
	return &inc, nil
}

// Recent returns up to limit incidents, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Incident, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := j.db.QueryContext(ctx,
		"SELECT id, kind, request_id, department, tool, outcome, level, summary, created_at FROM incidents ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	out := []Incident{}
	for rows.Next() {
		var inc Incident
		var kind string
		var requestID, department, tool, outcome, level sql.NullString
		if err := rows.Scan(&inc.ID, &kind, &requestID, &department, &tool, &outcome, &level, &inc.Summary, &inc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.Kind = Kind(kind)
		inc.RequestID = requestID.String
		inc.Department = department.String
		inc.Tool = tool.String
		inc.Outcome = outcome.String
		inc.Level = level.String
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}

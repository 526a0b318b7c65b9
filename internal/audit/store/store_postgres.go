package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"communitylink/internal/audit"
	id "communitylink/pkg/domain"
)

// Postgres appends audit events to the audit_log table via database/sql.
// The trail is write-mostly, so a plain connection pool is enough here.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres dials a lib/pq connection for the audit trail.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	return db, nil
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_log (
			seq        BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			actor_id   TEXT NOT NULL,
			action     TEXT NOT NULL,
			event_id   TEXT NOT NULL DEFAULT '',
			reason     TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure audit_log schema: %w", err)
	}
	return nil
}

func (s *Postgres) Append(ctx context.Context, event audit.Event) error {
	eventID := ""
	if !event.EventID.IsNil() {
		eventID = event.EventID.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (occurred_at, actor_id, action, event_id, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		event.Timestamp, event.ActorID.String(), string(event.Action), eventID, event.Reason,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListByEvent(ctx context.Context, eventID id.EventID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, actor_id, action, event_id, reason
		FROM audit_log WHERE event_id = $1 ORDER BY seq ASC`,
		eventID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			entry    audit.Event
			rawActor string
			rawEvent string
			action   string
		)
		if err := rows.Scan(&entry.Timestamp, &rawActor, &action, &rawEvent, &entry.Reason); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		entry.Action = audit.Action(action)
		if entry.ActorID, err = id.ParseUserID(rawActor); err != nil {
			return nil, fmt.Errorf("corrupt actor id %q: %w", rawActor, err)
		}
		if rawEvent != "" {
			if entry.EventID, err = id.ParseEventID(rawEvent); err != nil {
				return nil, fmt.Errorf("corrupt event id %q: %w", rawEvent, err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

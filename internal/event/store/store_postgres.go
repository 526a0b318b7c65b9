package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"communitylink/internal/event/models"
	id "communitylink/pkg/domain"
	"communitylink/pkg/platform/sentinel"
)

// Postgres persists events with the roster denormalized onto the event row
// (text[] of user IDs plus the enrolled counter), mirroring the document
// shape the mobile clients consume.
//
// The registration path runs inside a transaction that locks the event row
// with SELECT ... FOR UPDATE before evaluating the gates. Two racing
// registrations for the last spot serialize on the row lock, so the second
// one sees the updated counter and fails with capacity exhausted — strict
// capacity, no lost updates. The store stays pure I/O: the gate order and
// the mutations come from the model, evaluated while the lock is held.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed event store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the events table when missing. Local development and
// integration tests call this; production uses migrations.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL,
			name             TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			location         TEXT NOT NULL DEFAULT '',
			languages        TEXT[] NOT NULL DEFAULT '{}',
			tags             TEXT[] NOT NULL DEFAULT '{}',
			starts_at        TIMESTAMPTZ NOT NULL,
			capacity         INT,
			enrolled_count   INT NOT NULL DEFAULT 0,
			registered_users TEXT[] NOT NULL DEFAULT '{}',
			status           TEXT NOT NULL DEFAULT 'active',
			closed_at        TIMESTAMPTZ,
			closed_by        TEXT,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL,
			CONSTRAINT capacity_positive CHECK (capacity IS NULL OR capacity > 0),
			CONSTRAINT enrolled_within_capacity CHECK (capacity IS NULL OR enrolled_count <= capacity)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure events schema: %w", err)
	}
	return nil
}

const eventColumns = `id, owner_id, name, description, location, languages, tags,
	starts_at, capacity, enrolled_count, registered_users, status, closed_at, closed_by,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, event *models.Event) error {
	var capacity *int
	if limit, bounded := event.Capacity.Limit(); bounded {
		capacity = &limit
	}
	var closedBy *string
	if !event.ClosedBy.IsNil() {
		v := event.ClosedBy.String()
		closedBy = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		event.ID.String(), event.OwnerID.String(), event.Name, event.Description, event.Location,
		event.Languages, event.Tags, event.StartsAt, capacity, event.EnrolledCount,
		userIDStrings(event.RegisteredUsers), string(event.Status), event.ClosedAt, closedBy,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID.String())
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Register locks the event row, evaluates the registration gates, and writes
// the grown roster and bumped counter in the same transaction.
func (s *Postgres) Register(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error) {
	return s.mutateLocked(ctx, eventID, func(event *models.Event) error {
		if err := event.CanRegister(userID, now); err != nil {
			return err
		}
		event.ApplyRegistration(userID, now)
		return nil
	})
}

// Unregister locks the event row, checks membership, and writes the shrunk
// roster and decremented counter in the same transaction.
func (s *Postgres) Unregister(ctx context.Context, eventID id.EventID, userID id.UserID, now time.Time) (*models.Event, error) {
	return s.mutateLocked(ctx, eventID, func(event *models.Event) error {
		if err := event.CanUnregister(userID); err != nil {
			return err
		}
		event.ApplyUnregistration(userID, now)
		return nil
	})
}

func (s *Postgres) Close(ctx context.Context, eventID id.EventID, actorID id.UserID, now time.Time) (*models.Event, error) {
	return s.mutateLocked(ctx, eventID, func(event *models.Event) error {
		if err := event.CanClose(); err != nil {
			return err
		}
		event.ApplyClose(actorID, now)
		return nil
	})
}

func (s *Postgres) Reopen(ctx context.Context, eventID id.EventID, now time.Time) (*models.Event, error) {
	return s.mutateLocked(ctx, eventID, func(event *models.Event) error {
		if err := event.CanReopen(); err != nil {
			return err
		}
		event.ApplyReopen(now)
		return nil
	})
}

func (s *Postgres) Delete(ctx context.Context, eventID id.EventID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID.String())
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListUpcoming(ctx context.Context, now time.Time) ([]*models.Event, error) {
	// Day granularity: an event today is still upcoming.
	return s.list(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE starts_at >= date_trunc('day', $1::timestamptz)
		 ORDER BY starts_at ASC, created_at ASC`, now)
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Event, error) {
	return s.list(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = $1
		 ORDER BY starts_at ASC, created_at ASC`, ownerID.String())
}

func (s *Postgres) ListRegisteredBy(ctx context.Context, userID id.UserID) ([]*models.Event, error) {
	return s.list(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE registered_users @> ARRAY[$1::text]
		 ORDER BY starts_at ASC, created_at ASC`, userID.String())
}

// mutateLocked runs fn against the row-locked event and persists the result.
// Gate failures roll back without writing.
func (s *Postgres) mutateLocked(ctx context.Context, eventID id.EventID, fn func(*models.Event) error) (result *models.Event, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID.String())
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	if err = fn(event); err != nil {
		return nil, err
	}

	var closedBy *string
	if !event.ClosedBy.IsNil() {
		v := event.ClosedBy.String()
		closedBy = &v
	}
	_, err = tx.Exec(ctx, `
		UPDATE events
		SET enrolled_count = $2, registered_users = $3, status = $4,
		    closed_at = $5, closed_by = $6, updated_at = $7
		WHERE id = $1`,
		eventID.String(), event.EnrolledCount, userIDStrings(event.RegisteredUsers),
		string(event.Status), event.ClosedAt, closedBy, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return event, nil
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		eventID, ownerID string
		capacity         *int
		roster           []string
		status           string
		closedBy         *string
		event            models.Event
	)
	err := row.Scan(
		&eventID, &ownerID, &event.Name, &event.Description, &event.Location,
		&event.Languages, &event.Tags, &event.StartsAt, &capacity, &event.EnrolledCount,
		&roster, &status, &event.ClosedAt, &closedBy, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if event.ID, err = id.ParseEventID(eventID); err != nil {
		return nil, fmt.Errorf("corrupt event id %q: %w", eventID, err)
	}
	if event.OwnerID, err = id.ParseUserID(ownerID); err != nil {
		return nil, fmt.Errorf("corrupt owner id %q: %w", ownerID, err)
	}
	if capacity != nil {
		if event.Capacity, err = models.Finite(*capacity); err != nil {
			return nil, fmt.Errorf("corrupt capacity %d: %w", *capacity, err)
		}
	} else {
		event.Capacity = models.Unlimited()
	}
	event.RegisteredUsers = make([]id.UserID, 0, len(roster))
	for _, raw := range roster {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt roster entry %q: %w", raw, err)
		}
		event.RegisteredUsers = append(event.RegisteredUsers, userID)
	}
	event.Status = models.EventStatus(status)
	if !event.Status.IsValid() {
		return nil, fmt.Errorf("corrupt status %q", status)
	}
	if closedBy != nil {
		if event.ClosedBy, err = id.ParseUserID(*closedBy); err != nil {
			return nil, fmt.Errorf("corrupt closed_by %q: %w", *closedBy, err)
		}
	}
	return &event, nil
}

func userIDStrings(ids []id.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, u := range ids {
		out = append(out, u.String())
	}
	return out
}

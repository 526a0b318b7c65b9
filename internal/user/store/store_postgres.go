package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"communitylink/internal/user/models"
	id "communitylink/pkg/domain"
	"communitylink/pkg/platform/sentinel"
)

// Postgres persists user records. Pure I/O; role semantics live in the
// services that read them.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			role         TEXT NOT NULL DEFAULT 'user',
			display_name TEXT NOT NULL DEFAULT '',
			email        TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (s *Postgres) Save(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, role, display_name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email`,
		user.ID.String(), string(user.Role), user.DisplayName, user.Email, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	var (
		rawID, role string
		user        models.User
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, role, display_name, email, created_at FROM users WHERE id = $1`,
		userID.String(),
	).Scan(&rawID, &role, &user.DisplayName, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.ID, err = id.ParseUserID(rawID); err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", rawID, err)
	}
	user.Role = models.Role(role)
	return &user, nil
}

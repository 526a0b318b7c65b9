package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"communitylink/internal/profile/models"
	id "communitylink/pkg/domain"
	"communitylink/pkg/platform/sentinel"
)

// Postgres persists NGO profiles. The public directory is a projection of
// the same table, so profile and directory can never drift apart.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ngo_profiles (
			owner_id    TEXT PRIMARY KEY,
			ngo_name    TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			contact     TEXT NOT NULL,
			location    TEXT NOT NULL DEFAULT '',
			services    TEXT[] NOT NULL DEFAULT '{}',
			languages   TEXT[] NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure ngo_profiles schema: %w", err)
	}
	return nil
}

func (s *Postgres) Save(ctx context.Context, profile *models.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ngo_profiles (owner_id, ngo_name, description, contact, location, services, languages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id) DO UPDATE SET
			ngo_name = EXCLUDED.ngo_name,
			description = EXCLUDED.description,
			contact = EXCLUDED.contact,
			location = EXCLUDED.location,
			services = EXCLUDED.services,
			languages = EXCLUDED.languages,
			updated_at = EXCLUDED.updated_at`,
		profile.OwnerID.String(), profile.NGOName, profile.Description, profile.Contact,
		profile.Location, profile.Services, profile.Languages, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *Postgres) FindByOwner(ctx context.Context, ownerID id.UserID) (*models.Profile, error) {
	var (
		rawOwner string
		profile  models.Profile
	)
	err := s.pool.QueryRow(ctx, `
		SELECT owner_id, ngo_name, description, contact, location, services, languages, created_at, updated_at
		FROM ngo_profiles WHERE owner_id = $1`,
		ownerID.String(),
	).Scan(&rawOwner, &profile.NGOName, &profile.Description, &profile.Contact,
		&profile.Location, &profile.Services, &profile.Languages, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if profile.OwnerID, err = id.ParseUserID(rawOwner); err != nil {
		return nil, fmt.Errorf("corrupt owner id %q: %w", rawOwner, err)
	}
	return &profile, nil
}

func (s *Postgres) Exists(ctx context.Context, ownerID id.UserID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ngo_profiles WHERE owner_id = $1)`,
		ownerID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check profile exists: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT owner_id, ngo_name, description, location, services, languages, updated_at
		FROM ngo_profiles ORDER BY ngo_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	defer rows.Close()

	var entries []models.DirectoryEntry
	for rows.Next() {
		var (
			rawOwner string
			entry    models.DirectoryEntry
		)
		if err := rows.Scan(&rawOwner, &entry.NGOName, &entry.Description, &entry.Location,
			&entry.Services, &entry.Languages, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan directory entry: %w", err)
		}
		if entry.OwnerID, err = id.ParseUserID(rawOwner); err != nil {
			return nil, fmt.Errorf("corrupt owner id %q: %w", rawOwner, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

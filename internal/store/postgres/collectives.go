package postgres

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
)

const collectiveColumns = `id, type, slug, name, description, long_description, website, image, currency,
	is_active, host_collective_id, parent_collective_id, created_by_user_id, starts_at, ends_at, timezone,
	created_at, updated_at`

func scanCollective(row interface{ Scan(...any) error }) (*models.Collective, error) {
	var c models.Collective
	err := row.Scan(&c.ID, &c.Type, &c.Slug, &c.Name, &c.Description, &c.LongDescription, &c.Website, &c.Image,
		&c.Currency, &c.IsActive, &c.HostCollectiveID, &c.ParentCollectiveID, &c.CreatedByUserID,
		&c.StartsAt, &c.EndsAt, &c.Timezone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCollective(ctx context.Context, c *models.Collective) error {
	const q = `INSERT INTO collectives (type, slug, name, description, long_description, website, image, currency,
			is_active, host_collective_id, parent_collective_id, created_by_user_id, starts_at, ends_at, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`
	err := s.db(ctx).QueryRow(ctx, q, c.Type, c.Slug, c.Name, c.Description, c.LongDescription, c.Website, c.Image,
		c.Currency, c.IsActive, c.HostCollectiveID, c.ParentCollectiveID, c.CreatedByUserID,
		c.StartsAt, c.EndsAt, c.Timezone).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert collective: %w", err)
	}
	return nil
}

func (s *Store) GetCollectiveByID(ctx context.Context, id int64) (*models.Collective, error) {
	c, err := scanCollective(s.db(ctx).QueryRow(ctx, `SELECT `+collectiveColumns+` FROM collectives WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get collective")
	}
	return c, nil
}

func (s *Store) GetCollectiveBySlug(ctx context.Context, slug string) (*models.Collective, error) {
	c, err := scanCollective(s.db(ctx).QueryRow(ctx, `SELECT `+collectiveColumns+` FROM collectives WHERE slug = $1`, slug))
	if err != nil {
		return nil, notFound(err, "get collective by slug")
	}
	return c, nil
}

func (s *Store) UpdateCollective(ctx context.Context, c *models.Collective) error {
	const q = `UPDATE collectives SET type = $2, slug = $3, name = $4, description = $5, long_description = $6,
			website = $7, image = $8, currency = $9, is_active = $10, host_collective_id = $11,
			parent_collective_id = $12, starts_at = $13, ends_at = $14, timezone = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := s.db(ctx).QueryRow(ctx, q, c.ID, c.Type, c.Slug, c.Name, c.Description, c.LongDescription, c.Website,
		c.Image, c.Currency, c.IsActive, c.HostCollectiveID, c.ParentCollectiveID, c.StartsAt, c.EndsAt, c.Timezone).
		Scan(&c.UpdatedAt)
	if err != nil {
		return notFound(err, "update collective")
	}
	return nil
}

// DeleteCollective removes dependents explicitly so the cascade does not
// depend on foreign key actions.
func (s *Store) DeleteCollective(ctx context.Context, id int64) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.db(ctx)
		if _, err := db.Exec(ctx, `DELETE FROM members WHERE collective_id = $1 OR member_collective_id = $1`, id); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		if _, err := db.Exec(ctx, `DELETE FROM orders WHERE collective_id = $1 AND processed_at IS NULL`, id); err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		if _, err := db.Exec(ctx, `DELETE FROM tiers WHERE collective_id = $1`, id); err != nil {
			return fmt.Errorf("delete tiers: %w", err)
		}
		tag, err := db.Exec(ctx, `DELETE FROM collectives WHERE id = $1`, id)
		return mustAffect(tag.RowsAffected(), err, "delete collective")
	})
}

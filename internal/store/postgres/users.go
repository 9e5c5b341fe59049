package postgres

import (
	"context"

	"github.com/fundhub/backend/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, COALESCE(collective_id, 0), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.CollectiveID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (email, password_hash, first_name, last_name, collective_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := s.db(ctx).QueryRow(ctx, q, u.Email, u.Password, u.FirstName, u.LastName, nullID(u.CollectiveID)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return notFound(err, "insert user")
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, notFound(err, "get user by email")
	}
	return u, nil
}

func (s *Store) GetUserByCollectiveID(ctx context.Context, collectiveID int64) (*models.User, error) {
	u, err := scanUser(s.db(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE collective_id = $1`, collectiveID))
	if err != nil {
		return nil, notFound(err, "get user by collective")
	}
	return u, nil
}

func (s *Store) SetUserCollective(ctx context.Context, userID, collectiveID int64) error {
	tag, err := s.db(ctx).Exec(ctx, `UPDATE users SET collective_id = $2, updated_at = NOW() WHERE id = $1`, userID, collectiveID)
	return mustAffect(tag.RowsAffected(), err, "set user collective")
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/apperr"
	"github.com/fundhub/backend/pkg/utils"
)

// IdentityResolver finds users by email and creates them with their USER
// collective when they do not exist yet.
type IdentityResolver struct {
	store  store.Store
	logger *zap.Logger
}

// NewIdentityResolver creates a resolver.
func NewIdentityResolver(s store.Store, logger *zap.Logger) *IdentityResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityResolver{store: s, logger: logger}
}

// NewUser holds the fields of a user to create.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// FindOrCreateByEmail returns the user with email, creating it when absent.
func (r *IdentityResolver) FindOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := r.store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return r.Create(ctx, NewUser{Email: email, FirstName: firstName, LastName: lastName})
}

// Create inserts the user and its USER collective in one transaction.
func (r *IdentityResolver) Create(ctx context.Context, in NewUser) (*models.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:     email,
		Password:  in.PasswordHash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	name := u.FullName()
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	err = r.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.store.CreateUser(ctx, u); err != nil {
			return err
		}
		base := utils.Slugify(name)
		if base == "" {
			base = "user"
		}
		slug, err := store.UniqueSlug(ctx, r.store, base)
		if err != nil {
			return err
		}
		c := &models.Collective{
			Type:            models.CollectiveTypeUser,
			Slug:            slug,
			Name:            name,
			Currency:        models.DefaultCurrency,
			IsActive:        true,
			CreatedByUserID: &u.ID,
		}
		if err := r.store.CreateCollective(ctx, c); err != nil {
			return err
		}
		u.CollectiveID = c.ID
		return r.store.SetUserCollective(ctx, u.ID, c.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	r.logger.Info("user created", zap.Int64("user_id", u.ID), zap.Int64("collective_id", u.CollectiveID))
	return u, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Validation("An email address is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.Validation("Invalid email address: %s", email)
	}
	return email, nil
}

package service

import (
	"context"
	"errors"

	"github.com/berthd/berth/internal/berth/directory"
	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/pkg/cryptox"
	"github.com/berthd/berth/pkg/idx"
	"github.com/berthd/berth/pkg/slogx"
)

// AuthService implements the login flow: directory bind first, local
// credential second, nothing else.
type AuthService struct {
	Store     store.Store
	Directory directory.Binder
}

// Login authenticates a user. The directory is consulted first; on its
// first success for an unknown username a local record is provisioned with
// role "user" and default quotas. When the directory says no, for whatever
// reason, the locally stored password hash is checked instead (that path
// covers the built-in admin, which has no directory entry). Both failing is
// just ErrBadCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if username == "" || password == "" {
		return domain.User{}, domain.ErrBadCredentials
	}

	if s.Directory != nil && s.Directory.Bind(ctx, username, password) {
		user, err := s.provisionIfAbsent(ctx, username)
		if err != nil {
			return domain.User{}, err
		}
		return user, nil
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrBadCredentials
		}
		return domain.User{}, err
	}

	if user.PasswordHash == "" {
		// Directory-only account and the directory said no.
		return domain.User{}, domain.ErrBadCredentials
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Warn("local credential check failed", "username", username)
		return domain.User{}, domain.ErrBadCredentials
	}

	return user, nil
}

// provisionIfAbsent returns the local record for a directory-authenticated
// username, creating it on first login so the user has a stable id for
// container ownership. A concurrent first login is resolved by the unique
// username constraint: the loser re-reads the winner's record.
func (s *AuthService) provisionIfAbsent(ctx context.Context, username string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	user = domain.User{
		ID:       idx.New().String(),
		Username: username,
		Role:     domain.RoleUser,
		Quota:    domain.DefaultQuota(),
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return s.Store.Users().GetUserByUsername(ctx, username)
	}
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("provisioned directory user", "username", username, "user_id", user.ID)
	return user, nil
}

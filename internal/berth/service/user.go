package service

import (
	"context"
	"errors"
	"sort"

	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/pkg/cryptox"
	"github.com/berthd/berth/pkg/idx"
	"github.com/berthd/berth/pkg/slogx"
)

// UserService covers the admin-scoped user management operations. Callers
// are expected to have passed the admin gate already; the service itself
// guards only invariants that don't depend on the caller (such as
// self-deletion).
type UserService struct {
	Store   store.Store
	Cluster Gateway
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// CreateParams carries a new user definition from the admin form.
type CreateParams struct {
	Username string
	FullName string
	Password string
	Role     domain.Role
	Quota    domain.Quota
}

func (s *UserService) CreateUser(ctx context.Context, p CreateParams) (domain.User, error) {
	if p.Username == "" {
		return domain.User{}, domain.ErrValidation
	}

	user := domain.User{
		ID:       idx.New().String(),
		Username: p.Username,
		FullName: p.FullName,
		Role:     p.Role,
		Quota:    p.Quota,
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	if p.Password != "" {
		hash, err := cryptox.HashPassword(p.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.PasswordHash = hash
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UpdateParams carries admin edits to an existing user. Zero-valued quota
// fields keep their current values; an empty password leaves the credential
// unchanged.
type UpdateParams struct {
	Username      string
	FullName      string
	Password      string
	MaxContainers *int
	MaxCPUs       *float64
	MaxRAMMB      *int
	MaxStorageGB  *int
}

func (s *UserService) UpdateUser(ctx context.Context, userID string, p UpdateParams) (domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if p.Username != "" {
		user.Username = p.Username
	}
	if p.FullName != "" {
		user.FullName = p.FullName
	}
	if p.MaxContainers != nil {
		user.Quota.MaxContainers = *p.MaxContainers
	}
	if p.MaxCPUs != nil {
		user.Quota.MaxCPUs = *p.MaxCPUs
	}
	if p.MaxRAMMB != nil {
		user.Quota.MaxRAMMB = *p.MaxRAMMB
	}
	if p.MaxStorageGB != nil {
		user.Quota.MaxStorageGB = *p.MaxStorageGB
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateUser(ctx, user); err != nil {
			return err
		}
		if p.Password != "" {
			hash, err := cryptox.HashPassword(p.Password)
			if err != nil {
				return err
			}
			return tx.Users().UpdatePasswordHash(ctx, userID, hash)
		}
		return nil
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// DeleteUser removes a user. With removeStacks set, every stack attributed
// to the user is torn down on the cluster first, one removal call per
// distinct stack name. Admins cannot delete their own account.
//
// Returns how many stacks were removed.
func (s *UserService) DeleteUser(ctx context.Context, caller domain.User, userID string, removeStacks bool) (int, error) {
	log := slogx.FromContext(ctx)

	if caller.ID == userID {
		return 0, domain.ErrValidation
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	removed := 0
	if removeStacks {
		stacks, err := s.ownedStacks(ctx, userID)
		if err != nil {
			return 0, err
		}
		for _, stack := range stacks {
			if err := s.Cluster.RemoveStack(ctx, stack); err != nil {
				// Stop rather than delete the user with stacks still
				// running under an id nobody owns anymore.
				log.Error("stack removal failed during user delete",
					"stack", stack, "user_id", userID, "err", err)
				return removed, err
			}
			_ = s.Store.Deployments().DeleteDeploymentByStack(ctx, stack)
			removed++
		}
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().DeleteUser(ctx, userID)
	})
	if err != nil {
		return removed, err
	}

	log.Info("user deleted", "username", user.Username, "stacks_removed", removed)
	return removed, nil
}

// ownedStacks returns the distinct stack names attributed to a user. The
// registry is the primary source; the live container list fills in stacks
// deployed outside this panel and not tracked locally.
func (s *UserService) ownedStacks(ctx context.Context, userID string) ([]string, error) {
	seen := make(map[string]struct{})

	deployments, err := s.Store.Deployments().ListDeploymentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, d := range deployments {
		seen[d.StackName] = struct{}{}
	}

	containers, err := s.Cluster.Containers(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range containers {
		if c.Account() == userID && c.StackName() != "" {
			seen[c.StackName()] = struct{}{}
		}
	}

	stacks := make([]string, 0, len(seen))
	for stack := range seen {
		stacks = append(stacks, stack)
	}
	sort.Strings(stacks)
	return stacks, nil
}

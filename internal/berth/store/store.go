package store

import (
	"context"
	"errors"

	"github.com/berthd/berth/internal/berth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Users() Users
	Deployments() Deployments
	RootDomains() RootDomains

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn returns
	// an error and committing otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repositories plus
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// A username collision returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser rewrites username, full name, role and quotas, bumping
	// updated_at. The password hash is untouched.
	UpdateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the local credential and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser removes the user; owned deployment records cascade per
	// schema.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty reports whether no users exist yet (bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}

type Deployments interface {
	// CreateDeployment inserts a record. Uniqueness of both stack name and
	// domain is enforced by the storage layer in the same statement; either
	// collision returns ErrAlreadyExists and leaves existing rows unchanged.
	CreateDeployment(ctx context.Context, d domain.Deployment) error

	GetDeploymentByStack(ctx context.Context, stackName string) (domain.Deployment, error)

	// DomainExists reports whether any deployment already holds the domain.
	DomainExists(ctx context.Context, fqdn string) (bool, error)

	ListDeploymentsForUser(ctx context.Context, userID string) ([]domain.Deployment, error)
	ListAllDeployments(ctx context.Context) ([]domain.Deployment, error)

	DeleteDeploymentByStack(ctx context.Context, stackName string) error
}

type RootDomains interface {
	GetRootDomainByID(ctx context.Context, id string) (domain.RootDomain, error)
	GetRootDomainByName(ctx context.Context, name string) (domain.RootDomain, error)
	ListRootDomains(ctx context.Context) ([]domain.RootDomain, error)
	CreateRootDomain(ctx context.Context, d domain.RootDomain) error
	DeleteRootDomain(ctx context.Context, id string) error
}

package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/internal/berth/store/drivers/sqlite"
	"github.com/berthd/berth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newServiceStore(t *testing.T) store.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "service.db") + "?_busy_timeout=5000"
	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateUser(t *testing.T, s store.Store, username string, role domain.Role) domain.User {
	t.Helper()

	u := domain.User{
		ID:       idx.New().String(),
		Username: username,
		Role:     role,
		Quota:    domain.DefaultQuota(),
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

// fakeGateway is an in-memory stand-in for the cluster controller.
type fakeGateway struct {
	containers    []cluster.Container
	containersErr error

	deployErr error
	deploys   []cluster.DeployRequest

	removeErr error
	removed   []string
}

func (f *fakeGateway) Containers(ctx context.Context) ([]cluster.Container, error) {
	if f.containersErr != nil {
		return nil, f.containersErr
	}
	return f.containers, nil
}

func (f *fakeGateway) Deploy(ctx context.Context, template string, req cluster.DeployRequest) (cluster.DeployResult, error) {
	if f.deployErr != nil {
		return cluster.DeployResult{}, f.deployErr
	}
	f.deploys = append(f.deploys, req)
	return cluster.DeployResult{Stack: req.StackName}, nil
}

func (f *fakeGateway) RemoveStack(ctx context.Context, stackName string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, stackName)
	return nil
}

func containerFor(userID, stack string) cluster.Container {
	return cluster.Container{"stack_name": stack, "account": userID}
}

package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newDeployService(t *testing.T, s store.Store, gw *fakeGateway) *DeployService {
	t.Helper()
	return &DeployService{
		Store:     s,
		Cluster:   gw,
		Allocator: &Allocator{Store: s},
		Logger:    slog.New(slog.DiscardHandler),
	}
}

func seedRootDomain(t *testing.T, s store.Store, name string) {
	t.Helper()
	require.NoError(t, s.RootDomains().CreateRootDomain(context.Background(), domain.RootDomain{
		ID:   idx.New().String(),
		Name: name,
	}))
}

func TestDeployHappyPath(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	ctx := context.Background()

	user := mustCreateUser(t, s, "alice", domain.RoleUser)
	seedRootDomain(t, s, "example.com")
	gw := &fakeGateway{}
	svc := newDeployService(t, s, gw)

	d, err := svc.Deploy(ctx, user, DeployParams{
		Template:   "wordpress.yml",
		StackName:  "My Blog",
		RootDomain: "example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "myblog", d.StackName)
	require.Equal(t, "alice-myblog.example.com", d.Domain)
	require.Equal(t, user.ID, d.UserID)

	require.Len(t, gw.deploys, 1)
	req := gw.deploys[0]
	require.Equal(t, "myblog", req.StackName)
	require.Equal(t, "alice-myblog.example.com", req.Domain)
	require.Equal(t, "0.5", req.CPUs)
	require.Equal(t, "512M", req.RAM)
	require.Equal(t, user.ID, req.AccountID)

	// The record is persisted.
	got, err := s.Deployments().GetDeploymentByStack(ctx, "myblog")
	require.NoError(t, err)
	require.Equal(t, d.ID, got.ID)
}

func TestDeployQuotaGate(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	ctx := context.Background()

	user := mustCreateUser(t, s, "bob", domain.RoleUser)
	seedRootDomain(t, s, "example.com")

	// Live count equals the ceiling; multiple containers of the same stack
	// each count, as the controller reports them.
	gw := &fakeGateway{}
	for i := 0; i < user.Quota.MaxContainers; i++ {
		gw.containers = append(gw.containers, containerFor(user.ID, "stack"))
	}
	svc := newDeployService(t, s, gw)

	_, err := svc.Deploy(ctx, user, DeployParams{
		Template:   "ghost",
		StackName:  "new",
		RootDomain: "example.com",
	})
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	// Denied before any side effect: no controller deploy, no record.
	require.Empty(t, gw.deploys)
	all, err := s.Deployments().ListAllDeployments(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestDeployQuotaCountsOnlyOwnContainers(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)

	user := mustCreateUser(t, s, "carol", domain.RoleUser)
	other := mustCreateUser(t, s, "dave", domain.RoleUser)
	seedRootDomain(t, s, "example.com")

	gw := &fakeGateway{}
	for i := 0; i < 20; i++ {
		gw.containers = append(gw.containers, containerFor(other.ID, "noise"))
	}
	svc := newDeployService(t, s, gw)

	_, err := svc.Deploy(context.Background(), user, DeployParams{
		Template:   "ghost",
		StackName:  "mine",
		RootDomain: "example.com",
	})
	require.NoError(t, err)
}

func TestDeployRejectsUnknownRootDomain(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)

	user := mustCreateUser(t, s, "erin", domain.RoleUser)
	gw := &fakeGateway{}
	svc := newDeployService(t, s, gw)

	_, err := svc.Deploy(context.Background(), user, DeployParams{
		Template:   "ghost",
		StackName:  "blog",
		RootDomain: "attacker.example",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Empty(t, gw.deploys)
}

func TestDeployUpstreamErrorMakesNoRecord(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	ctx := context.Background()

	user := mustCreateUser(t, s, "frank", domain.RoleUser)
	seedRootDomain(t, s, "example.com")
	gw := &fakeGateway{deployErr: &cluster.Error{Op: "deploy", Message: "no space left"}}
	svc := newDeployService(t, s, gw)

	_, err := svc.Deploy(ctx, user, DeployParams{
		Template:   "ghost",
		StackName:  "blog",
		RootDomain: "example.com",
	})

	var ce *cluster.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "no space left", ce.Message)

	all, listErr := s.Deployments().ListAllDeployments(ctx)
	require.NoError(t, listErr)
	require.Empty(t, all)
}

func TestDeployDuplicateStackName(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	ctx := context.Background()

	user := mustCreateUser(t, s, "gina", domain.RoleUser)
	seedRootDomain(t, s, "example.com")
	gw := &fakeGateway{}
	svc := newDeployService(t, s, gw)

	_, err := svc.Deploy(ctx, user, DeployParams{
		Template: "ghost", StackName: "blog", RootDomain: "example.com",
	})
	require.NoError(t, err)

	// Same stack name again. The domain allocator sidesteps the domain
	// collision with a suffix, but the stack name itself collides at
	// commit time.
	_, err = svc.Deploy(ctx, user, DeployParams{
		Template: "ghost", StackName: "blog", RootDomain: "example.com",
	})
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestRemoveStackOwnership(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	ctx := context.Background()

	owner := mustCreateUser(t, s, "henry", domain.RoleUser)
	stranger := mustCreateUser(t, s, "iris", domain.RoleUser)
	admin := mustCreateUser(t, s, "root", domain.RoleAdmin)

	require.NoError(t, s.Deployments().CreateDeployment(ctx, domain.Deployment{
		ID:        idx.New().String(),
		StackName: "blog",
		Domain:    "henry-blog.example.com",
		UserID:    owner.ID,
	}))

	gw := &fakeGateway{}
	svc := newDeployService(t, s, gw)

	// A stranger may not remove it, and the denial is access-denied, not
	// not-found.
	err := svc.RemoveStack(ctx, stranger, "blog")
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Empty(t, gw.removed)

	// Untracked stacks are admin-only.
	err = svc.RemoveStack(ctx, stranger, "untracked")
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.RemoveStack(ctx, owner, "blog"))
	require.Equal(t, []string{"blog"}, gw.removed)

	_, err = s.Deployments().GetDeploymentByStack(ctx, "blog")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, svc.RemoveStack(ctx, admin, "untracked"))
	require.Equal(t, []string{"blog", "untracked"}, gw.removed)
}

func TestVisibleContainers(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", domain.RoleUser)
	bob := mustCreateUser(t, s, "bob", domain.RoleUser)
	admin := mustCreateUser(t, s, "root", domain.RoleAdmin)

	require.NoError(t, s.Deployments().CreateDeployment(ctx, domain.Deployment{
		ID:        idx.New().String(),
		StackName: "blog",
		Domain:    "alice-blog.example.com",
		UserID:    alice.ID,
	}))

	gw := &fakeGateway{containers: []cluster.Container{
		containerFor(alice.ID, "blog"),
		containerFor(bob.ID, "wiki"),
	}}
	svc := newDeployService(t, s, gw)

	mine, err := svc.VisibleContainers(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "blog", mine[0].StackName())
	require.Equal(t, "alice-blog.example.com", mine[0]["custom_domain"])

	all, err := svc.VisibleContainers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"Alice", "alice"},
		{"al.ice", "alice"},
		{"my-blog", "myblog"},
		{"My_Blog 2", "myblog2"},
		{"...", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestAllocateFreshDomain(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	a := &Allocator{Store: s}

	fqdn, err := a.Allocate(context.Background(), "alice", "blog", "example.com")
	require.NoError(t, err)
	require.Equal(t, "alice-blog.example.com", fqdn)

	// Punctuation in either name is stripped, not encoded.
	fqdn, err = a.Allocate(context.Background(), "al.ice", "my-blog", "example.com")
	require.NoError(t, err)
	require.Equal(t, "alice-myblog.example.com", fqdn)
}

func TestAllocateCollisionAppendsSuffix(t *testing.T) {
	t.Parallel()
	s := newServiceStore(t)
	ctx := context.Background()

	owner := domain.User{
		ID:       idx.New().String(),
		Username: "alice",
		Role:     domain.RoleUser,
		Quota:    domain.DefaultQuota(),
	}
	require.NoError(t, s.Users().CreateUser(ctx, owner))
	require.NoError(t, s.Deployments().CreateDeployment(ctx, domain.Deployment{
		ID:        idx.New().String(),
		StackName: "blog",
		Domain:    "alice-blog.example.com",
		UserID:    owner.ID,
	}))

	a := &Allocator{Store: s}
	fqdn, err := a.Allocate(ctx, "alice", "blog", "example.com")
	require.NoError(t, err)
	require.Regexp(t,
		regexp.MustCompile(`^alice-blog-[a-z0-9]{4}\.example\.com$`), fqdn)

	// The suffixed name must itself be free.
	exists, err := s.Deployments().DomainExists(ctx, fqdn)
	require.NoError(t, err)
	require.False(t, exists)
}

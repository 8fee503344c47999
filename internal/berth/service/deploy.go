package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/pkg/idx"
	"github.com/berthd/berth/pkg/slogx"
)

// Gateway is the slice of the cluster client the deploy service needs.
// *cluster.Client satisfies it; tests substitute fakes.
type Gateway interface {
	Containers(ctx context.Context) ([]cluster.Container, error)
	Deploy(ctx context.Context, template string, req cluster.DeployRequest) (cluster.DeployResult, error)
	RemoveStack(ctx context.Context, stackName string) error
}

// DeployService owns the deploy and remove flows: quota gate, domain
// allocation, the controller call, and the registry commit.
type DeployService struct {
	Store     store.Store
	Cluster   Gateway
	Allocator *Allocator
	Logger    *slog.Logger
}

// DeployParams is the validated user intent behind a deploy request.
type DeployParams struct {
	Template   string
	StackName  string
	RootDomain string
	CPUs       string
	RAM        string
}

// Deploy runs the full flow. Order matters: the quota gate and all
// validation happen before the controller call, so a denial leaves no
// partial side effects anywhere.
func (s *DeployService) Deploy(ctx context.Context, user domain.User, p DeployParams) (domain.Deployment, error) {
	log := slogx.FromContext(ctx)

	template := strings.TrimSuffix(strings.TrimSpace(p.Template), ".yml")
	stackName := sanitizeStackName(p.StackName)
	if template == "" || stackName == "" || p.RootDomain == "" {
		return domain.Deployment{}, domain.ErrValidation
	}
	cpus := p.CPUs
	if cpus == "" {
		cpus = "0.5"
	}
	ram := p.RAM
	if ram == "" {
		ram = "512M"
	}

	// The root domain must be on the admin-approved list; the request field
	// is user input, not a trusted dropdown value.
	if _, err := s.Store.RootDomains().GetRootDomainByName(ctx, p.RootDomain); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Deployment{}, domain.ErrValidation
		}
		return domain.Deployment{}, err
	}

	if err := s.checkQuota(ctx, user); err != nil {
		return domain.Deployment{}, err
	}

	fqdn, err := s.Allocator.Allocate(ctx, user.Username, stackName, p.RootDomain)
	if err != nil {
		return domain.Deployment{}, err
	}

	result, err := s.Cluster.Deploy(ctx, template, cluster.DeployRequest{
		StackName: stackName,
		Domain:    fqdn,
		CPUs:      cpus,
		RAM:       ram,
		AccountID: user.ID,
	})
	if err != nil {
		return domain.Deployment{}, err
	}

	deployment := domain.Deployment{
		ID:        idx.New().String(),
		StackName: stackName,
		Domain:    fqdn,
		UserID:    user.ID,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Deployments().CreateDeployment(ctx, deployment)
	})
	if err != nil {
		// The stack is already up on the cluster but the local record did
		// not commit. There is no two-phase commit across the two; report
		// loudly for manual reconciliation.
		log.Error("stack deployed upstream but registry commit failed",
			"stack", result.Stack, "domain", fqdn, "user_id", user.ID, "err", err)
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Deployment{}, domain.ErrDuplicate
		}
		return domain.Deployment{}, err
	}

	log.Info("stack deployed", "stack", stackName, "domain", fqdn, "user_id", user.ID)
	return deployment, nil
}

// checkQuota denies the deploy when the user's live container count has
// reached their ceiling. The controller's view is authoritative for what is
// actually running.
func (s *DeployService) checkQuota(ctx context.Context, user domain.User) error {
	containers, err := s.Cluster.Containers(ctx)
	if err != nil {
		return err
	}

	live := 0
	for _, c := range containers {
		if c.Account() == user.ID {
			live++
		}
	}
	if live >= user.Quota.MaxContainers {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// RemoveStack tears down a stack and deletes its registry record. Non-admin
// callers must own the stack; the registry is the ownership authority. A
// stack the registry does not know is admin-only, since ownership cannot be
// established.
func (s *DeployService) RemoveStack(ctx context.Context, user domain.User, stackName string) error {
	deployment, err := s.Store.Deployments().GetDeploymentByStack(ctx, stackName)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if !user.IsAdmin() {
			return domain.ErrForbidden
		}
	case err != nil:
		return err
	default:
		if !user.IsAdmin() && deployment.UserID != user.ID {
			return domain.ErrForbidden
		}
	}

	if err := s.Cluster.RemoveStack(ctx, stackName); err != nil {
		return err
	}

	if err := s.Store.Deployments().DeleteDeploymentByStack(ctx, stackName); err != nil {
		slogx.FromContext(ctx).Error("stack removed upstream but registry delete failed",
			"stack", stackName, "err", err)
		return err
	}
	return nil
}

// ListDeployments returns the caller's deployments, or every deployment for
// admins.
func (s *DeployService) ListDeployments(ctx context.Context, user domain.User) ([]domain.Deployment, error) {
	if user.IsAdmin() {
		return s.Store.Deployments().ListAllDeployments(ctx)
	}
	return s.Store.Deployments().ListDeploymentsForUser(ctx, user.ID)
}

// VisibleContainers filters the live container list down to what the caller
// may see and annotates each with its registry domain.
func (s *DeployService) VisibleContainers(ctx context.Context, user domain.User) ([]cluster.Container, error) {
	containers, err := s.Cluster.Containers(ctx)
	if err != nil {
		return nil, err
	}

	deployments, err := s.ListDeployments(ctx, user)
	if err != nil {
		return nil, err
	}
	domains := make(map[string]string, len(deployments))
	for _, d := range deployments {
		domains[d.StackName] = d.Domain
	}

	visible := make([]cluster.Container, 0, len(containers))
	for _, c := range containers {
		if !user.IsAdmin() && c.Account() != user.ID {
			continue
		}
		if fqdn, ok := domains[c.StackName()]; ok {
			c.Set("custom_domain", fqdn)
		}
		visible = append(visible, c)
	}
	return visible, nil
}

// OwnsStack reports whether the caller may operate on a stack's files and
// logs. Admins always may; others need a registry record naming them.
func (s *DeployService) OwnsStack(ctx context.Context, user domain.User, stackName string) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}
	deployment, err := s.Store.Deployments().GetDeploymentByStack(ctx, stackName)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deployment.UserID == user.ID, nil
}

// sanitizeStackName keeps alphanumerics, '-' and '_', lowercased. The same
// name is sent to the controller and stored locally so the two views never
// diverge.
func sanitizeStackName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '-' || r == '_' ||
			('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

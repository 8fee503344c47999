package sqlite

import (
	"context"
	"time"

	"github.com/berthd/berth/internal/berth/domain"
)

type deploymentsRepo struct {
	q dbtx
}

func (r *deploymentsRepo) CreateDeployment(ctx context.Context, d domain.Deployment) error {
	// Both UNIQUE constraints are checked in this single insert, so a
	// concurrent deploy racing for the same stack or domain loses cleanly
	// instead of overwriting.
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO deployments (id, stack_name, domain, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.StackName, d.Domain, d.UserID, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *deploymentsRepo) GetDeploymentByStack(ctx context.Context, stackName string) (domain.Deployment, error) {
	var d domain.Deployment
	err := r.q.QueryRowContext(ctx,
		`SELECT id, stack_name, domain, user_id, created_at
		 FROM deployments WHERE stack_name = ?`, stackName,
	).Scan(&d.ID, &d.StackName, &d.Domain, &d.UserID, &d.CreatedAt)
	if err != nil {
		return domain.Deployment{}, mapNotFound(err)
	}
	return d, nil
}

func (r *deploymentsRepo) DomainExists(ctx context.Context, fqdn string) (bool, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deployments WHERE domain = ?`, fqdn,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *deploymentsRepo) ListDeploymentsForUser(ctx context.Context, userID string) ([]domain.Deployment, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, stack_name, domain, user_id, created_at
		 FROM deployments WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectDeployments(rows)
}

func (r *deploymentsRepo) ListAllDeployments(ctx context.Context) ([]domain.Deployment, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, stack_name, domain, user_id, created_at
		 FROM deployments ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectDeployments(rows)
}

func (r *deploymentsRepo) DeleteDeploymentByStack(ctx context.Context, stackName string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM deployments WHERE stack_name = ?`, stackName)
	return err
}

func collectDeployments(rows interface {
	Next() bool
	Scan(...any) error
	Close() error
	Err() error
}) ([]domain.Deployment, error) {
	defer rows.Close()

	var out []domain.Deployment
	for rows.Next() {
		var d domain.Deployment
		if err := rows.Scan(&d.ID, &d.StackName, &d.Domain, &d.UserID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

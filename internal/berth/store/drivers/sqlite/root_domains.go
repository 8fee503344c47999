package sqlite

import (
	"context"
	"time"

	"github.com/berthd/berth/internal/berth/domain"
)

type rootDomainsRepo struct {
	q dbtx
}

func (r *rootDomainsRepo) GetRootDomainByID(ctx context.Context, id string) (domain.RootDomain, error) {
	var d domain.RootDomain
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM root_domains WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.CreatedAt)
	if err != nil {
		return domain.RootDomain{}, mapNotFound(err)
	}
	return d, nil
}

func (r *rootDomainsRepo) GetRootDomainByName(ctx context.Context, name string) (domain.RootDomain, error) {
	var d domain.RootDomain
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM root_domains WHERE name = ?`, name,
	).Scan(&d.ID, &d.Name, &d.CreatedAt)
	if err != nil {
		return domain.RootDomain{}, mapNotFound(err)
	}
	return d, nil
}

func (r *rootDomainsRepo) ListRootDomains(ctx context.Context) ([]domain.RootDomain, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, created_at FROM root_domains ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RootDomain
	for rows.Next() {
		var d domain.RootDomain
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *rootDomainsRepo) CreateRootDomain(ctx context.Context, d domain.RootDomain) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO root_domains (id, name, created_at) VALUES (?, ?, ?)`,
		d.ID, d.Name, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *rootDomainsRepo) DeleteRootDomain(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM root_domains WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/pkg/idx"
)

// DomainService manages the admin-curated list of root domains users may
// deploy under.
type DomainService struct {
	Store store.Store
}

func (s *DomainService) ListRootDomains(ctx context.Context) ([]domain.RootDomain, error) {
	return s.Store.RootDomains().ListRootDomains(ctx)
}

func (s *DomainService) AddRootDomain(ctx context.Context, name string) (domain.RootDomain, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || !strings.Contains(name, ".") {
		return domain.RootDomain{}, domain.ErrValidation
	}

	d := domain.RootDomain{
		ID:   idx.New().String(),
		Name: name,
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.RootDomains().CreateRootDomain(ctx, d)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.RootDomain{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.RootDomain{}, err
	}
	return d, nil
}

func (s *DomainService) DeleteRootDomain(ctx context.Context, id string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.RootDomains().DeleteRootDomain(ctx, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrNotFound
	}
	return err
}

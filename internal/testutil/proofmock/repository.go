package proofmock

import (
	"context"
	"sync"

	"privlend-backend/internal/domain/proof"

	"gorm.io/gorm"
)

// Repo is a function-backed mock that satisfies proof.Repository. When no
// function is set it falls back to an in-memory map, which covers most tests.
type Repo struct {
	CreateFn    func(ctx context.Context, r *proof.Record) error
	GetByHashFn func(ctx context.Context, proofHash string) (*proof.Record, error)

	mu      sync.Mutex
	records map[string]*proof.Record
}

func New() *Repo { return &Repo{records: make(map[string]*proof.Record)} }

func (m *Repo) Create(ctx context.Context, r *proof.Record) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]*proof.Record)
	}
	cp := *r
	m.records[r.ProofHash] = &cp
	return nil
}

func (m *Repo) GetByHash(ctx context.Context, proofHash string) (*proof.Record, error) {
	if m.GetByHashFn != nil {
		return m.GetByHashFn(ctx, proofHash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[proofHash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

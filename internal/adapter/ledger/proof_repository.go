package ledgeradapter

import (
	"context"

	"gorm.io/gorm"

	"privlend-backend/internal/domain/proof"
)

// ProofRepository persists proof registrations next to the ledger tables.
// Gorm's ErrRecordNotFound passes through untranslated; the gateway maps it.
type ProofRepository struct {
	db *gorm.DB
}

func NewProofRepository(db *gorm.DB) *ProofRepository {
	return &ProofRepository{db: db}
}

func (r *ProofRepository) Create(ctx context.Context, rec *proof.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *ProofRepository) GetByHash(ctx context.Context, proofHash string) (*proof.Record, error) {
	var rec proof.Record
	if err := r.db.WithContext(ctx).Where("proof_hash = ?", proofHash).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

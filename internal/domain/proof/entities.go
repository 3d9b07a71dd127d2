package proof

import (
	"context"
	"time"
)

// Record is the registration of an eligibility proof: the fact that a proof
// with this hash exists for an activity commitment. Registration must
// happen-before any application referencing the hash. The private attribute
// itself never appears here.
type Record struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	ProofHash          string    `gorm:"size:128;uniqueIndex:ux_proofs_hash;column:proof_hash" json:"proof_hash"`
	ActivityCommitment string    `gorm:"size:64;column:activity_commitment" json:"activity_commitment"`
	RegisteredAt       time.Time `gorm:"column:registered_at" json:"registered_at"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"-"`
}

func (Record) TableName() string { return "proof_records" }

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByHash(ctx context.Context, proofHash string) (*Record, error)
}

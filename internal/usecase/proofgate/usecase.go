package proofgate

import (
	"context"
	"errors"
	"time"

	"privlend-backend/internal/domain/fault"
	"privlend-backend/internal/domain/proof"
	"privlend-backend/pkg/field"

	"gorm.io/gorm"
)

// Verifier is the external zero-knowledge capability: "the private attribute
// behind this commitment is >= threshold". Opaque; only the boolean comes back.
type Verifier interface {
	Verify(ctx context.Context, proofHash, activityCommitment string, threshold uint64) (bool, error)
}

type Usecase struct {
	proofs   proof.Repository
	verifier Verifier
	timeout  time.Duration
}

func NewUsecase(proofs proof.Repository, v Verifier, timeout time.Duration) *Usecase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Usecase{proofs: proofs, verifier: v, timeout: timeout}
}

type RegisterInput struct {
	ProofHash          string `json:"proof_hash"`
	ActivityCommitment string `json:"activity_commitment"`
}

type ReceiptDTO struct {
	ProofHash          string    `json:"proof_hash"`
	ActivityCommitment string    `json:"activity_commitment"`
	RegisteredAt       time.Time `json:"registered_at"`
}

// Register records that a proof exists for a commitment. It must complete
// before any application referencing the same hash; an unregistered hash makes
// submission fail with ProofNotRegistered.
func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*ReceiptDTO, error) {
	if in.ProofHash == "" {
		return nil, fault.New(fault.InvalidArgument, "proof_hash is required")
	}
	if _, err := field.FromHex(in.ActivityCommitment); err != nil {
		return nil, fault.Wrap(fault.OutOfFieldRange, err, "activity_commitment is not a field element")
	}

	// Re-registering the same hash is harmless and returns the original
	// receipt; superseding happens by registering a NEW hash, never by
	// mutating an old record.
	existing, err := u.proofs.GetByHash(ctx, in.ProofHash)
	switch {
	case err == nil:
		return receipt(existing), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fault.Wrap(fault.LedgerUnavailable, err, "checking proof registration")
	}

	rec := &proof.Record{
		ProofHash:          in.ProofHash,
		ActivityCommitment: in.ActivityCommitment,
		RegisteredAt:       time.Now().UTC(),
	}
	if err := u.proofs.Create(ctx, rec); err != nil {
		return nil, fault.Wrap(fault.LedgerUnavailable, err, "storing proof registration")
	}
	return receipt(rec), nil
}

// VerifyEligibility gates ledger submissions. Returns only a boolean; the
// private attribute value is never returned or logged.
func (u *Usecase) VerifyEligibility(ctx context.Context, proofHash, activityCommitment string, minThreshold uint64) (bool, error) {
	rec, err := u.proofs.GetByHash(ctx, proofHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fault.New(fault.ProofNotRegistered, "proof %s has no prior registration", proofHash)
		}
		return false, fault.Wrap(fault.LedgerUnavailable, err, "loading proof registration")
	}
	if activityCommitment != "" && rec.ActivityCommitment != activityCommitment {
		return false, fault.New(fault.ProofInvalid, "proof %s was registered for a different commitment", proofHash)
	}

	vctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	ok, err := u.verifier.Verify(vctx, proofHash, rec.ActivityCommitment, minThreshold)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, fault.Wrap(fault.NetworkTimeout, err, "verifier call exceeded %s", u.timeout)
		}
		return false, fault.Wrap(fault.LedgerUnavailable, err, "verifier call failed")
	}
	return ok, nil
}

func receipt(rec *proof.Record) *ReceiptDTO {
	return &ReceiptDTO{
		ProofHash:          rec.ProofHash,
		ActivityCommitment: rec.ActivityCommitment,
		RegisteredAt:       rec.RegisteredAt,
	}
}

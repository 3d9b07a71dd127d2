package commitment

import (
	"errors"
	"io"
	"math/big"

	"privlend-backend/internal/domain/fault"
	"privlend-backend/pkg/field"
)

// Role tags keep identity and activity commitments in disjoint hash domains:
// the same secret can never produce the same digest under both roles.
var (
	identityRoleTag = field.FromUint64(1)
	activityRoleTag = field.FromUint64(2)
	// identity commitments bind no attribute; a fixed placeholder keeps the
	// preimage shape identical across both flavors
	scorePlaceholder = field.FromUint64(0)
	saltDomainTag    = field.FromUint64(3)
)

// Service derives and validates field-bounded commitments. It is stateless:
// the caller persists and reuses the identity commitment across sessions.
type Service struct {
	rand io.Reader
}

// NewService uses crypto/rand unless a reader is injected via NewServiceWithRand.
func NewService() *Service { return &Service{} }

// NewServiceWithRand injects the entropy source, for tests that force the
// rejection-sampling retry path.
func NewServiceWithRand(r io.Reader) *Service { return &Service{rand: r} }

// DeriveIdentity returns the owner's permanent pseudonym. Deterministic: the
// same ownerSecret always yields the same commitment, so every session keys
// the owner's applications identically. The salt is itself derived from the
// secret rather than drawn at random.
func (s *Service) DeriveIdentity(ownerSecret *big.Int) (field.Element, error) {
	sec, err := s.ValidateFieldElement(ownerSecret)
	if err != nil {
		return field.Element{}, err
	}
	salt := field.Hash(saltDomainTag, sec)
	return field.Hash(identityRoleTag, scorePlaceholder, sec, salt), nil
}

// DeriveActivity binds a private attribute (e.g. an activity score) to a fresh
// salt. Re-proving with a new salt supersedes, never deletes, prior
// commitments.
func (s *Service) DeriveActivity(privateAttribute, ownerSecret, salt *big.Int) (field.Element, error) {
	attr, err := s.ValidateFieldElement(privateAttribute)
	if err != nil {
		return field.Element{}, err
	}
	sec, err := s.ValidateFieldElement(ownerSecret)
	if err != nil {
		return field.Element{}, err
	}
	slt, err := s.ValidateFieldElement(salt)
	if err != nil {
		return field.Element{}, err
	}
	return field.Hash(activityRoleTag, attr, sec, slt), nil
}

// GenerateSalt draws a cryptographically random field element by rejection
// sampling; out-of-field samples are retried, never reduced.
func (s *Service) GenerateSalt() (field.Element, error) {
	salt, err := field.NewSalt(s.rand)
	if err != nil {
		return field.Element{}, fault.Wrap(fault.LedgerUnavailable, err, "salt generation failed")
	}
	return salt, nil
}

// ValidateFieldElement is the single enforcement point for the field bound:
// every external value (salt, attribute, secret) passes through here before
// it reaches a hash. Out-of-range input is terminal, the caller must resubmit
// a corrected value.
func (s *Service) ValidateFieldElement(v *big.Int) (field.Element, error) {
	e, err := field.FromBig(v)
	if err != nil {
		if errors.Is(err, field.ErrOutOfRange) {
			return field.Element{}, fault.Wrap(fault.OutOfFieldRange, err,
				"value must satisfy 0 <= v < %s", field.Modulus().String())
		}
		return field.Element{}, err
	}
	return e, nil
}

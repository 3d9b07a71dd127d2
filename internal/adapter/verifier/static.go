// Package verifier provides the development/test stand-in for the external
// zero-knowledge verifier capability. The real verifier is an external
// collaborator (a groth16 circuit verifying "score >= threshold" against a
// MiMC commitment); this adapter reproduces only its observable contract:
// a boolean per (proof, commitment, threshold), no attribute leakage.
package verifier

import (
	"context"
	"sync"
	"time"
)

type attestation struct {
	commitment string
	score      uint64
}

// Static is an in-memory verifier. Attest seeds it with the score a proof was
// generated against; Verify answers threshold checks without ever exposing
// the score to callers of the gateway.
type Static struct {
	mu      sync.RWMutex
	proofs  map[string]attestation
	latency time.Duration
}

func NewStatic() *Static {
	return &Static{proofs: make(map[string]attestation)}
}

// WithLatency makes every Verify sleep, for exercising gateway timeouts.
func (s *Static) WithLatency(d time.Duration) *Static {
	s.latency = d
	return s
}

func (s *Static) Attest(proofHash, activityCommitment string, score uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofs[proofHash] = attestation{commitment: activityCommitment, score: score}
}

func (s *Static) Verify(ctx context.Context, proofHash, activityCommitment string, threshold uint64) (bool, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	s.mu.RLock()
	att, ok := s.proofs[proofHash]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if att.commitment != activityCommitment {
		return false, nil
	}
	return att.score >= threshold, nil
}

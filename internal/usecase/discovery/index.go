// Package discovery reconstructs enumerable views over a ledger that only
// supports point lookups keyed by (loan_id, commitment). It keeps an
// append-only log of learned (commitment, loan) facts plus a two-way map
// derived from it. The index is never authoritative: it starts empty on every
// restart, and a commitment that has never self-discovered stays invisible to
// lender queries until WarmFromEvents replays the ledger event log.
package discovery

import (
	"context"
	"sync"
	"time"

	"privlend-backend/internal/domain/application"
	"privlend-backend/internal/domain/fault"
	"privlend-backend/internal/domain/index"
	domainledger "privlend-backend/internal/domain/ledger"
)

// Hit pairs a learned index fact with the live application behind it.
type Hit struct {
	LoanID             uint64
	IdentityCommitment string
	Application        *application.Application
}

type Index struct {
	ledger        domainledger.Ledger
	lookupTimeout time.Duration
	now           func() time.Time

	mu           sync.RWMutex
	entries      []index.Entry
	byCommitment map[string][]uint64
	byLoan       map[uint64][]string
	seen         map[string]map[uint64]struct{}
}

func NewIndex(l domainledger.Ledger, lookupTimeout time.Duration) *Index {
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &Index{
		ledger:        l,
		lookupTimeout: lookupTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		byCommitment:  make(map[string][]uint64),
		byLoan:        make(map[uint64][]string),
		seen:          make(map[string]map[uint64]struct{}),
	}
}

// SelfDiscover scans every known loan id for an application by this
// commitment, learning each hit. This is how an owner lists their own
// applications, and it is also the only organic way the index ever learns
// about a commitment: until an owner self-discovers, no lender query can see
// their applications even though the ledger rows exist.
func (ix *Index) SelfDiscover(ctx context.Context, identityCommitment string) ([]Hit, error) {
	maxID, err := ix.ledger.MaxLoanID(ctx)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for loanID := uint64(1); loanID <= maxID; loanID++ {
		app, err := ix.lookup(ctx, loanID, identityCommitment)
		if err != nil {
			if fault.Is(err, fault.NotFound) {
				continue
			}
			return nil, err
		}
		ix.learn(identityCommitment, loanID)
		hits = append(hits, Hit{LoanID: loanID, IdentityCommitment: identityCommitment, Application: app})
	}
	return hits, nil
}

// LenderDiscover checks every commitment the index has ever learned, from any
// owner's self-discovery across any loan, against the given loan. Hits that
// were learned through other loans are recorded for this one too.
func (ix *Index) LenderDiscover(ctx context.Context, loanID uint64) ([]Hit, error) {
	// snapshot under read lock; ledger lookups run without holding it
	ix.mu.RLock()
	commitments := make([]string, 0, len(ix.seen))
	for c := range ix.seen {
		commitments = append(commitments, c)
	}
	ix.mu.RUnlock()

	var hits []Hit
	for _, c := range commitments {
		app, err := ix.lookup(ctx, loanID, c)
		if err != nil {
			if fault.Is(err, fault.NotFound) {
				continue
			}
			return nil, err
		}
		ix.learn(c, loanID)
		hits = append(hits, Hit{LoanID: loanID, IdentityCommitment: c, Application: app})
	}
	return hits, nil
}

// WarmFromEvents replays the ledger's append-only event log, rebuilding full
// coverage after a restart. This closes the self-discovery liveness gap for
// deployments whose ledger exposes its event feed.
func (ix *Index) WarmFromEvents(ctx context.Context) (int, error) {
	events, err := ix.ledger.EventsSince(ctx, 0)
	if err != nil {
		return 0, err
	}
	learned := 0
	for _, ev := range events {
		if ev.Kind != domainledger.EventApplicationSubmitted || ev.IdentityCommitment == "" {
			continue
		}
		if ix.learn(ev.IdentityCommitment, ev.LoanID) {
			learned++
		}
	}
	return learned, nil
}

// Entries returns a copy of the append-only log, oldest first.
func (ix *Index) Entries() []index.Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]index.Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// LoansOf returns the loan ids learned for a commitment.
func (ix *Index) LoansOf(identityCommitment string) []uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]uint64, len(ix.byCommitment[identityCommitment]))
	copy(out, ix.byCommitment[identityCommitment])
	return out
}

// CommitmentsOf returns the commitments learned for a loan.
func (ix *Index) CommitmentsOf(loanID uint64) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, len(ix.byLoan[loanID]))
	copy(out, ix.byLoan[loanID])
	return out
}

func (ix *Index) lookup(ctx context.Context, loanID uint64, identityCommitment string) (*application.Application, error) {
	lctx, cancel := context.WithTimeout(ctx, ix.lookupTimeout)
	defer cancel()
	return ix.ledger.GetApplication(lctx, loanID, identityCommitment)
}

// learn appends one fact; duplicates are no-ops. Entries are independent
// facts, so no cross-entry ordering guarantee is needed.
func (ix *Index) learn(identityCommitment string, loanID uint64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	loans, ok := ix.seen[identityCommitment]
	if !ok {
		loans = make(map[uint64]struct{})
		ix.seen[identityCommitment] = loans
	}
	if _, dup := loans[loanID]; dup {
		return false
	}
	loans[loanID] = struct{}{}

	ix.entries = append(ix.entries, index.Entry{
		IdentityCommitment: identityCommitment,
		LoanID:             loanID,
		DiscoveredAt:       ix.now(),
	})
	ix.byCommitment[identityCommitment] = append(ix.byCommitment[identityCommitment], loanID)
	ix.byLoan[loanID] = append(ix.byLoan[loanID], identityCommitment)
	return true
}

package deadline

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"privlend-backend/internal/domain/ledger"
	"privlend-backend/internal/usecase/discovery"
)

// Scheduler is an optional optimization: it periodically re-derives overdue
// state for every application the commitment index knows about and fires a
// notification once per newly overdue application. It is advisory only:
// correctness never depends on it, because the reveal gate recomputes the
// overdue predicate itself.
type Scheduler struct {
	ledger   ledger.Ledger
	index    *discovery.Index
	interval time.Duration
	notify   func(loanID uint64, identityCommitment string)
	now      func() time.Time

	mu       sync.Mutex
	notified map[string]struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewScheduler(l ledger.Ledger, ix *discovery.Index, interval time.Duration, notify func(loanID uint64, identityCommitment string)) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if notify == nil {
		notify = func(loanID uint64, identityCommitment string) {
			log.Printf("deadline: loan %d application %s is overdue", loanID, identityCommitment)
		}
	}
	return &Scheduler{
		ledger:   l,
		index:    ix,
		interval: interval,
		notify:   notify,
		now:      func() time.Time { return time.Now().UTC() },
		notified: make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass over the index's learned entries. Exported so tests and
// operational tooling can trigger it without the ticker.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	for _, entry := range s.index.Entries() {
		app, err := s.ledger.GetApplication(ctx, entry.LoanID, entry.IdentityCommitment)
		if err != nil {
			continue // advisory: skip and retry next sweep
		}
		if !IsOverdue(app, now) {
			continue
		}
		key := entry.IdentityCommitment + "@" + strconv.FormatUint(entry.LoanID, 10)
		s.mu.Lock()
		_, already := s.notified[key]
		if !already {
			s.notified[key] = struct{}{}
		}
		s.mu.Unlock()
		if !already {
			s.notify(entry.LoanID, entry.IdentityCommitment)
		}
	}
}

package ledger

import (
	"context"
	"time"

	"privlend-backend/internal/domain/application"
	"privlend-backend/internal/domain/offer"
	"privlend-backend/pkg/money"
)

// Terms are the lender-chosen parameters of a new offer.
type Terms struct {
	AmountPerSlot   money.Amount
	TotalSlots      uint32
	InterestBps     uint32
	RepaymentPeriod time.Duration
	MinScore        uint64
}

type EventKind string

const (
	EventOfferCreated         EventKind = "offer_created"
	EventOfferClosed          EventKind = "offer_closed"
	EventApplicationSubmitted EventKind = "application_submitted"
	EventApplicationApproved  EventKind = "application_approved"
	EventApplicationRepaid    EventKind = "application_repaid"
	EventApplicationDefaulted EventKind = "application_defaulted"
)

// Event is one row of the ledger's append-only event log. Replaying the log
// rebuilds full commitment-index coverage after a restart, closing the
// discovery liveness gap.
type Event struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TraceID            string    `gorm:"size:32;column:trace_id" json:"trace_id"`
	Kind               EventKind `gorm:"size:32;column:kind" json:"kind"`
	LoanID             uint64    `gorm:"column:loan_id;index:idx_events_loan" json:"loan_id"`
	IdentityCommitment string    `gorm:"size:64;column:identity_commitment" json:"identity_commitment,omitempty"`
	OccurredAt         time.Time `gorm:"column:occurred_at" json:"occurred_at"`
}

func (Event) TableName() string { return "ledger_events" }

// Account tracks a token balance per address. Transfers only ever happen
// inside the same transaction as the state transition that caused them.
type Account struct {
	Address   string       `gorm:"primaryKey;size:64;column:address" json:"address"`
	Balance   money.Amount `gorm:"column:balance" json:"balance"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"-"`
}

func (Account) TableName() string { return "accounts" }

// Ledger is the authoritative store of offers and applications. Every mutation
// is a single atomic transaction: the state transition and any fund transfer
// commit together or not at all. Reads are point lookups only; there is no
// reverse or range index over commitments, which is exactly what the off-chain
// commitment index exists to compensate for.
type Ledger interface {
	CreateOffer(ctx context.Context, lender string, t Terms) (uint64, error)
	CloseOffer(ctx context.Context, caller string, loanID uint64) error
	SubmitApplication(ctx context.Context, loanID uint64, identityCommitment, proofHash, borrowerAddress string) error
	Approve(ctx context.Context, caller string, loanID uint64, identityCommitment string) error
	Repay(ctx context.Context, caller string, loanID uint64, identityCommitment string) (money.Amount, error)
	RevealIdentity(ctx context.Context, caller string, loanID uint64, identityCommitment string) (string, error)

	GetOffer(ctx context.Context, loanID uint64) (*offer.Offer, error)
	GetApplication(ctx context.Context, loanID uint64, identityCommitment string) (*application.Application, error)
	ListOpenOffers(ctx context.Context) ([]offer.Offer, error)
	MaxLoanID(ctx context.Context) (uint64, error)
	EventsSince(ctx context.Context, afterID uint64) ([]Event, error)

	Deposit(ctx context.Context, address string, amount money.Amount) error
	BalanceOf(ctx context.Context, address string) (money.Amount, error)
}

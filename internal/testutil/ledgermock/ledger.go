package ledgermock

import (
	"context"
	"errors"

	"privlend-backend/internal/domain/application"
	"privlend-backend/internal/domain/ledger"
	"privlend-backend/internal/domain/offer"
	"privlend-backend/pkg/money"
)

var errNotImplemented = errors.New("ledgermock: not implemented")

// Ledger is a function-backed mock satisfying ledger.Ledger. Only the methods
// a test sets are usable; the rest fail loudly.
type Ledger struct {
	CreateOfferFn       func(ctx context.Context, lender string, t ledger.Terms) (uint64, error)
	CloseOfferFn        func(ctx context.Context, caller string, loanID uint64) error
	SubmitApplicationFn func(ctx context.Context, loanID uint64, identityCommitment, proofHash, borrowerAddress string) error
	ApproveFn           func(ctx context.Context, caller string, loanID uint64, identityCommitment string) error
	RepayFn             func(ctx context.Context, caller string, loanID uint64, identityCommitment string) (money.Amount, error)
	RevealIdentityFn    func(ctx context.Context, caller string, loanID uint64, identityCommitment string) (string, error)
	GetOfferFn          func(ctx context.Context, loanID uint64) (*offer.Offer, error)
	GetApplicationFn    func(ctx context.Context, loanID uint64, identityCommitment string) (*application.Application, error)
	ListOpenOffersFn    func(ctx context.Context) ([]offer.Offer, error)
	MaxLoanIDFn         func(ctx context.Context) (uint64, error)
	EventsSinceFn       func(ctx context.Context, afterID uint64) ([]ledger.Event, error)
	DepositFn           func(ctx context.Context, address string, amount money.Amount) error
	BalanceOfFn         func(ctx context.Context, address string) (money.Amount, error)
}

func (m *Ledger) CreateOffer(ctx context.Context, lender string, t ledger.Terms) (uint64, error) {
	if m.CreateOfferFn != nil {
		return m.CreateOfferFn(ctx, lender, t)
	}
	return 0, errNotImplemented
}

func (m *Ledger) CloseOffer(ctx context.Context, caller string, loanID uint64) error {
	if m.CloseOfferFn != nil {
		return m.CloseOfferFn(ctx, caller, loanID)
	}
	return errNotImplemented
}

func (m *Ledger) SubmitApplication(ctx context.Context, loanID uint64, identityCommitment, proofHash, borrowerAddress string) error {
	if m.SubmitApplicationFn != nil {
		return m.SubmitApplicationFn(ctx, loanID, identityCommitment, proofHash, borrowerAddress)
	}
	return errNotImplemented
}

func (m *Ledger) Approve(ctx context.Context, caller string, loanID uint64, identityCommitment string) error {
	if m.ApproveFn != nil {
		return m.ApproveFn(ctx, caller, loanID, identityCommitment)
	}
	return errNotImplemented
}

func (m *Ledger) Repay(ctx context.Context, caller string, loanID uint64, identityCommitment string) (money.Amount, error) {
	if m.RepayFn != nil {
		return m.RepayFn(ctx, caller, loanID, identityCommitment)
	}
	return money.Amount{}, errNotImplemented
}

func (m *Ledger) RevealIdentity(ctx context.Context, caller string, loanID uint64, identityCommitment string) (string, error) {
	if m.RevealIdentityFn != nil {
		return m.RevealIdentityFn(ctx, caller, loanID, identityCommitment)
	}
	return "", errNotImplemented
}

func (m *Ledger) GetOffer(ctx context.Context, loanID uint64) (*offer.Offer, error) {
	if m.GetOfferFn != nil {
		return m.GetOfferFn(ctx, loanID)
	}
	return nil, errNotImplemented
}

func (m *Ledger) GetApplication(ctx context.Context, loanID uint64, identityCommitment string) (*application.Application, error) {
	if m.GetApplicationFn != nil {
		return m.GetApplicationFn(ctx, loanID, identityCommitment)
	}
	return nil, errNotImplemented
}

func (m *Ledger) ListOpenOffers(ctx context.Context) ([]offer.Offer, error) {
	if m.ListOpenOffersFn != nil {
		return m.ListOpenOffersFn(ctx)
	}
	return nil, errNotImplemented
}

func (m *Ledger) MaxLoanID(ctx context.Context) (uint64, error) {
	if m.MaxLoanIDFn != nil {
		return m.MaxLoanIDFn(ctx)
	}
	return 0, errNotImplemented
}

func (m *Ledger) EventsSince(ctx context.Context, afterID uint64) ([]ledger.Event, error) {
	if m.EventsSinceFn != nil {
		return m.EventsSinceFn(ctx, afterID)
	}
	return nil, errNotImplemented
}

func (m *Ledger) Deposit(ctx context.Context, address string, amount money.Amount) error {
	if m.DepositFn != nil {
		return m.DepositFn(ctx, address, amount)
	}
	return errNotImplemented
}

func (m *Ledger) BalanceOf(ctx context.Context, address string) (money.Amount, error) {
	if m.BalanceOfFn != nil {
		return m.BalanceOfFn(ctx, address)
	}
	return money.Amount{}, errNotImplemented
}

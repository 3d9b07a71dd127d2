package disclosure

import (
	"context"
	"time"

	"privlend-backend/internal/domain/application"
	"privlend-backend/internal/domain/fault"
	"privlend-backend/internal/domain/ledger"
	"privlend-backend/internal/usecase/deadline"
)

// Usecase is the thin authorization layer in front of the ledger's identity
// reveal. It recomputes the overdue predicate from current state at every
// call and keeps NO disclosure-tracking state of its own: the ledger's
// status=defaulted transition already encodes "revealed", and a second flag
// could only drift out of sync with it.
type Usecase struct {
	ledger ledger.Ledger
	now    func() time.Time
}

func NewUsecase(l ledger.Ledger) *Usecase {
	return &Usecase{ledger: l, now: func() time.Time { return time.Now().UTC() }}
}

func NewUsecaseWithClock(l ledger.Ledger, now func() time.Time) *Usecase {
	return &Usecase{ledger: l, now: now}
}

type DisclosureDTO struct {
	LoanID             uint64 `json:"loan_id"`
	IdentityCommitment string `json:"identity_commitment"`
	BorrowerAddress    string `json:"borrower_address"`
	Status             string `json:"status"`
}

// Reveal returns the applicant's real address to the loan's lender once the
// repayment deadline has passed. Idempotent: repeat calls return the same
// address without re-transitioning state.
func (u *Usecase) Reveal(ctx context.Context, caller string, loanID uint64, identityCommitment string) (*DisclosureDTO, error) {
	o, err := u.ledger.GetOffer(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if o.Lender != caller {
		return nil, fault.New(fault.NotLender, "caller %s is not the lender of loan %d", caller, loanID)
	}

	app, err := u.ledger.GetApplication(ctx, loanID, identityCommitment)
	if err != nil {
		return nil, err
	}
	if app.Status == application.StatusApproved && !deadline.IsOverdue(app, u.now()) {
		dl := "unset"
		if app.RepaymentDeadline != nil {
			dl = app.RepaymentDeadline.Format(time.RFC3339)
		}
		return nil, fault.New(fault.NotYetOverdue, "deadline at %s, now is %s",
			dl, u.now().Format(time.RFC3339))
	}

	// The ledger re-checks every precondition authoritatively inside its own
	// transaction; the checks above only exist to fail fast with a precise
	// message before a network round trip.
	addr, err := u.ledger.RevealIdentity(ctx, caller, loanID, identityCommitment)
	if err != nil {
		return nil, err
	}
	return &DisclosureDTO{
		LoanID:             loanID,
		IdentityCommitment: identityCommitment,
		BorrowerAddress:    addr,
		Status:             string(application.StatusDefaulted),
	}, nil
}

package lending

import (
	"context"
	"time"

	"privlend-backend/internal/domain/application"
	"privlend-backend/internal/domain/fault"
	"privlend-backend/internal/domain/ledger"
	"privlend-backend/internal/domain/offer"
	"privlend-backend/internal/usecase/deadline"
	"privlend-backend/pkg/field"
	"privlend-backend/pkg/money"
)

// Gate is the slice of the proof gateway this usecase needs.
type Gate interface {
	VerifyEligibility(ctx context.Context, proofHash, activityCommitment string, minThreshold uint64) (bool, error)
}

type Usecase struct {
	ledger ledger.Ledger
	gate   Gate
	// AllowLateRepayment: when false, repayment is rejected as soon as the
	// deadline passes even if the lender has not yet triggered a default.
	// The ledger itself always accepts while approved (grace-until-default);
	// this flag layers the stricter policy on top.
	allowLateRepayment bool
	now                func() time.Time
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option {
	return func(u *Usecase) { u.now = now }
}

func RejectLateRepayment() Option {
	return func(u *Usecase) { u.allowLateRepayment = false }
}

func NewUsecase(l ledger.Ledger, gate Gate, opts ...Option) *Usecase {
	u := &Usecase{
		ledger:             l,
		gate:               gate,
		allowLateRepayment: true,
		now:                func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type CreateOfferInput struct {
	AmountPerSlot       string `json:"amount_per_slot" validate:"required"`
	TotalSlots          uint32 `json:"total_slots" validate:"required,gte=1"`
	InterestBps         uint32 `json:"interest_bps" validate:"lte=10000"`
	RepaymentPeriodSecs int64  `json:"repayment_period_secs" validate:"required,gte=1"`
	MinScore            uint64 `json:"min_score"`
}

type OfferDTO struct {
	LoanID              uint64    `json:"loan_id"`
	Lender              string    `json:"lender"`
	AmountPerSlot       string    `json:"amount_per_slot"`
	TotalSlots          uint32    `json:"total_slots"`
	FilledSlots         uint32    `json:"filled_slots"`
	InterestBps         uint32    `json:"interest_bps"`
	RepaymentPeriodSecs int64     `json:"repayment_period_secs"`
	MinScore            uint64    `json:"min_score"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

func (u *Usecase) CreateOffer(ctx context.Context, lender string, in CreateOfferInput) (*OfferDTO, error) {
	amount, err := money.FromString(in.AmountPerSlot)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidArgument, err, "amount_per_slot")
	}
	loanID, err := u.ledger.CreateOffer(ctx, lender, ledger.Terms{
		AmountPerSlot:   amount,
		TotalSlots:      in.TotalSlots,
		InterestBps:     in.InterestBps,
		RepaymentPeriod: time.Duration(in.RepaymentPeriodSecs) * time.Second,
		MinScore:        in.MinScore,
	})
	if err != nil {
		return nil, err
	}
	o, err := u.ledger.GetOffer(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return offerDTO(o), nil
}

func (u *Usecase) GetOffer(ctx context.Context, loanID uint64) (*OfferDTO, error) {
	o, err := u.ledger.GetOffer(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return offerDTO(o), nil
}

func (u *Usecase) ListOpenOffers(ctx context.Context) ([]OfferDTO, error) {
	offers, err := u.ledger.ListOpenOffers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]OfferDTO, 0, len(offers))
	for i := range offers {
		out = append(out, *offerDTO(&offers[i]))
	}
	return out, nil
}

func (u *Usecase) CloseOffer(ctx context.Context, caller string, loanID uint64) error {
	return u.ledger.CloseOffer(ctx, caller, loanID)
}

type SubmitInput struct {
	LoanID             uint64 `json:"loan_id"`
	IdentityCommitment string `json:"identity_commitment" validate:"required"`
	ProofHash          string `json:"proof_hash" validate:"required"`
	BorrowerAddress    string `json:"borrower_address" validate:"required"`
}

// Submit gates the ledger write behind proof verification: an unregistered
// proof fails with ProofNotRegistered, a failed verification with
// ProofInvalid, and in both cases the ledger write is never attempted.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) error {
	if _, err := field.FromHex(in.IdentityCommitment); err != nil {
		return fault.Wrap(fault.OutOfFieldRange, err, "identity_commitment is not a field element")
	}

	o, err := u.ledger.GetOffer(ctx, in.LoanID)
	if err != nil {
		return err
	}
	if o.Status != offer.StatusOpen {
		return fault.New(fault.InvalidState, "loan %d is %s, applications require an open offer", in.LoanID, o.Status)
	}

	ok, err := u.gate.VerifyEligibility(ctx, in.ProofHash, "", o.MinScore)
	if err != nil {
		return err
	}
	if !ok {
		return fault.New(fault.ProofInvalid, "proof %s does not establish score >= %d", in.ProofHash, o.MinScore)
	}

	return u.ledger.SubmitApplication(ctx, in.LoanID, in.IdentityCommitment, in.ProofHash, in.BorrowerAddress)
}

type ApplicationDTO struct {
	LoanID             uint64     `json:"loan_id"`
	IdentityCommitment string     `json:"identity_commitment"`
	ProofHash          string     `json:"proof_hash"`
	Status             string     `json:"status"`
	AppliedAt          time.Time  `json:"applied_at"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	RepaymentDeadline  *time.Time `json:"repayment_deadline,omitempty"`
	RepaidAt           *time.Time `json:"repaid_at,omitempty"`
	Overdue            bool       `json:"overdue"`
}

func (u *Usecase) Approve(ctx context.Context, caller string, loanID uint64, identityCommitment string) (*ApplicationDTO, error) {
	if err := u.ledger.Approve(ctx, caller, loanID, identityCommitment); err != nil {
		return nil, err
	}
	app, err := u.ledger.GetApplication(ctx, loanID, identityCommitment)
	if err != nil {
		return nil, err
	}
	return u.ApplicationDTO(app), nil
}

type RepaymentDTO struct {
	LoanID             uint64    `json:"loan_id"`
	IdentityCommitment string    `json:"identity_commitment"`
	Amount             string    `json:"amount"`
	RepaidAt           time.Time `json:"repaid_at"`
}

func (u *Usecase) Repay(ctx context.Context, caller string, loanID uint64, identityCommitment string) (*RepaymentDTO, error) {
	if !u.allowLateRepayment {
		app, err := u.ledger.GetApplication(ctx, loanID, identityCommitment)
		if err != nil {
			return nil, err
		}
		if deadline.IsOverdue(app, u.now()) {
			return nil, fault.New(fault.InvalidState,
				"repayment window closed at %s", app.RepaymentDeadline.Format(time.RFC3339))
		}
	}

	amount, err := u.ledger.Repay(ctx, caller, loanID, identityCommitment)
	if err != nil {
		return nil, err
	}
	return &RepaymentDTO{
		LoanID:             loanID,
		IdentityCommitment: identityCommitment,
		Amount:             amount.String(),
		RepaidAt:           u.now(),
	}, nil
}

// ApplicationDTO converts an application without ever exposing the borrower's
// real address; that only leaves through the disclosure path.
func (u *Usecase) ApplicationDTO(app *application.Application) *ApplicationDTO {
	return &ApplicationDTO{
		LoanID:             app.LoanID,
		IdentityCommitment: app.IdentityCommitment,
		ProofHash:          app.ProofHash,
		Status:             string(app.Status),
		AppliedAt:          app.AppliedAt,
		ApprovedAt:         app.ApprovedAt,
		RepaymentDeadline:  app.RepaymentDeadline,
		RepaidAt:           app.RepaidAt,
		Overdue:            deadline.IsOverdue(app, u.now()),
	}
}

func offerDTO(o *offer.Offer) *OfferDTO {
	return &OfferDTO{
		LoanID:              o.LoanID,
		Lender:              o.Lender,
		AmountPerSlot:       o.AmountPerSlot.String(),
		TotalSlots:          o.TotalSlots,
		FilledSlots:         o.FilledSlots,
		InterestBps:         o.InterestBps,
		RepaymentPeriodSecs: o.RepaymentPeriodSecs,
		MinScore:            o.MinScore,
		Status:              string(o.Status),
		CreatedAt:           o.CreatedAt,
	}
}

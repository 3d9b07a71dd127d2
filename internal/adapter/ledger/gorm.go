// Package ledgeradapter is the reference implementation of the authoritative
// loan ledger over gorm. Every mutating operation runs as one transaction with
// the offer row locked up-front, so a state transition and its fund transfer
// commit together or not at all, and filled_slots can never overshoot
// total_slots under concurrent approvals.
package ledgeradapter

import (
	"context"
	"errors"
	"time"

	"privlend-backend/internal/domain/application"
	"privlend-backend/internal/domain/fault"
	domainledger "privlend-backend/internal/domain/ledger"
	"privlend-backend/internal/domain/offer"
	"privlend-backend/internal/domain/proof"
	"privlend-backend/pkg/id"
	"privlend-backend/pkg/money"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// NewGormLedgerWithClock injects the clock, for deadline tests.
func NewGormLedgerWithClock(db *gorm.DB, now func() time.Time) *GormLedger {
	return &GormLedger{db: db, now: now}
}

// Migrate creates the ledger-owned tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&offer.Offer{},
		&application.Application{},
		&domainledger.Event{},
		&domainledger.Account{},
		&proof.Record{},
	)
}

func (g *GormLedger) CreateOffer(ctx context.Context, lender string, t domainledger.Terms) (uint64, error) {
	if lender == "" {
		return 0, fault.New(fault.InvalidArgument, "lender address is required")
	}
	if t.TotalSlots == 0 {
		return 0, fault.New(fault.InvalidArgument, "total_slots must be positive")
	}
	if t.AmountPerSlot.IsZero() {
		return 0, fault.New(fault.InvalidArgument, "amount_per_slot must be positive")
	}
	if t.InterestBps > 10_000 {
		return 0, fault.New(fault.InvalidArgument, "interest_bps %d exceeds 10000", t.InterestBps)
	}
	if t.RepaymentPeriod <= 0 {
		return 0, fault.New(fault.InvalidArgument, "repayment_period must be positive")
	}

	o := &offer.Offer{
		Lender:              lender,
		AmountPerSlot:       t.AmountPerSlot,
		TotalSlots:          t.TotalSlots,
		InterestBps:         t.InterestBps,
		RepaymentPeriodSecs: int64(t.RepaymentPeriod / time.Second),
		MinScore:            t.MinScore,
		Status:              offer.StatusOpen,
	}
	err := g.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		return g.appendEvent(tx, domainledger.EventOfferCreated, o.LoanID, "")
	})
	if err != nil {
		return 0, err
	}
	return o.LoanID, nil
}

func (g *GormLedger) CloseOffer(ctx context.Context, caller string, loanID uint64) error {
	return g.tx(ctx, func(tx *gorm.DB) error {
		o, err := g.lockOffer(tx, loanID)
		if err != nil {
			return err
		}
		if o.Lender != caller {
			return fault.New(fault.NotLender, "caller %s is not the lender of loan %d", caller, loanID)
		}
		if o.Status == offer.StatusClosed {
			return nil // already closed, nothing to do
		}
		o.Status = offer.StatusClosed
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		return g.appendEvent(tx, domainledger.EventOfferClosed, loanID, "")
	})
}

// SubmitApplication records a pending application. Pending applications may
// exceed slot capacity on purpose: only Approve is slot-limited. Proof
// verification is the gateway's job and has already happened by the time this
// write is attempted.
func (g *GormLedger) SubmitApplication(ctx context.Context, loanID uint64, identityCommitment, proofHash, borrowerAddress string) error {
	if borrowerAddress == "" {
		return fault.New(fault.InvalidArgument, "borrower address is required")
	}
	return g.tx(ctx, func(tx *gorm.DB) error {
		o, err := g.lockOffer(tx, loanID)
		if err != nil {
			return err
		}
		if o.Status != offer.StatusOpen {
			return fault.New(fault.InvalidState, "loan %d is %s, applications require an open offer", loanID, o.Status)
		}

		var existing application.Application
		err = tx.Where("loan_id = ? AND identity_commitment = ?", loanID, identityCommitment).
			First(&existing).Error
		switch {
		case err == nil:
			return fault.New(fault.DuplicateApplication,
				"commitment %s already applied to loan %d", identityCommitment, loanID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		app := &application.Application{
			LoanID:             loanID,
			IdentityCommitment: identityCommitment,
			BorrowerAddress:    borrowerAddress,
			ProofHash:          proofHash,
			Status:             application.StatusPending,
			AppliedAt:          g.now(),
		}
		if err := tx.Create(app).Error; err != nil {
			return err
		}
		return g.appendEvent(tx, domainledger.EventApplicationSubmitted, loanID, identityCommitment)
	})
}

func (g *GormLedger) Approve(ctx context.Context, caller string, loanID uint64, identityCommitment string) error {
	return g.tx(ctx, func(tx *gorm.DB) error {
		o, err := g.lockOffer(tx, loanID)
		if err != nil {
			return err
		}
		if o.Lender != caller {
			return fault.New(fault.NotLender, "caller %s is not the lender of loan %d", caller, loanID)
		}
		if !o.SlotsAvailable() {
			return fault.New(fault.NoSlotsAvailable, "loan %d has %d/%d slots filled",
				loanID, o.FilledSlots, o.TotalSlots)
		}

		app, err := g.lockApplication(tx, loanID, identityCommitment)
		if err != nil {
			return err
		}
		if app.Status != application.StatusPending {
			return fault.New(fault.InvalidState, "application is %s, approve requires pending", app.Status)
		}

		if err := g.transfer(tx, o.Lender, app.BorrowerAddress, o.AmountPerSlot); err != nil {
			return err
		}

		now := g.now()
		deadline := now.Add(o.RepaymentPeriod())
		app.Status = application.StatusApproved
		app.ApprovedAt = &now
		app.RepaymentDeadline = &deadline
		if err := tx.Save(app).Error; err != nil {
			return err
		}

		o.FilledSlots++
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		return g.appendEvent(tx, domainledger.EventApplicationApproved, loanID, identityCommitment)
	})
}

// Repay settles principal + interest (floor-rounded basis points) back to the
// lender. Late repayment is accepted as long as the application is still
// approved: once the lender triggers a default the window closes for good.
// The stricter reject-late policy lives in the lending usecase.
func (g *GormLedger) Repay(ctx context.Context, caller string, loanID uint64, identityCommitment string) (money.Amount, error) {
	var due money.Amount
	err := g.tx(ctx, func(tx *gorm.DB) error {
		o, err := g.lockOffer(tx, loanID)
		if err != nil {
			return err
		}
		app, err := g.lockApplication(tx, loanID, identityCommitment)
		if err != nil {
			return err
		}
		if app.BorrowerAddress != caller {
			return fault.New(fault.NotBorrower, "caller %s is not the applicant of loan %d", caller, loanID)
		}
		if app.Status != application.StatusApproved {
			return fault.New(fault.InvalidState, "application is %s, repay requires approved", app.Status)
		}

		due = o.AmountPerSlot.AddInterest(o.InterestBps)
		if err := g.transfer(tx, app.BorrowerAddress, o.Lender, due); err != nil {
			return err
		}

		now := g.now()
		app.Status = application.StatusRepaid
		app.RepaidAt = &now
		if err := tx.Save(app).Error; err != nil {
			return err
		}
		return g.appendEvent(tx, domainledger.EventApplicationRepaid, loanID, identityCommitment)
	})
	if err != nil {
		return money.Amount{}, err
	}
	return due, nil
}

// RevealIdentity hands the applicant's real address to the lender once the
// deadline has passed. Idempotent: a defaulted application returns the same
// address again with no further transition. Overdue-ness is recomputed here
// from (now, deadline, status); no scheduler state is consulted.
func (g *GormLedger) RevealIdentity(ctx context.Context, caller string, loanID uint64, identityCommitment string) (string, error) {
	var addr string
	err := g.tx(ctx, func(tx *gorm.DB) error {
		o, err := g.lockOffer(tx, loanID)
		if err != nil {
			return err
		}
		if o.Lender != caller {
			return fault.New(fault.NotLender, "caller %s is not the lender of loan %d", caller, loanID)
		}
		app, err := g.lockApplication(tx, loanID, identityCommitment)
		if err != nil {
			return err
		}

		switch app.Status {
		case application.StatusDefaulted:
			addr = app.BorrowerAddress
			return nil
		case application.StatusApproved:
			now := g.now()
			if app.RepaymentDeadline == nil || !now.After(*app.RepaymentDeadline) {
				deadline := "unset"
				if app.RepaymentDeadline != nil {
					deadline = app.RepaymentDeadline.Format(time.RFC3339)
				}
				return fault.New(fault.NotYetOverdue, "deadline at %s, now is %s",
					deadline, now.Format(time.RFC3339))
			}
			app.Status = application.StatusDefaulted
			if err := tx.Save(app).Error; err != nil {
				return err
			}
			addr = app.BorrowerAddress
			return g.appendEvent(tx, domainledger.EventApplicationDefaulted, loanID, identityCommitment)
		default:
			return fault.New(fault.InvalidState, "application is %s, reveal requires approved or defaulted", app.Status)
		}
	})
	if err != nil {
		return "", err
	}
	return addr, nil
}

func (g *GormLedger) GetOffer(ctx context.Context, loanID uint64) (*offer.Offer, error) {
	var o offer.Offer
	err := g.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&o).Error
	if err != nil {
		return nil, g.mapErr(err, "offer %d", loanID)
	}
	return &o, nil
}

func (g *GormLedger) GetApplication(ctx context.Context, loanID uint64, identityCommitment string) (*application.Application, error) {
	var app application.Application
	err := g.db.WithContext(ctx).
		Where("loan_id = ? AND identity_commitment = ?", loanID, identityCommitment).
		First(&app).Error
	if err != nil {
		return nil, g.mapErr(err, "application (%d, %s)", loanID, identityCommitment)
	}
	return &app, nil
}

func (g *GormLedger) ListOpenOffers(ctx context.Context) ([]offer.Offer, error) {
	var out []offer.Offer
	err := g.db.WithContext(ctx).
		Where("status = ?", offer.StatusOpen).
		Order("loan_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, g.mapErr(err, "listing open offers")
	}
	return out, nil
}

func (g *GormLedger) MaxLoanID(ctx context.Context) (uint64, error) {
	var maxID *uint64
	err := g.db.WithContext(ctx).
		Model(&offer.Offer{}).
		Select("MAX(loan_id)").
		Scan(&maxID).Error
	if err != nil {
		return 0, g.mapErr(err, "max loan id")
	}
	if maxID == nil {
		return 0, nil
	}
	return *maxID, nil
}

func (g *GormLedger) EventsSince(ctx context.Context, afterID uint64) ([]domainledger.Event, error) {
	var out []domainledger.Event
	err := g.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, g.mapErr(err, "events after %d", afterID)
	}
	return out, nil
}

func (g *GormLedger) Deposit(ctx context.Context, address string, amount money.Amount) error {
	return g.tx(ctx, func(tx *gorm.DB) error {
		return g.credit(tx, address, amount)
	})
}

func (g *GormLedger) BalanceOf(ctx context.Context, address string) (money.Amount, error) {
	var acct domainledger.Account
	err := g.db.WithContext(ctx).Where("address = ?", address).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return money.FromInt64(0), nil
	}
	if err != nil {
		return money.Amount{}, g.mapErr(err, "balance of %s", address)
	}
	return acct.Balance, nil
}

// ---- internals ----

func (g *GormLedger) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
	return g.mapErr(err, "ledger transaction")
}

func (g *GormLedger) lockOffer(tx *gorm.DB, loanID uint64) (*offer.Offer, error) {
	var o offer.Offer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&o).Error
	if err != nil {
		return nil, g.mapErr(err, "offer %d", loanID)
	}
	return &o, nil
}

func (g *GormLedger) lockApplication(tx *gorm.DB, loanID uint64, identityCommitment string) (*application.Application, error) {
	var app application.Application
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ? AND identity_commitment = ?", loanID, identityCommitment).
		First(&app).Error
	if err != nil {
		return nil, g.mapErr(err, "application (%d, %s)", loanID, identityCommitment)
	}
	return &app, nil
}

func (g *GormLedger) transfer(tx *gorm.DB, from, to string, amount money.Amount) error {
	var src domainledger.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", from).First(&src).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fault.New(fault.InsufficientFunds, "%s holds 0, needs %s", from, amount)
	}
	if err != nil {
		return err
	}
	if src.Balance.Cmp(amount) < 0 {
		return fault.New(fault.InsufficientFunds, "%s holds %s, needs %s", from, src.Balance, amount)
	}
	remaining, err := src.Balance.Sub(amount)
	if err != nil {
		return err
	}
	src.Balance = remaining
	if err := tx.Save(&src).Error; err != nil {
		return err
	}
	return g.credit(tx, to, amount)
}

func (g *GormLedger) credit(tx *gorm.DB, address string, amount money.Amount) error {
	var acct domainledger.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", address).First(&acct).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&domainledger.Account{Address: address, Balance: amount}).Error
	case err != nil:
		return err
	}
	acct.Balance = acct.Balance.Add(amount)
	return tx.Save(&acct).Error
}

func (g *GormLedger) appendEvent(tx *gorm.DB, kind domainledger.EventKind, loanID uint64, identityCommitment string) error {
	return tx.Create(&domainledger.Event{
		TraceID:            id.NewID32(),
		Kind:               kind,
		LoanID:             loanID,
		IdentityCommitment: identityCommitment,
		OccurredAt:         g.now(),
	}).Error
}

// mapErr translates storage failures into the service taxonomy. Taxonomy
// errors pass through untouched so preconditions keep their specific codes.
func (g *GormLedger) mapErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var fe *fault.Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fault.Wrap(fault.NotFound, err, format, args...)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fault.Wrap(fault.NetworkTimeout, err, format, args...)
	}
	return fault.Wrap(fault.LedgerUnavailable, err, format, args...)
}

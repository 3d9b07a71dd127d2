package application

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRepaid    Status = "repaid"
	StatusDefaulted Status = "defaulted"
)

// CanTransitionTo encodes the monotonic state machine:
// pending -> approved -> {repaid | defaulted}; terminal states never move.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved
	case StatusApproved:
		return next == StatusRepaid || next == StatusDefaulted
	default:
		return false
	}
}

func (s Status) Terminal() bool { return s == StatusRepaid || s == StatusDefaulted }

// Application is a borrower's application to a loan offer, keyed by
// (loan_id, identity_commitment). The identity commitment is the borrower's
// stable pseudonym; BorrowerAddress is the real address and must never leave
// the ledger except through the reveal path. Rows are never deleted.
type Application struct {
	ID                 uint64     `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	LoanID             uint64     `gorm:"column:loan_id;uniqueIndex:ux_apps_loan_commitment;index:idx_apps_loan" json:"loan_id"`
	IdentityCommitment string     `gorm:"size:64;column:identity_commitment;uniqueIndex:ux_apps_loan_commitment;index:idx_apps_commitment" json:"identity_commitment"`
	BorrowerAddress    string     `gorm:"size:64;column:borrower_address" json:"-"`
	ProofHash          string     `gorm:"size:128;column:proof_hash" json:"proof_hash"`
	Status             Status     `gorm:"type:text;default:'pending';column:status" json:"status"`
	AppliedAt          time.Time  `gorm:"column:applied_at" json:"applied_at"`
	ApprovedAt         *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RepaymentDeadline  *time.Time `gorm:"column:repayment_deadline" json:"repayment_deadline,omitempty"`
	RepaidAt           *time.Time `gorm:"column:repaid_at" json:"repaid_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"-"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"-"`
}

func (Application) TableName() string { return "loan_applications" }

package offer

import (
	"time"

	"privlend-backend/pkg/money"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Offer is a lender's standing loan offer. LoanID is the ledger-assigned
// sequential identifier; the off-chain index relies on it being dense so a
// bounded 1..max scan covers every loan.
type Offer struct {
	LoanID              uint64       `gorm:"primaryKey;autoIncrement;column:loan_id" json:"loan_id"`
	Lender              string       `gorm:"size:64;index:idx_offers_lender;column:lender" json:"lender"`
	AmountPerSlot       money.Amount `gorm:"column:amount_per_slot" json:"amount_per_slot"`
	TotalSlots          uint32       `gorm:"column:total_slots" json:"total_slots"`
	FilledSlots         uint32       `gorm:"column:filled_slots" json:"filled_slots"`
	InterestBps         uint32       `gorm:"column:interest_bps" json:"interest_bps"`
	RepaymentPeriodSecs int64        `gorm:"column:repayment_period_secs" json:"repayment_period_secs"`
	MinScore            uint64       `gorm:"column:min_score" json:"min_score"`
	Status              Status       `gorm:"type:text;default:'open';column:status" json:"status"`
	CreatedAt           time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Offer) TableName() string { return "loan_offers" }

func (o *Offer) RepaymentPeriod() time.Duration {
	return time.Duration(o.RepaymentPeriodSecs) * time.Second
}

func (o *Offer) SlotsAvailable() bool { return o.FilledSlots < o.TotalSlots }

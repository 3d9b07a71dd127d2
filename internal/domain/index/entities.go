package index

import "time"

// Entry is one learned fact: this commitment has an application on this loan.
// Entries are append-only and purely advisory; the ledger stays authoritative
// and the whole index may legitimately be empty after a restart.
type Entry struct {
	IdentityCommitment string    `json:"identity_commitment"`
	LoanID             uint64    `json:"loan_id"`
	DiscoveredAt       time.Time `json:"discovered_at"`
}

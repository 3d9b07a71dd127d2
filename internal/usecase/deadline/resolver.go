package deadline

import (
	"time"

	"privlend-backend/internal/domain/application"
)

// IsOverdue is the single definition of overdue-ness: a pure function of
// (now, deadline, status), recomputable at any time with no scheduler state.
// The reveal gate evaluates this predicate at call time, so a crashed or
// absent scheduler can never block or wrongly permit a disclosure.
func IsOverdue(app *application.Application, now time.Time) bool {
	if app == nil || app.Status != application.StatusApproved {
		return false
	}
	if app.RepaymentDeadline == nil {
		return false
	}
	return now.After(*app.RepaymentDeadline)
}

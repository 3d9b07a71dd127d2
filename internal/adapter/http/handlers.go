package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"privlend-backend/internal/usecase/commitment"
	"privlend-backend/internal/usecase/disclosure"
	"privlend-backend/internal/usecase/discovery"
	"privlend-backend/internal/usecase/lending"
	"privlend-backend/internal/usecase/proofgate"
)

// callerHeader carries the caller's wallet address; lender-only and
// borrower-only operations authorize against it.
const callerHeader = "Ax-Caller"

type Handler struct {
	lending     *lending.Usecase
	gate        *proofgate.Usecase
	index       *discovery.Index
	disclosure  *disclosure.Usecase
	commitments *commitment.Service
}

func NewHandler(
	lendingUC *lending.Usecase,
	gate *proofgate.Usecase,
	ix *discovery.Index,
	disc *disclosure.Usecase,
	commitments *commitment.Service,
) *Handler {
	return &Handler{
		lending:     lendingUC,
		gate:        gate,
		index:       ix,
		disclosure:  disc,
		commitments: commitments,
	}
}

// Register mounts all routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)

	e.POST("/offers", h.CreateOffer)
	e.GET("/offers", h.ListOffers)
	e.GET("/offers/:loan_id", h.GetOffer)
	e.POST("/offers/:loan_id/close", h.CloseOffer)

	e.POST("/offers/:loan_id/applications", h.SubmitApplication)
	e.GET("/offers/:loan_id/applications", h.ListApplicationsForLoan)
	e.POST("/offers/:loan_id/applications/:commitment/approve", h.ApproveApplication)
	e.POST("/offers/:loan_id/applications/:commitment/repay", h.RepayApplication)
	e.POST("/offers/:loan_id/applications/:commitment/reveal", h.RevealIdentity)

	e.GET("/borrowers/:commitment/applications", h.ListOwnApplications)

	e.POST("/proofs", h.RegisterProof)
	e.POST("/commitments/derive", h.DeriveCommitments)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

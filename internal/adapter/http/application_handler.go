package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"privlend-backend/internal/usecase/lending"
)

type submitApplicationReq struct {
	IdentityCommitment string `json:"identity_commitment" validate:"required,hexfield"`
	ProofHash          string `json:"proof_hash" validate:"required"`
	BorrowerAddress    string `json:"borrower_address" validate:"required"`
}

func (h *Handler) SubmitApplication(c echo.Context) error {
	loanID, err := loanIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid loan_id"})
	}
	var req submitApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	if err := h.lending.Submit(c.Request().Context(), lending.SubmitInput{
		LoanID:             loanID,
		IdentityCommitment: req.IdentityCommitment,
		ProofHash:          req.ProofHash,
		BorrowerAddress:    req.BorrowerAddress,
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"loan_id":             loanID,
		"identity_commitment": req.IdentityCommitment,
		"status":              "pending",
	})
}

// ListApplicationsForLoan returns the applications the discovery index has
// learned for this loan. Commitments that never self-discovered stay invisible
// here even though their ledger rows exist.
func (h *Handler) ListApplicationsForLoan(c echo.Context) error {
	loanID, err := loanIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid loan_id"})
	}
	hits, err := h.index.LenderDiscover(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*lending.ApplicationDTO, 0, len(hits))
	for _, hit := range hits {
		out = append(out, h.lending.ApplicationDTO(hit.Application))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ApproveApplication(c echo.Context) error {
	lender, ok := caller(c)
	if !ok {
		return missingCaller(c)
	}
	loanID, err := loanIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid loan_id"})
	}
	dto, err := h.lending.Approve(c.Request().Context(), lender, loanID, c.Param("commitment"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *Handler) RepayApplication(c echo.Context) error {
	borrower, ok := caller(c)
	if !ok {
		return missingCaller(c)
	}
	loanID, err := loanIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid loan_id"})
	}
	dto, err := h.lending.Repay(c.Request().Context(), borrower, loanID, c.Param("commitment"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *Handler) RevealIdentity(c echo.Context) error {
	lender, ok := caller(c)
	if !ok {
		return missingCaller(c)
	}
	loanID, err := loanIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid loan_id"})
	}
	dto, err := h.disclosure.Reveal(c.Request().Context(), lender, loanID, c.Param("commitment"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// ListOwnApplications runs self-discovery for the commitment, which is also
// what seeds the index for later lender queries.
func (h *Handler) ListOwnApplications(c echo.Context) error {
	hits, err := h.index.SelfDiscover(c.Request().Context(), c.Param("commitment"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*lending.ApplicationDTO, 0, len(hits))
	for _, hit := range hits {
		out = append(out, h.lending.ApplicationDTO(hit.Application))
	}
	return c.JSON(http.StatusOK, out)
}

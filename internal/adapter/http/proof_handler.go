package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"privlend-backend/internal/usecase/proofgate"
)

type registerProofReq struct {
	ProofHash          string `json:"proof_hash" validate:"required"`
	ActivityCommitment string `json:"activity_commitment" validate:"required,hexfield"`
}

func (h *Handler) RegisterProof(c echo.Context) error {
	var req registerProofReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	receipt, err := h.gate.Register(c.Request().Context(), proofgate.RegisterInput{
		ProofHash:          req.ProofHash,
		ActivityCommitment: req.ActivityCommitment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, receipt)
}

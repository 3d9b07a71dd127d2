package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"privlend-backend/internal/usecase/lending"
)

func (h *Handler) CreateOffer(c echo.Context) error {
	lender, ok := caller(c)
	if !ok {
		return missingCaller(c)
	}
	var req lending.CreateOfferInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.lending.CreateOffer(c.Request().Context(), lender, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *Handler) ListOffers(c echo.Context) error {
	offers, err := h.lending.ListOpenOffers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, offers)
}

func (h *Handler) GetOffer(c echo.Context) error {
	loanID, err := loanIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid loan_id"})
	}
	dto, err := h.lending.GetOffer(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *Handler) CloseOffer(c echo.Context) error {
	lender, ok := caller(c)
	if !ok {
		return missingCaller(c)
	}
	loanID, err := loanIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid loan_id"})
	}
	if err := h.lending.CloseOffer(c.Request().Context(), lender, loanID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

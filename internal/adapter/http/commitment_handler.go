package http

import (
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Derivation runs server-side for convenience in development setups; a
// production deployment would do this client-side so the secret never leaves
// the owner's machine.
type deriveCommitmentsReq struct {
	OwnerSecret      string `json:"owner_secret" validate:"required"`
	PrivateAttribute string `json:"private_attribute"`
	Salt             string `json:"salt"`
}

type deriveCommitmentsResp struct {
	IdentityCommitment string `json:"identity_commitment"`
	ActivityCommitment string `json:"activity_commitment,omitempty"`
	Salt               string `json:"salt,omitempty"`
}

func (h *Handler) DeriveCommitments(c echo.Context) error {
	var req deriveCommitmentsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	secret, ok := new(big.Int).SetString(req.OwnerSecret, 10)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "owner_secret must be a decimal integer"})
	}

	identity, err := h.commitments.DeriveIdentity(secret)
	if err != nil {
		return respondError(c, err)
	}
	resp := deriveCommitmentsResp{IdentityCommitment: identity.Hex()}

	if req.PrivateAttribute != "" {
		attr, ok := new(big.Int).SetString(req.PrivateAttribute, 10)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "private_attribute must be a decimal integer"})
		}
		var salt *big.Int
		if req.Salt != "" {
			salt, ok = new(big.Int).SetString(req.Salt, 10)
			if !ok {
				return c.JSON(http.StatusBadRequest, errorBody{Error: "salt must be a decimal integer"})
			}
		} else {
			fresh, err := h.commitments.GenerateSalt()
			if err != nil {
				return respondError(c, err)
			}
			salt = fresh.Big()
		}
		activity, err := h.commitments.DeriveActivity(attr, secret, salt)
		if err != nil {
			return respondError(c, err)
		}
		resp.ActivityCommitment = activity.Hex()
		resp.Salt = salt.String()
	}

	return c.JSON(http.StatusOK, resp)
}

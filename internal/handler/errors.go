package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/service"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/swap"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/swapform"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/units"
)

// ErrInvalidBody indicates that the request body could not be parsed into
// the expected structure.
var ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrInvalidQueryParameters indicates that the request query string could not
// be parsed into the expected structure.
var ErrInvalidQueryParameters = fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")

var ErrSessionNotFound = fiber.NewError(fiber.StatusNotFound, "session not found")

var ErrRouteNotFound = fiber.NewError(fiber.StatusNotFound, "no route between the selected assets")

var ErrInvalidTokenSelection = fiber.NewError(fiber.StatusBadRequest, "select both assets first")

var ErrSameAsset = fiber.NewError(fiber.StatusBadRequest, "asset already selected on the other side")

var ErrUnknownAsset = fiber.NewError(fiber.StatusBadRequest, "unknown asset")

var ErrInvalidAccount = fiber.NewError(fiber.StatusBadRequest, "invalid account address")

// ErrNoAccount is returned when a transaction is requested without a
// connected account.
var ErrNoAccount = fiber.NewError(fiber.StatusUnauthorized, "connect a wallet first")

var ErrNothingToSwap = fiber.NewError(fiber.StatusBadRequest, "enter an amount")

var ErrNoAllowanceNeeded = fiber.NewError(fiber.StatusBadRequest, "native asset needs no allowance")

// ErrInsufficientAllowance maps a failed approval to 409 so the client shows
// the increase-allowance action.
var ErrInsufficientAllowance = fiber.NewError(fiber.StatusConflict, swap.InsufficientAllowanceMessage)

var ErrPending = fiber.NewError(fiber.StatusConflict, "a transaction is already pending")

// ErrLedgerUnavailable signals a failed or reverted ledger call.
var ErrLedgerUnavailable = fiber.NewError(fiber.StatusBadGateway, "ledger call failed")

// ErrInternal signals a generic server-side failure.
var ErrInternal = fiber.NewError(fiber.StatusInternalServerError, "internal error")

// NewInvalidAmount wraps an amount parsing error into a 400 Bad Request with
// a descriptive message.
func NewInvalidAmount(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid amount: "+err.Error())
}

// NewFieldRequired returns a 400 Bad Request for a missing field.
func NewFieldRequired(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" is required")
}

func (h *SessionHandler) handleServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, service.ErrInvalidAccount):
		return ErrInvalidAccount
	case errors.Is(err, market.ErrRouteNotFound):
		return ErrRouteNotFound
	case errors.Is(err, market.ErrInvalidTokenSelection):
		return ErrInvalidTokenSelection
	case errors.Is(err, market.ErrUnknownAsset):
		return ErrUnknownAsset
	case errors.Is(err, swapform.ErrSameAsset):
		return ErrSameAsset
	case errors.Is(err, swap.ErrNoAccount):
		return ErrNoAccount
	case errors.Is(err, swap.ErrNothingToSwap):
		return ErrNothingToSwap
	case errors.Is(err, swap.ErrNoAllowanceNeeded):
		return ErrNoAllowanceNeeded
	case errors.Is(err, swap.ErrInsufficientAllowance):
		return ErrInsufficientAllowance
	case errors.Is(err, swap.ErrPending):
		return ErrPending
	case errors.Is(err, swap.ErrLedgerCall), errors.Is(err, service.ErrBalanceUnavailable):
		return ErrLedgerUnavailable
	case errors.Is(err, units.ErrInvalidAmount),
		errors.Is(err, units.ErrNegativeAmount),
		errors.Is(err, units.ErrPrecisionExceeded),
		errors.Is(err, units.ErrAmountOverflow):
		return NewInvalidAmount(err)
	default:
		h.logger.Error("session request failed", "err", err)
		return ErrInternal
	}
}

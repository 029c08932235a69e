package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidAccount  = errors.New("invalid account address")

	ErrBalanceUnavailable = errors.New("balance unavailable")
)

package service

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrVehiclesUnavailable = errors.New("vehicles unavailable")
	ErrPortal              = errors.New("tracking portal unavailable")
)

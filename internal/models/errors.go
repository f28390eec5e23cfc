package models

import "errors"

var (
	ErrSignalInvalid        = errors.New("signal invalid")
	ErrScoreBelowThreshold  = errors.New("score below threshold")
	ErrPriceFeedUnavailable = errors.New("price feed unavailable")
	ErrOrderPlacementFailed = errors.New("order placement failed")
	ErrCycleCapReached      = errors.New("active cycle cap reached")
	ErrCapitalUnavailable   = errors.New("working capital unavailable")
	ErrCycleAlreadyActive   = errors.New("cycle already active for asset")
)

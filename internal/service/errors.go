package service

import "errors"

// ErrInvalidRequest rejects a cancellation before any side effect: the
// request must carry exactly one of payment id / order id, and it must
// resolve to exactly one order.
var ErrInvalidRequest = errors.New("invalid cancellation request")

// ErrConfigNotLoaded is returned when the commission schedule has not been
// loaded into the cache yet.
var ErrConfigNotLoaded = errors.New("commission config not loaded")

// ErrIneligibleOrder is returned when a settlement batch lists an order that
// is not in the partner's completed+paid set.
var ErrIneligibleOrder = errors.New("order not eligible for settlement")

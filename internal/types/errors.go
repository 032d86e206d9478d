package types

import "errors"

// Error taxonomy. Callers classify failures with errors.Is and degrade
// accordingly: missing data becomes HOLD, classification failures become
// Neutral, broker rejections are terminal for the order, transient I/O is
// retried at the scheduler level.
var (
	ErrDataUnavailable       = errors.New("required price or news data unavailable")
	ErrClassificationFailure = errors.New("sentiment classification failed")
	ErrBrokerRejection       = errors.New("order rejected by broker")
	ErrFillTimeout           = errors.New("order fill unresolved within wait bound")
	ErrTransientIO           = errors.New("transient network or file failure")
)

package tier

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout is reported when a tier exceeds its timeout.
var ErrTimeout = errors.New("tier: timeout")

// PanicError wraps a value recovered from a panicking tier.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("tier: panic: %v", e.Value)
}

// fatal is implemented by errors that know they should not be retried
// on another tier, e.g. malformed requests or bad credentials.
type fatal interface {
	Fatal() bool
}

// DefaultClassify returns ClassFatal when any error in err's tree reports
// Fatal() == true, and ClassEscalate otherwise. Context errors always
// escalate.
func DefaultClassify(err error) Class {
	if err == nil {
		return ClassEscalate
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, ErrTimeout) {
		return ClassEscalate
	}
	var f fatal
	if errors.As(err, &f) && f.Fatal() {
		return ClassFatal
	}
	return ClassEscalate
}

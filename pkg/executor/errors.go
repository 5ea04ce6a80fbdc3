package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnresolvableURL is returned when a request has no absolute URL after
// combining base URI, base path and path.
var ErrUnresolvableURL = errors.New("executor: unresolvable request URL")

// TransportError reports a failure to obtain any response: connection
// refused, DNS, TLS, deadline exceeded or a redirect limit.
type TransportError struct {
	Method  string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	kind := "transport error"
	if e.Timeout {
		kind = "timeout"
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a TransportError caused by a deadline.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

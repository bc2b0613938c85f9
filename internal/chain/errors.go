package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRemoteUnavailable means no RPC connection (or signer) is configured at
// all; callers should surface a static message and stop.
var ErrRemoteUnavailable = errors.New("remote unavailable")

// QueryError wraps a transient failure of a read-only call.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query %s: %v", e.Op, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

// RevertError carries the remote rejection reason verbatim.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string { return "reverted: " + e.Reason }

// ErrUserDeclined means the signer refused to sign. Benign; the purchase
// simply did not happen.
var ErrUserDeclined = errors.New("user declined signature")

// ClassifySubmitError maps a raw submit failure into the error taxonomy.
// Matching on message text is unavoidable here: providers and wallets do not
// agree on structured error codes.
func ClassifySubmitError(err error) error {
	if err == nil {
		return nil
	}
	var revert *RevertError
	if errors.As(err, &revert) {
		return err
	}
	if errors.Is(err, ErrUserDeclined) || errors.Is(err, ErrRemoteUnavailable) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user denied"),
		strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "declined"):
		return ErrUserDeclined
	case strings.Contains(msg, "execution reverted"):
		return &RevertError{Reason: revertReason(err.Error())}
	default:
		return &QueryError{Op: "submit", Err: err}
	}
}

func revertReason(msg string) string {
	const marker = "execution reverted"
	idx := strings.Index(strings.ToLower(msg), marker)
	if idx < 0 {
		return msg
	}
	reason := strings.TrimLeft(msg[idx+len(marker):], ": ")
	if reason == "" {
		return msg
	}
	return reason
}

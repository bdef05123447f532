package dexscreener

import (
	"fmt"
	"net/http"
)

// Failure reasons carried by ProviderError.
const (
	ReasonNetwork  = "network"
	ReasonStatus   = "status"
	ReasonDecode   = "decode"
	ReasonCanceled = "canceled"
)

// ProviderError is a failed pair fetch for one token. The engine treats it as
// "no data this cycle" for that token only.
type ProviderError struct {
	Token  string
	Reason string
	Status int // HTTP status, 0 when no response was read
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("dexscreener %s: %s (http %d): %v", e.Token, e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("dexscreener %s: %s: %v", e.Token, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Temporary reports whether a retry may succeed.
func (e *ProviderError) Temporary() bool {
	switch e.Reason {
	case ReasonNetwork:
		return true
	case ReasonStatus:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	default:
		return false
	}
}

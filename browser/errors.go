package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
)

// Error taxonomy shared by every Session implementation.
var (
	// ErrNotFound means a queried element or control is absent. It is an
	// expected outcome and callers substitute a sentinel.
	ErrNotFound = eris.New("browser: element not found")

	// ErrStaleElement means an element reference was invalidated by a DOM
	// re-render between the query and the read.
	ErrStaleElement = eris.New("browser: stale element reference")

	// ErrSession means the browser can no longer be driven at all: the
	// target crashed, the connection dropped, or navigation failed.
	ErrSession = eris.New("browser: session failure")
)

// IsNotFound reports whether err is an expected-absent condition.
func IsNotFound(err error) bool {
	return eris.Is(err, ErrNotFound)
}

// IsStale reports whether err is a stale element reference.
func IsStale(err error) bool {
	return eris.Is(err, ErrStaleElement)
}

// IsSessionFailure reports whether err means the session is unusable.
func IsSessionFailure(err error) bool {
	return eris.Is(err, ErrSession) ||
		errors.Is(err, context.Canceled)
}

func notFound(selector string) error {
	return eris.Wrapf(ErrNotFound, "selector %q", selector)
}

// staleMarkers are substrings of CDP protocol errors raised when a node id no
// longer resolves to an attached node.
var staleMarkers = []string{
	"no node with given id",
	"could not find node with given id",
	"node with given id does not belong to the document",
	"cannot find context with specified id",
	"node is detached from document",
}

// sessionMarkers are substrings of errors raised once the target or the
// websocket connection is gone.
var sessionMarkers = []string{
	"invalid context",
	"invalid target",
	"target closed",
	"websocket",
	"connection reset",
	"broken pipe",
	"net::err_",
	"page load error",
}

// classifyNodeErr maps an error from a per-node read into the taxonomy. A
// deadline on a node query means the node never resolved, which is how a
// detached node id presents itself.
func classifyNodeErr(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || matches(err, staleMarkers) {
		return eris.Wrapf(ErrStaleElement, "%s: %v", action, err)
	}
	return classifyErr(err, action)
}

// classifyErr maps an error from a page-level operation into the taxonomy.
func classifyErr(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		matches(err, sessionMarkers) {
		return eris.Wrapf(ErrSession, "%s: %v", action, err)
	}
	if matches(err, staleMarkers) {
		return eris.Wrapf(ErrStaleElement, "%s: %v", action, err)
	}
	return eris.Wrap(err, "browser: "+action)
}

func matches(err error, markers []string) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

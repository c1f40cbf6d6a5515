package errors

import (
	"fmt"
)

var (
	// ErrConfiguration indicates a setup problem: the requested complexity
	// tier has zero capable providers. Never retried and never fed to the
	// score table.
	ErrConfiguration = fmt.Errorf("chittyrouter: configuration error")

	// ErrFatalRouting indicates the fallback chain was exhausted at runtime.
	ErrFatalRouting = fmt.Errorf("chittyrouter: fatal routing error")

	// ErrStorageUnavailable indicates a memory tier write failed. The
	// request still completes; only learning quality degrades.
	ErrStorageUnavailable = fmt.Errorf("chittyrouter: storage unavailable")

	ErrNotFound      = fmt.Errorf("chittyrouter: not found")
	ErrInvalidParams = fmt.Errorf("chittyrouter: invalid params")
	ErrInternal      = fmt.Errorf("chittyrouter: internal error")
)

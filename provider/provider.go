package provider

import (
	"context"
	"fmt"

	"github.com/chittyos/chittyrouter/entity"
)

type (
	// Provider is the uniform interface to one AI backend. Implementations
	// must translate transient transport errors into a typed *Failure
	// instead of surfacing raw SDK errors, so the router can distinguish
	// "retry elsewhere" from "fatal, stop".
	Provider interface {
		ID() string
		Capability() entity.Complexity
		Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*Completion, error)
	}

	InvokeOptions struct {
		MaxTokens int
		System    string
		Context   []entity.Turn

		// AttemptID is a fresh marker per logical attempt. The router never
		// re-invokes an ambiguous outcome without minting a new one, which
		// keeps billing at most-once per attempt.
		AttemptID string
	}

	Completion struct {
		Text       string
		TokensIn   int
		TokensOut  int
		Cost       float64
		ProviderID string
	}

	// Failure is the typed error adapters return for invocation problems.
	Failure struct {
		ProviderID string
		Transient  bool
		Cause      error
	}
)

func (f *Failure) Error() string {
	kind := "fatal"
	if f.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("provider %s: %s failure: %v", f.ProviderID, kind, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

func NewTransientFailure(providerID string, cause error) *Failure {
	return &Failure{ProviderID: providerID, Transient: true, Cause: cause}
}

func NewFatalFailure(providerID string, cause error) *Failure {
	return &Failure{ProviderID: providerID, Transient: false, Cause: cause}
}

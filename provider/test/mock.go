package providertest

import (
	"context"
	"sync"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/provider"
)

// StubProvider is a scriptable in-memory provider for tests. Failures can be
// injected per call; every invocation is counted.
type StubProvider struct {
	mu sync.Mutex

	id         string
	capability entity.Complexity
	reply      string
	cost       float64

	failNext  int
	failAll   bool
	invokes   int
	lastOpts  provider.InvokeOptions
	lastInput string
}

var _ provider.Provider = (*StubProvider)(nil)

func NewStubProvider(id string, capability entity.Complexity) *StubProvider {
	return &StubProvider{
		id:         id,
		capability: capability,
		reply:      "stub response from " + id,
	}
}

func (p *StubProvider) ID() string {
	return p.id
}

func (p *StubProvider) Capability() entity.Complexity {
	return p.capability
}

func (p *StubProvider) Invoke(ctx context.Context, prompt string, opts provider.InvokeOptions) (*provider.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.invokes++
	p.lastOpts = opts
	p.lastInput = prompt

	if p.failAll || p.failNext > 0 {
		if p.failNext > 0 {
			p.failNext--
		}
		return nil, provider.NewTransientFailure(p.id, context.DeadlineExceeded)
	}

	return &provider.Completion{
		Text:       p.reply,
		TokensIn:   len(prompt) / 4,
		TokensOut:  len(p.reply) / 4,
		Cost:       p.cost,
		ProviderID: p.id,
	}, nil
}

func (p *StubProvider) SetReply(reply string) *StubProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reply = reply
	return p
}

func (p *StubProvider) SetCost(cost float64) *StubProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cost = cost
	return p
}

// FailNext makes the next n invocations fail with a transient failure.
func (p *StubProvider) FailNext(n int) *StubProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
	return p
}

// FailAlways makes every invocation fail until reset.
func (p *StubProvider) FailAlways(fail bool) *StubProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAll = fail
	return p
}

func (p *StubProvider) Invocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invokes
}

func (p *StubProvider) LastOptions() provider.InvokeOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOpts
}

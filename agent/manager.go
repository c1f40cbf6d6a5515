package agent

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/chittyos/chittyrouter/learning"
	"github.com/chittyos/chittyrouter/memory"
	"github.com/chittyos/chittyrouter/router"
)

type (
	Manager interface {
		// Resolve maps an agent name to its actor instance. The mapping is
		// deterministic and idempotent: the same name always resolves to
		// the same actor, created lazily on first reference.
		Resolve(name string) *Actor
	}

	manager struct {
		logger   *slog.Logger
		memory   *memory.Manager
		learning *learning.Engine
		router   *router.Router
		embedder memory.Embedder

		mu     sync.Mutex
		actors map[string]*Actor
	}
)

var _ Manager = (*manager)(nil)

func NewManager(logger *slog.Logger, memoryManager *memory.Manager, learningEngine *learning.Engine, r *router.Router, embedder memory.Embedder) Manager {
	return &manager{
		logger:   logger,
		memory:   memoryManager,
		learning: learningEngine,
		router:   r,
		embedder: embedder,
		actors:   make(map[string]*Actor),
	}
}

func (m *manager) Resolve(name string) *Actor {
	key := agentKey(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	actor, ok := m.actors[key]
	if !ok {
		actor = newActor(key, m.logger, m.memory, m.learning, m.router, m.embedder)
		m.actors[key] = actor
	}
	return actor
}

// agentKey derives the stable identity key from a name. Durable state is
// stored under this key, so an actor rebuilt after a restart finds its
// accumulated memory.
func agentKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

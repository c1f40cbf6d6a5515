package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
)

// Manager is the façade over the four memory tiers. Tier failures are
// isolated from each other: one tier being down never blocks writes to the
// others, and Working/Semantic misses are values, not errors.
type Manager struct {
	logger *slog.Logger
	conf   *config.MemoryConfig

	working   *WorkingStore
	semantic  SemanticStore
	episodic  EpisodicStore
	aggregate AggregateStore

	// agentLocks serializes Aggregate read-modify-write per agent identity.
	agentLocks sync.Map
}

func NewManager(logger *slog.Logger, conf *config.MemoryConfig, semantic SemanticStore, episodic EpisodicStore, aggregate AggregateStore) *Manager {
	return &Manager{
		logger:    logger,
		conf:      conf,
		working:   NewWorkingStore(conf.WorkingTTL, conf.WorkingWindow),
		semantic:  semantic,
		episodic:  episodic,
		aggregate: aggregate,
	}
}

// NewInMemoryManager wires all four tiers to process-local stores.
func NewInMemoryManager(logger *slog.Logger, conf *config.MemoryConfig) *Manager {
	return NewManager(
		logger,
		conf,
		NewInMemorySemanticStore(),
		NewInMemoryEpisodicStore(),
		NewInMemoryAggregateStore(),
	)
}

// NewSqliteManager wires the durable tiers to one SQLite database with the
// sqlite-vec extension loaded. The Working tier stays process-local by
// design: its whole contract is a short TTL.
func NewSqliteManager(logger *slog.Logger, conf *config.MemoryConfig) (*Manager, error) {
	if conf.SqlitePath == "" {
		return nil, errors.New("sqlite memory path is not configured")
	}
	if _, err := os.Stat(filepath.Dir(conf.SqlitePath)); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(conf.SqlitePath), 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create sqlite directory for %s", conf.SqlitePath)
		}
		logger.Info("created sqlite directory", slog.String("path", conf.SqlitePath))
	}

	sqlite_vec.Auto()

	db, err := gorm.Open(
		sqlite.Open(
			fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", conf.SqlitePath),
		),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database at %s", conf.SqlitePath)
	}

	semantic, err := NewSqliteSemanticStore(db, conf.SemanticEmbeddingDim)
	if err != nil {
		return nil, err
	}
	episodic, err := NewSqliteEpisodicStore(db)
	if err != nil {
		return nil, err
	}
	aggregate, err := NewSqliteAggregateStore(db)
	if err != nil {
		return nil, err
	}

	return NewManager(logger, conf, semantic, episodic, aggregate), nil
}

// RecallWorking returns the bounded recent-interaction window for a scope.
// Expired and unknown scopes read as empty.
func (m *Manager) RecallWorking(ctx context.Context, agentID, scopeID string) []*entity.Interaction {
	return m.working.Recall(agentID, scopeID)
}

func (m *Manager) AppendWorking(ctx context.Context, agentID, scopeID string, interaction *entity.Interaction) {
	m.working.Append(agentID, scopeID, interaction)
}

// WorkingStore exposes the working tier for clock injection in tests.
func (m *Manager) WorkingStore() *WorkingStore {
	return m.working
}

func (m *Manager) RecallSemantic(ctx context.Context, agentID string, queryEmbedding []float32, topK int) ([]ScoredEntry, error) {
	if topK <= 0 {
		topK = m.conf.SemanticTopK
	}
	return m.semantic.Search(ctx, agentID, queryEmbedding, topK, m.conf.SemanticMinScore)
}

func (m *Manager) AppendSemantic(ctx context.Context, entry *SemanticEntry) error {
	return m.semantic.Append(ctx, entry)
}

func (m *Manager) AppendEpisodic(ctx context.Context, interaction *entity.Interaction) error {
	if err := m.episodic.Append(ctx, interaction); err != nil {
		return errors.Wrapf(errors.ErrStorageUnavailable, "episodic append failed: %v", err)
	}
	return nil
}

func (m *Manager) ListEpisodes(ctx context.Context, agentID, date string) ([]*entity.Interaction, error) {
	return m.episodic.ListByDate(ctx, agentID, date)
}

// PruneEpisodes deletes episodes older than the retention window. Runs
// out-of-band, never on the request path.
func (m *Manager) PruneEpisodes(ctx context.Context) (int64, error) {
	cutoff := nowUTC().Add(-m.conf.EpisodicRetention)
	pruned, err := m.episodic.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		m.logger.Info("pruned episodic memory", slog.Int64("episodes", pruned))
	}
	return pruned, nil
}

func (m *Manager) ReadAggregate(ctx context.Context, agentID string) (*Aggregate, error) {
	aggregate, err := m.aggregate.Load(ctx, agentID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStorageUnavailable, "aggregate load failed: %v", err)
	}
	return aggregate, nil
}

// WriteAggregate applies the mutator under a per-agent serialization
// guarantee: no two writers for the same identity race, writers for
// different identities are fully independent.
func (m *Manager) WriteAggregate(ctx context.Context, agentID string, mutate func(*Aggregate) error) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	aggregate, err := m.aggregate.Load(ctx, agentID)
	if err != nil {
		return errors.Wrapf(errors.ErrStorageUnavailable, "aggregate load failed: %v", err)
	}
	if err := mutate(aggregate); err != nil {
		return err
	}
	if err := m.aggregate.Save(ctx, aggregate); err != nil {
		return errors.Wrapf(errors.ErrStorageUnavailable, "aggregate save failed: %v", err)
	}
	return nil
}

func (m *Manager) lockFor(agentID string) *sync.Mutex {
	lock, _ := m.agentLocks.LoadOrStore(agentID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

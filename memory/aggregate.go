package memory

import (
	"context"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chittyos/chittyrouter/errors"
)

type (
	// AggregateStore persists one statistics record per agent identity.
	// Load returns a zeroed record for an unknown agent; consistency of
	// concurrent mutation is the Manager's job, not the store's.
	AggregateStore interface {
		Load(ctx context.Context, agentID string) (*Aggregate, error)
		Save(ctx context.Context, aggregate *Aggregate) error
	}

	AggregateRecord struct {
		AgentID   string `gorm:"primaryKey"`
		UpdatedAt time.Time

		TotalInteractions int64
		TotalCost         float64
		ProviderUsage     datatypes.JSONType[map[string]int64]
		TaskTypeUsage     datatypes.JSONType[map[string]int64]
		ModelScores       datatypes.JSONType[map[string]float64]
	}

	SqliteAggregateStore struct {
		db *gorm.DB
	}

	InMemoryAggregateStore struct {
		mu         sync.RWMutex
		aggregates map[string]*Aggregate

		// unavailable simulates a storage outage for degradation tests.
		unavailable bool
	}
)

func (AggregateRecord) TableName() string {
	return "aggregates"
}

var (
	_ AggregateStore = (*SqliteAggregateStore)(nil)
	_ AggregateStore = (*InMemoryAggregateStore)(nil)
)

func NewSqliteAggregateStore(db *gorm.DB) (*SqliteAggregateStore, error) {
	if err := db.AutoMigrate(&AggregateRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate aggregates table")
	}
	return &SqliteAggregateStore{db: db}, nil
}

func (s *SqliteAggregateStore) Load(ctx context.Context, agentID string) (*Aggregate, error) {
	var record AggregateRecord
	if r := s.db.WithContext(ctx).Find(&record, "agent_id = ?", agentID); r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to load aggregate")
	} else if r.RowsAffected == 0 {
		return NewAggregate(agentID), nil
	}

	aggregate := NewAggregate(agentID)
	aggregate.TotalInteractions = record.TotalInteractions
	aggregate.TotalCost = record.TotalCost
	if usage := record.ProviderUsage.Data(); usage != nil {
		aggregate.ProviderUsage = usage
	}
	if usage := record.TaskTypeUsage.Data(); usage != nil {
		aggregate.TaskTypeUsage = usage
	}
	if scores := record.ModelScores.Data(); scores != nil {
		aggregate.ModelScores = scores
	}
	return aggregate, nil
}

func (s *SqliteAggregateStore) Save(ctx context.Context, aggregate *Aggregate) error {
	record := AggregateRecord{
		AgentID:           aggregate.AgentID,
		TotalInteractions: aggregate.TotalInteractions,
		TotalCost:         aggregate.TotalCost,
		ProviderUsage:     datatypes.NewJSONType(aggregate.ProviderUsage),
		TaskTypeUsage:     datatypes.NewJSONType(aggregate.TaskTypeUsage),
		ModelScores:       datatypes.NewJSONType(aggregate.ModelScores),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return errors.Wrapf(err, "failed to save aggregate")
	}
	return nil
}

func NewInMemoryAggregateStore() *InMemoryAggregateStore {
	return &InMemoryAggregateStore{
		aggregates: make(map[string]*Aggregate),
	}
}

// SetUnavailable toggles simulated storage outage.
func (s *InMemoryAggregateStore) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

func (s *InMemoryAggregateStore) Load(ctx context.Context, agentID string) (*Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable {
		return nil, errors.Wrapf(errors.ErrStorageUnavailable, "aggregate store is down")
	}
	aggregate, ok := s.aggregates[agentID]
	if !ok {
		return NewAggregate(agentID), nil
	}
	return aggregate.Clone(), nil
}

func (s *InMemoryAggregateStore) Save(ctx context.Context, aggregate *Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return errors.Wrapf(errors.ErrStorageUnavailable, "aggregate store is down")
	}
	s.aggregates[aggregate.AgentID] = aggregate.Clone()
	return nil
}

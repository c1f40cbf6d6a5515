package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
)

type (
	// EpisodicStore is the append-only audit tier. Writes happen on the hot
	// path; retention pruning runs out-of-band through PruneBefore.
	EpisodicStore interface {
		Append(ctx context.Context, interaction *entity.Interaction) error
		ListByDate(ctx context.Context, agentID, date string) ([]*entity.Interaction, error)
		PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// EpisodeRecord is keyed episodes/{agentId}/{date}/{interactionId}.
	EpisodeRecord struct {
		AgentID       string `gorm:"primaryKey"`
		Date          string `gorm:"primaryKey"`
		InteractionID string `gorm:"primaryKey"`
		CreatedAt     time.Time `gorm:"index"`

		Record datatypes.JSONType[entity.Interaction]
	}

	SqliteEpisodicStore struct {
		db *gorm.DB
	}

	InMemoryEpisodicStore struct {
		mu       sync.RWMutex
		episodes []*entity.Interaction
	}
)

func (EpisodeRecord) TableName() string {
	return "episodes"
}

var (
	_ EpisodicStore = (*SqliteEpisodicStore)(nil)
	_ EpisodicStore = (*InMemoryEpisodicStore)(nil)
)

func episodeDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func NewSqliteEpisodicStore(db *gorm.DB) (*SqliteEpisodicStore, error) {
	if err := db.AutoMigrate(&EpisodeRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate episodes table")
	}
	return &SqliteEpisodicStore{db: db}, nil
}

func (s *SqliteEpisodicStore) Append(ctx context.Context, interaction *entity.Interaction) error {
	// Episodes carry the compacted record: metadata plus trimmed content.
	compacted := *interaction
	compacted.Context = nil

	record := EpisodeRecord{
		AgentID:       interaction.AgentID,
		Date:          episodeDate(interaction.Timestamp),
		InteractionID: interaction.ID,
		CreatedAt:     interaction.Timestamp,
		Record:        datatypes.NewJSONType(compacted),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrapf(err, "failed to append episode")
	}
	return nil
}

func (s *SqliteEpisodicStore) ListByDate(ctx context.Context, agentID, date string) ([]*entity.Interaction, error) {
	var records []EpisodeRecord
	if err := s.db.WithContext(ctx).
		Where("agent_id = ? AND date = ?", agentID, date).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list episodes")
	}

	episodes := make([]*entity.Interaction, 0, len(records))
	for _, record := range records {
		interaction := record.Record.Data()
		episodes = append(episodes, &interaction)
	}
	return episodes, nil
}

func (s *SqliteEpisodicStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&EpisodeRecord{})
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "failed to prune episodes")
	}
	return result.RowsAffected, nil
}

func NewInMemoryEpisodicStore() *InMemoryEpisodicStore {
	return &InMemoryEpisodicStore{}
}

func (s *InMemoryEpisodicStore) Append(ctx context.Context, interaction *entity.Interaction) error {
	compacted := *interaction
	compacted.Context = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes = append(s.episodes, &compacted)
	return nil
}

func (s *InMemoryEpisodicStore) ListByDate(ctx context.Context, agentID, date string) ([]*entity.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var episodes []*entity.Interaction
	for _, episode := range s.episodes {
		if episode.AgentID == agentID && episodeDate(episode.Timestamp) == date {
			episodes = append(episodes, episode)
		}
	}
	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].Timestamp.Before(episodes[j].Timestamp)
	})
	return episodes, nil
}

func (s *InMemoryEpisodicStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.episodes[:0]
	var pruned int64
	for _, episode := range s.episodes {
		if episode.Timestamp.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, episode)
	}
	s.episodes = kept
	return pruned, nil
}

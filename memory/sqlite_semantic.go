package memory

import (
	"context"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chittyos/chittyrouter/errors"
)

// SqliteSemanticStore implements SemanticStore on SQLite with the sqlite-vec
// extension. Embeddings live in a vec0 virtual table keyed by entry id.
type SqliteSemanticStore struct {
	db     *gorm.DB
	vecDim int
}

type SemanticEntryRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time

	AgentID  string `gorm:"index"`
	TaskType string
	Summary  string
	Provider string
	Success  bool
}

func (SemanticEntryRecord) TableName() string {
	return "semantic_entries"
}

var _ SemanticStore = (*SqliteSemanticStore)(nil)

func NewSqliteSemanticStore(db *gorm.DB, dimension int) (*SqliteSemanticStore, error) {
	store := &SqliteSemanticStore{
		db:     db,
		vecDim: dimension,
	}

	if err := db.AutoMigrate(&SemanticEntryRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate semantic entries table")
	}

	if err := store.createVectorTable(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SqliteSemanticStore) createVectorTable() error {
	var sqliteVersion, vecVersion string
	if err := s.db.Raw("SELECT sqlite_version(), vec_version()").Row().Scan(&sqliteVersion, &vecVersion); err != nil {
		return errors.Wrapf(err, "sqlite-vec extension not properly loaded")
	}

	createTableSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS semantic_vectors USING vec0(
			entry_id TEXT PRIMARY KEY,
			embedding float[%d]
		);
	`, s.vecDim)

	if err := s.db.Exec(createTableSQL).Error; err != nil {
		return errors.Wrapf(err, "failed to create semantic_vectors table")
	}

	return nil
}

func (s *SqliteSemanticStore) Append(ctx context.Context, entry *SemanticEntry) error {
	if entry == nil || entry.AgentID == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "semantic entry requires an agent id")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := SemanticEntryRecord{
			ID:        entry.ID,
			CreatedAt: entry.CreatedAt,
			AgentID:   entry.AgentID,
			TaskType:  entry.TaskType,
			Summary:   entry.Summary,
			Provider:  entry.Provider,
			Success:   entry.Success,
		}
		if err := tx.Create(&record).Error; err != nil {
			return errors.Wrapf(err, "failed to save semantic entry")
		}

		if len(entry.Embedding) == 0 {
			return nil
		}

		serialized, err := sqlite_vec.SerializeFloat32(entry.Embedding)
		if err != nil {
			return errors.Wrapf(err, "failed to serialize embedding")
		}
		if err := tx.Exec(
			"INSERT INTO semantic_vectors (entry_id, embedding) VALUES (?, ?)",
			entry.ID, serialized,
		).Error; err != nil {
			return errors.Wrapf(err, "failed to insert semantic vector")
		}

		return nil
	})
}

func (s *SqliteSemanticStore) Search(ctx context.Context, agentID string, queryEmbedding []float32, topK int, minScore float64) ([]ScoredEntry, error) {
	if len(queryEmbedding) == 0 {
		return []ScoredEntry{}, nil
	}

	var allowedIds []string
	if err := s.db.WithContext(ctx).
		Model(&SemanticEntryRecord{}).
		Where("agent_id = ?", agentID).
		Pluck("id", &allowedIds).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list entries for agent")
	}
	if len(allowedIds) == 0 {
		return []ScoredEntry{}, nil
	}

	serializedQuery, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize query embedding")
	}

	searchSQL := `
		SELECT entry_id, distance
		FROM semantic_vectors
		WHERE embedding MATCH ? AND entry_id IN ?
		ORDER BY distance
		LIMIT ?
	`
	rows, err := s.db.WithContext(ctx).Raw(searchSQL, serializedQuery, allowedIds, topK*2).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute similarity search")
	}
	defer rows.Close()

	distanceByID := make(map[string]float32)
	var ids []string
	for rows.Next() {
		var id string
		var distance float32
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, errors.Wrapf(err, "failed to scan result row")
		}
		ids = append(ids, id)
		distanceByID[id] = distance
	}
	if len(ids) == 0 {
		return []ScoredEntry{}, nil
	}

	var records []SemanticEntryRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to fetch semantic entries")
	}
	recordByID := make(map[string]SemanticEntryRecord, len(records))
	for _, record := range records {
		recordByID[record.ID] = record
	}

	results := make([]ScoredEntry, 0, len(ids))
	for _, id := range ids {
		record, ok := recordByID[id]
		if !ok {
			continue
		}
		score := 1.0 - float64(distanceByID[id])
		if score < minScore {
			continue
		}
		results = append(results, ScoredEntry{
			Entry: &SemanticEntry{
				ID:        record.ID,
				AgentID:   record.AgentID,
				TaskType:  record.TaskType,
				Summary:   record.Summary,
				Provider:  record.Provider,
				Success:   record.Success,
				CreatedAt: record.CreatedAt,
			},
			Score: score,
		})
	}

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

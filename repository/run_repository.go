package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/pharmacy-agent/models"
)

// MaxRunHistory bounds the recent-run history. Older runs survive only
// in the archive.
const MaxRunHistory = 200

// RunRepository is the bounded, newest-first run history.
type RunRepository interface {
	Append(ctx context.Context, run *models.RunRecord) error
	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]models.RunRecord, error)
}

const runHistoryKey = "runs:history"

type RedisRunRepository struct {
	client *redis.Client
}

func NewRedisRunRepository(client *redis.Client) *RedisRunRepository {
	return &RedisRunRepository{client: client}
}

func (r *RedisRunRepository) Append(ctx context.Context, run *models.RunRecord) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, runHistoryKey, data)
		pipe.LTrim(ctx, runHistoryKey, 0, MaxRunHistory-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append run: %w", err)
	}
	return nil
}

func (r *RedisRunRepository) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	stop := int64(MaxRunHistory - 1)
	if limit > 0 && limit < MaxRunHistory {
		stop = int64(limit - 1)
	}
	vals, err := r.client.LRange(ctx, runHistoryKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list runs: %w", err)
	}

	runs := make([]models.RunRecord, 0, len(vals))
	for _, v := range vals {
		var run models.RunRecord
		if err := json.Unmarshal([]byte(v), &run); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

type MemoryRunRepository struct {
	mu   sync.Mutex
	runs []models.RunRecord
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{}
}

func (r *MemoryRunRepository) Append(ctx context.Context, run *models.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append([]models.RunRecord{*run}, r.runs...)
	if len(r.runs) > MaxRunHistory {
		r.runs = r.runs[:MaxRunHistory]
	}
	return nil
}

func (r *MemoryRunRepository) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.RunRecord, n)
	copy(out, r.runs[:n])
	return out, nil
}

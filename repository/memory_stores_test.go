package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
)

func TestMemorySession_SingleSlotPerConversation(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	ctx := context.Background()

	s := &models.CheckoutSession{ID: "s1", ConversationID: "c1", Stage: models.CheckoutStageConfirm}
	require.NoError(t, repo.Create(ctx, s))

	err := repo.Create(ctx, &models.CheckoutSession{ID: "s2", ConversationID: "c1"})
	assert.ErrorIs(t, err, repository.ErrSessionExists)

	require.NoError(t, repo.Create(ctx, &models.CheckoutSession{ID: "s3", ConversationID: "c2"}))
}

func TestMemorySession_SaveRequiresExisting(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	ctx := context.Background()

	err := repo.Save(ctx, &models.CheckoutSession{ID: "s1", ConversationID: "c1"})
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	s := &models.CheckoutSession{ID: "s1", ConversationID: "c1", Stage: models.CheckoutStageConfirm}
	require.NoError(t, repo.Create(ctx, s))
	s.Stage = models.CheckoutStagePayment
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStagePayment, got.Stage)

	require.NoError(t, repo.Claim(ctx, "c1", "s1"))
	got, err = repo.Get(ctx, "c1")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySession_ClaimOnlyMatchingSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	ctx := context.Background()

	assert.ErrorIs(t, repo.Claim(ctx, "c1", "s1"), repository.ErrSessionNotFound)

	require.NoError(t, repo.Create(ctx, &models.CheckoutSession{ID: "s1", ConversationID: "c1"}))
	assert.ErrorIs(t, repo.Claim(ctx, "c1", "other"), repository.ErrSessionNotFound)

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestMemorySession_ClaimHasOneWinner(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.CheckoutSession{ID: "s1", ConversationID: "c1"}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	won, lost := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Claim(ctx, "c1", "s1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
			} else if errors.Is(err, repository.ErrSessionNotFound) {
				lost++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, 7, lost)
}

func TestMemorySession_GetReturnsCopy(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.CheckoutSession{
		ConversationID: "c1",
		Trace:          []models.TraceEvent{{Step: 1, Stage: models.StageIntentExtraction}},
	}))

	got, _ := repo.Get(ctx, "c1")
	got.Trace[0].Summary = "mutated"

	again, _ := repo.Get(ctx, "c1")
	assert.Empty(t, again.Trace[0].Summary)
}

func TestMemoryRuns_BoundedNewestFirst(t *testing.T) {
	repo := repository.NewMemoryRunRepository()
	ctx := context.Background()

	for i := 0; i < repository.MaxRunHistory+25; i++ {
		require.NoError(t, repo.Append(ctx, &models.RunRecord{RunID: fmt.Sprintf("run-%d", i)}))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, repository.MaxRunHistory)
	assert.Equal(t, fmt.Sprintf("run-%d", repository.MaxRunHistory+24), all[0].RunID)
	assert.Equal(t, "run-25", all[len(all)-1].RunID)

	top, _ := repo.List(ctx, 3)
	assert.Len(t, top, 3)
}

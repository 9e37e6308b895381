package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/services"
	"go.uber.org/zap"
)

type countingSource struct {
	products []models.Product
	err      error
	calls    int
}

func (s *countingSource) GetCatalog(ctx context.Context) ([]models.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func TestCatalogCache_ReusesSnapshotUntilInvalidated(t *testing.T) {
	src := &countingSource{products: []models.Product{paracetamol()}}
	cache := services.NewCatalogCache(src, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	_, err := cache.Snapshot(ctx)
	require.NoError(t, err)
	_, err = cache.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	cache.Invalidate()
	got, err := cache.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Len(t, got, 1)
}

func TestCatalogCache_ServesStaleSnapshotOnFailure(t *testing.T) {
	src := &countingSource{products: []models.Product{paracetamol()}}
	cache := services.NewCatalogCache(src, 0, nil, zap.NewNop())
	ctx := context.Background()

	_, err := cache.Snapshot(ctx)
	require.NoError(t, err)

	src.err = errors.New("throttled")
	cache.Invalidate()
	got, err := cache.Snapshot(ctx)

	require.NoError(t, err)
	assert.Equal(t, "ParacetamolXL", got[0].Name)
}

func TestCatalogCache_FirstLoadFailure(t *testing.T) {
	cache := services.NewCatalogCache(&countingSource{err: errors.New("down")}, 0, nil, zap.NewNop())

	_, err := cache.Snapshot(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrCollaboratorUnavailable)
}

func TestCatalogCache_SnapshotIsACopy(t *testing.T) {
	src := &countingSource{products: []models.Product{paracetamol()}}
	cache := services.NewCatalogCache(src, 0, nil, zap.NewNop())

	got, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	got[0].Name = "changed"

	again, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ParacetamolXL", again[0].Name)
}

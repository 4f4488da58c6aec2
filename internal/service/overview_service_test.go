package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/labelgrid/labelgrid-api/internal/history"
	"github.com/labelgrid/labelgrid-api/internal/models"
)

type fakeItemRepo struct {
	items map[string]models.Item
}

func (f *fakeItemRepo) GetByInstanceID(ctx context.Context, instanceID string) (models.Item, error) {
	if item, ok := f.items[instanceID]; ok {
		return item, nil
	}
	return models.Item{}, ErrNotFound
}

func (f *fakeItemRepo) List(ctx context.Context) ([]models.Item, error) {
	result := make([]models.Item, 0, len(f.items))
	for _, item := range f.items {
		result = append(result, item)
	}
	return result, nil
}

func (f *fakeItemRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeItemRepo) UpsertBatch(ctx context.Context, items []models.Item) error {
	if f.items == nil {
		f.items = make(map[string]models.Item)
	}
	for _, item := range items {
		f.items[item.InstanceID] = item
	}
	return nil
}

func (f *fakeItemRepo) IncrementDisplayed(ctx context.Context, instanceID string) error {
	item := f.items[instanceID]
	item.DisplayedCount++
	f.items[instanceID] = item
	return nil
}

func (f *fakeItemRepo) SetMedia(ctx context.Context, instanceID, mediaURL, mediaType string) error {
	item, ok := f.items[instanceID]
	if !ok {
		return ErrNotFound
	}
	item.MediaURL = mediaURL
	item.MediaType = mediaType
	f.items[instanceID] = item
	return nil
}

func TestOverviewCaching(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	annotators := &fakeAnnotatorRepo{annotators: []models.Annotator{
		{UserID: "alice", Phase: models.PhaseAnnotation},
		{UserID: "bob", Phase: models.PhaseDone},
		{UserID: "carol", Phase: models.PhaseDone},
	}}
	items := &fakeItemRepo{items: map[string]models.Item{
		"i1": {InstanceID: "i1"},
		"i2": {InstanceID: "i2"},
	}}
	annotations := &fakeAnnotationRepo{byUser: map[string][]models.Annotation{
		"alice": {{UserID: "alice", InstanceID: "i1"}},
	}}

	store := history.NewStore()
	store.Seed("alice", actionSeries(time.Now(), "alice", []time.Duration{0, time.Minute}, 900))

	svc := NewOverviewService(annotators, items, annotations, store, client, time.Minute, testLogger())

	first, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, int64(3), first.TotalAnnotators)
	require.Equal(t, int64(2), first.AnnotatorsByPhase[models.PhaseDone])
	require.Equal(t, int64(2), first.TotalItems)
	require.Equal(t, int64(1), first.TotalAnnotations)
	require.Equal(t, int64(2), first.TotalActions)
	require.InDelta(t, 2.0/3.0*100, first.CompletionRate, 1e-9)

	second, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.TotalAnnotators, second.TotalAnnotators)

	// Expiring the cache forces a recompute.
	server.FastForward(2 * time.Minute)
	third, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.False(t, third.CacheHit)
}

func TestOverviewWithoutCache(t *testing.T) {
	svc := NewOverviewService(
		&fakeAnnotatorRepo{}, &fakeItemRepo{}, &fakeAnnotationRepo{},
		history.NewStore(), nil, time.Minute, testLogger(),
	)

	response, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.False(t, response.CacheHit)
	require.Zero(t, response.TotalAnnotators)
	require.Zero(t, response.CompletionRate)
}

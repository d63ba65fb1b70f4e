package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

type fakeSubmitter struct {
	batches [][]model.PriceUpdate
	err     error
}

func (f *fakeSubmitter) BulkUpdatePrices(_ context.Context, updates []model.PriceUpdate) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.batches = append(f.batches, updates)
	return "task-1", nil
}

func fp(v float64) *float64 { return &v }

func TestAddFlushesAtThreshold(t *testing.T) {
	sub := &fakeSubmitter{}
	b := New(sub, 3)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 1, Price: fp(10)}))
	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 2, Price: fp(20)}))
	assert.Empty(t, sub.batches)
	assert.Equal(t, 2, b.PendingSize())

	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 3, Price: fp(30)}))
	require.Len(t, sub.batches, 1)
	assert.Len(t, sub.batches[0], 3)
	assert.Equal(t, 0, b.PendingSize())
}

func TestFlushConsolidatesDuplicates(t *testing.T) {
	sub := &fakeSubmitter{}
	b := New(sub, 100)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 1, Price: fp(10)}))
	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 1, Price: fp(12)}))
	require.NoError(t, b.Flush(ctx))

	require.Len(t, sub.batches, 1)
	require.Len(t, sub.batches[0], 1)
	assert.Equal(t, 12.0, *sub.batches[0][0].Price)
}

func TestFlushEmptyIsNoop(t *testing.T) {
	sub := &fakeSubmitter{}
	b := New(sub, 5)
	require.NoError(t, b.Flush(context.Background()))
	assert.Empty(t, sub.batches)
}

func TestFlushAllIgnoredSendsNothing(t *testing.T) {
	sub := &fakeSubmitter{}
	b := New(sub, 5)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 1, Ignore: true}))
	require.NoError(t, b.Flush(ctx))
	assert.Empty(t, sub.batches)
	assert.Equal(t, 0, b.PendingSize())
}

func TestFlushFailureRequeuesSnapshot(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("boom")}
	b := New(sub, 100)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 1, Price: fp(10)}))
	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 2, Price: fp(20)}))
	require.Error(t, b.Flush(ctx))
	assert.Equal(t, 2, b.PendingSize())

	// no update is lost: clearing the fault resubmits everything
	sub.err = nil
	require.NoError(t, b.Flush(ctx))
	require.Len(t, sub.batches, 1)
	assert.Len(t, sub.batches[0], 2)
	assert.Equal(t, 0, b.PendingSize())
}

func TestFlushFailureKeepsOrdering(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("boom")}
	b := New(sub, 2)
	ctx := context.Background()

	// second Add trips the threshold flush, which fails and re-queues
	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 1, Price: fp(10)}))
	require.Error(t, b.Add(ctx, model.PriceUpdate{ProductID: 2, Price: fp(20)}))

	sub.err = nil
	require.NoError(t, b.Add(ctx, model.PriceUpdate{ProductID: 3, Price: fp(30)}))
	require.NoError(t, b.Close(ctx))
	require.Len(t, sub.batches, 1)
	require.Len(t, sub.batches[0], 3)
	assert.Equal(t, int64(1), sub.batches[0][0].ProductID)
	assert.Equal(t, int64(2), sub.batches[0][1].ProductID)
	assert.Equal(t, int64(3), sub.batches[0][2].ProductID)
}

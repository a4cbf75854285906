package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	items     []Item[string]
	selectErr error
	failKeys  map[string]bool
	processed []string
	cancelOn  string
	cancel    context.CancelFunc
}

func (s *fakeStage) Name() string { return "fake" }

func (s *fakeStage) Select(ctx context.Context) ([]Item[string], error) {
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	return s.items, nil
}

func (s *fakeStage) Process(ctx context.Context, item Item[string]) error {
	s.processed = append(s.processed, item.Key)
	if s.cancelOn == item.Key {
		s.cancel()
	}
	if s.failKeys[item.Key] {
		return errors.New("boom")
	}
	return nil
}

func items(keys ...string) []Item[string] {
	out := make([]Item[string], 0, len(keys))
	for _, k := range keys {
		out = append(out, Item[string]{Key: k, Work: k})
	}
	return out
}

func TestRunTally(t *testing.T) {
	stage := &fakeStage{
		items:    items("a.pdf", "b.pdf", "c.pdf"),
		failKeys: map[string]bool{"b.pdf": true},
	}

	tally, err := Run[string](context.Background(), stage, Options{SkipExisting: true}, nil)
	require.NoError(t, err, "per-item faults do not fail the run")
	assert.Equal(t, Tally{Attempted: 3, Succeeded: 2, Failed: 1}, tally)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, stage.processed, "order is stable")
}

func TestRunSkipExisting(t *testing.T) {
	stage := &fakeStage{items: []Item[string]{
		{Key: "a.pdf", Done: true},
		{Key: "b.pdf"},
		{Key: "c.pdf", Done: true},
	}}

	tally, err := Run[string](context.Background(), stage, Options{SkipExisting: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, Tally{Attempted: 1, Succeeded: 1, Skipped: 2}, tally)
	assert.Equal(t, []string{"b.pdf"}, stage.processed)
}

func TestRunNoSkipReprocessesDone(t *testing.T) {
	stage := &fakeStage{items: []Item[string]{
		{Key: "a.pdf", Done: true},
		{Key: "b.pdf"},
	}}

	tally, err := Run[string](context.Background(), stage, Options{SkipExisting: false}, nil)
	require.NoError(t, err)
	assert.Equal(t, Tally{Attempted: 2, Succeeded: 2}, tally)
}

func TestRunLimitAppliedAfterSkip(t *testing.T) {
	stage := &fakeStage{items: []Item[string]{
		{Key: "a.pdf", Done: true},
		{Key: "b.pdf", Done: true},
		{Key: "c.pdf"},
		{Key: "d.pdf"},
		{Key: "e.pdf"},
	}}

	tally, err := Run[string](context.Background(), stage, Options{SkipExisting: true, Limit: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, Tally{Attempted: 2, Succeeded: 2, Skipped: 2}, tally)
	assert.Equal(t, []string{"c.pdf", "d.pdf"}, stage.processed, "limit counts processed items, not skipped ones")
}

func TestRunSelectErrorAborts(t *testing.T) {
	stage := &fakeStage{selectErr: errors.New("db gone")}

	_, err := Run[string](context.Background(), stage, Options{}, nil)
	assert.Error(t, err)
	assert.Empty(t, stage.processed)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stage := &fakeStage{
		items:    items("a.pdf", "b.pdf", "c.pdf"),
		cancelOn: "a.pdf",
		cancel:   cancel,
	}

	tally, err := Run[string](ctx, stage, Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a.pdf"}, stage.processed, "no new item starts after cancellation")
	assert.Equal(t, Tally{Attempted: 1, Succeeded: 1}, tally)
}

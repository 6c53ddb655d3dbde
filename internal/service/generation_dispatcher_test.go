package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/pkg/jobs"
)

type generatorStub struct {
	mu      sync.Mutex
	active  int32
	overlap bool
	calls   int
	delay   time.Duration
}

func (g *generatorStub) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error) {
	if atomic.AddInt32(&g.active, 1) > 1 {
		g.mu.Lock()
		g.overlap = true
		g.mu.Unlock()
	}
	defer atomic.AddInt32(&g.active, -1)

	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(g.delay):
	}
	return &dto.GenerationResult{Success: true, Statistics: dto.GenerationStatistics{TotalGroups: len(req.GroupIDs)}}, nil
}

func TestGenerationDispatcherRunsInlineWithoutQueue(t *testing.T) {
	generator := &generatorStub{}
	dispatcher := NewGenerationDispatcher(generator, nil)

	result, err := dispatcher.Generate(context.Background(), dto.GenerateScheduleRequest{GroupIDs: []string{"g-1"}})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, generator.calls)
}

func TestGenerationDispatcherSerializesRuns(t *testing.T) {
	generator := &generatorStub{delay: 10 * time.Millisecond}
	dispatcher := NewGenerationDispatcher(generator, zap.NewNop())
	queue := jobs.NewQueue("schedule-generation", dispatcher.Handle, jobs.QueueConfig{Workers: 1, BufferSize: 8, MaxRetries: -1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()
	dispatcher.AttachQueue(queue)

	var wg sync.WaitGroup
	results := make([]*dto.GenerationResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			groups := make([]string, i+1)
			result, err := dispatcher.Generate(context.Background(), dto.GenerateScheduleRequest{GroupIDs: groups})
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.False(t, generator.overlap, "generation runs must not overlap")
	assert.Equal(t, 4, generator.calls)
	for i, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, i+1, result.Statistics.TotalGroups)
	}
}

func TestGenerationDispatcherCallerCancellation(t *testing.T) {
	generator := &generatorStub{delay: time.Second}
	dispatcher := NewGenerationDispatcher(generator, nil)
	queue := jobs.NewQueue("schedule-generation", dispatcher.Handle, jobs.QueueConfig{Workers: 1, MaxRetries: -1})
	queue.Start(context.Background())
	defer queue.Stop()
	dispatcher.AttachQueue(queue)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := dispatcher.Generate(ctx, dto.GenerateScheduleRequest{GroupIDs: []string{"g-1"}})
	require.Error(t, err)

	assert.Eventually(t, func() bool { return queue.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestGenerationDispatcherRejectsForeignPayload(t *testing.T) {
	dispatcher := NewGenerationDispatcher(&generatorStub{}, nil)
	err := dispatcher.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: "not a job"})
	assert.Error(t, err)
}

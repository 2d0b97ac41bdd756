package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingGenerator struct {
	release  chan struct{}
	inflight int32
	peak     int32
	err      error
}

func (g *blockingGenerator) GenerateRecipe(ctx context.Context, prompt string) (*common.RecipeOutput, error) {
	n := atomic.AddInt32(&g.inflight, 1)
	for {
		p := atomic.LoadInt32(&g.peak)
		if n <= p || atomic.CompareAndSwapInt32(&g.peak, p, n) {
			break
		}
	}
	defer atomic.AddInt32(&g.inflight, -1)

	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return nil, g.err
	}
	return &common.RecipeOutput{Title: prompt}, nil
}

func TestManagerGenerate(t *testing.T) {
	m := NewManager(&blockingGenerator{}, config.QueueConfig{Workers: 2, MaxSize: 4})
	defer m.Close()

	out, err := m.GenerateRecipe(context.Background(), "Pancakes")
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", out.Title)
	assert.Equal(t, 1, m.GetQueueStatus().ProcessedCount)
}

func TestManagerPropagatesError(t *testing.T) {
	m := NewManager(&blockingGenerator{err: errors.New("overloaded")}, config.QueueConfig{Workers: 1, MaxSize: 1})
	defer m.Close()

	_, err := m.GenerateRecipe(context.Background(), "x")
	assert.EqualError(t, err, "overloaded")
}

func TestManagerLimitsConcurrency(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{})}
	m := NewManager(gen, config.QueueConfig{Workers: 2, MaxSize: 10})
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.GenerateRecipe(context.Background(), "p")
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&gen.peak), int32(2))
}

func TestManagerQueueFull(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{})}
	m := NewManager(gen, config.QueueConfig{Workers: 1, MaxSize: 1})
	defer func() {
		close(gen.release)
		m.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 第一個請求佔用 worker，第二個佔用隊列
	go m.GenerateRecipe(ctx, "a")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&gen.inflight) == 1 }, time.Second, time.Millisecond)
	go m.GenerateRecipe(ctx, "b")
	require.Eventually(t, func() bool { return m.GetQueueStatus().QueueLength == 1 }, time.Second, time.Millisecond)

	_, err := m.GenerateRecipe(ctx, "c")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestManagerClosed(t *testing.T) {
	m := NewManager(&blockingGenerator{}, config.QueueConfig{Workers: 1, MaxSize: 1})
	m.Close()

	_, err := m.GenerateRecipe(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
}

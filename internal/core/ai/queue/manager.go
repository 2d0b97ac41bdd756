package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrQueueFull 隊列已滿
var ErrQueueFull = errors.New("generation queue is full")

// ErrClosed 隊列已關閉
var ErrClosed = errors.New("generation queue is closed")

// Generator 結構化食譜生成
type Generator interface {
	GenerateRecipe(ctx context.Context, prompt string) (*common.RecipeOutput, error)
}

// Request 隊列請求
type Request struct {
	Context context.Context
	Prompt  string
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Recipe *common.RecipeOutput
	Error  error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 以固定數量的 worker 呼叫生成服務，限制同時進行的模型請求
type Manager struct {
	next      Generator
	cfg       config.QueueConfig
	queue     chan *Request
	done      chan struct{}
	processed int64
	wg        sync.WaitGroup
	once      sync.Once
}

// NewManager 創建隊列並啟動 worker
func NewManager(next Generator, cfg config.QueueConfig) *Manager {
	m := &Manager{
		next:  next,
		cfg:   cfg,
		queue: make(chan *Request, cfg.MaxSize),
		done:  make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}

	common.LogInfo("生成隊列已啟動",
		zap.Int("workers", cfg.Workers),
		zap.Int("max_queue_size", cfg.MaxSize),
	)
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case req := <-m.queue:
			m.process(req)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) process(req *Request) {
	defer atomic.AddInt64(&m.processed, 1)

	// 排隊期間已取消的請求不再呼叫模型
	if err := req.Context.Err(); err != nil {
		req.Result <- Result{Error: err}
		return
	}

	out, err := m.next.GenerateRecipe(req.Context, req.Prompt)
	req.Result <- Result{Recipe: out, Error: err}
}

// GenerateRecipe 排入隊列並等待結果
func (m *Manager) GenerateRecipe(ctx context.Context, prompt string) (*common.RecipeOutput, error) {
	req := &Request{
		Context: ctx,
		Prompt:  prompt,
		Result:  make(chan Result, 1),
	}

	select {
	case <-m.done:
		return nil, ErrClosed
	default:
	}

	select {
	case m.queue <- req:
	default:
		common.LogWarn("生成隊列已滿", zap.Int("queue_length", len(m.queue)))
		return nil, ErrQueueFull
	}

	select {
	case res := <-req.Result:
		return res.Recipe, res.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetQueueStatus 取得隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.cfg.MaxSize,
		Workers:        m.cfg.Workers,
	}
}

// Close 停止 worker，已排隊但未處理的請求由呼叫端的 context 結束
func (m *Manager) Close() {
	m.once.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

package service

import (
	"context"
	"sync"

	"quiz_engine/internal/config"
	"quiz_engine/internal/model"
	"quiz_engine/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// QuestionSource 题库的窄接口，由 repository.QuestionRepository 实现
type QuestionSource interface {
	GetCandidateIDs(ctx context.Context, filter model.PartFilter) ([]string, error)
	GetQuestionsByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]model.Question, error)
}

type FetchOptions struct {
	ChunkSize            int
	ChunkConcurrency     int
	CandidateConcurrency int
	Retry                RetryPolicy
}

const defaultChunkSize = 20

func FetchOptionsFromConfig(cfg config.QuizConfig) FetchOptions {
	return FetchOptions{
		ChunkSize:            cfg.ChunkSize,
		ChunkConcurrency:     cfg.ChunkConcurrency,
		CandidateConcurrency: cfg.CandidateConcurrency,
		Retry: RetryPolicy{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: cfg.RetryBaseDelay,
		},
	}
}

func (o FetchOptions) normalized() FetchOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.ChunkConcurrency <= 0 {
		o.ChunkConcurrency = 1
	}
	if o.CandidateConcurrency <= 0 {
		o.CandidateConcurrency = 1
	}
	if o.Retry.Attempts <= 0 {
		o.Retry.Attempts = 1
	}
	return o
}

// FetchResult 分块拉取的结果；被跳过的块中的题目记录在 MissingIDs
type FetchResult struct {
	Questions     map[string]model.Question
	MissingIDs    []string
	SkippedChunks int
}

func (r *FetchResult) Partial() bool {
	return len(r.MissingIDs) > 0
}

// QuestionFetcher 按块拉取题目，信号量限制并发，每块独立重试，一块失败不影响其他块
type QuestionFetcher struct {
	source QuestionSource

	mu   sync.RWMutex
	opts FetchOptions
}

func NewQuestionFetcher(source QuestionSource, opts FetchOptions) *QuestionFetcher {
	return &QuestionFetcher{source: source, opts: opts.normalized()}
}

func (f *QuestionFetcher) Options() FetchOptions {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opts
}

// SetOptions 配置热更新时调用
func (f *QuestionFetcher) SetOptions(opts FetchOptions) {
	f.mu.Lock()
	f.opts = opts.normalized()
	f.mu.Unlock()
}

func (f *QuestionFetcher) CandidateIDs(ctx context.Context, filter model.PartFilter) ([]string, error) {
	return retryRead(ctx, "candidate_ids", f.Options().Retry, func(ctx context.Context) ([]string, error) {
		return f.source.GetCandidateIDs(ctx, filter)
	})
}

func (f *QuestionFetcher) FetchQuestions(ctx context.Context, ids []string, includeDeleted bool) *FetchResult {
	opts := f.Options()
	unique := dedupeIDs(ids)
	chunks := chunkIDs(unique, opts.ChunkSize)

	results := make([][]model.Question, len(chunks))
	failed := make([]bool, len(chunks))

	sem := semaphore.NewWeighted(int64(opts.ChunkConcurrency))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			// context 已结束，剩余块全部视为跳过
			for j := i; j < len(chunks); j++ {
				failed[j] = true
			}
			break
		}
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			defer sem.Release(1)

			qs, err := retryRead(ctx, "questions_by_ids", opts.Retry, func(ctx context.Context) ([]model.Question, error) {
				return f.source.GetQuestionsByIDs(ctx, chunk, includeDeleted)
			})
			if err != nil {
				logger.Log.Error("question chunk skipped",
					zap.Int("chunk", i),
					zap.Int("size", len(chunk)),
					zap.Error(err),
				)
				failed[i] = true
				return
			}
			results[i] = qs
		}(i, chunk)
	}
	wg.Wait()

	out := &FetchResult{Questions: make(map[string]model.Question, len(unique))}
	for i := range chunks {
		if failed[i] {
			out.SkippedChunks++
			continue
		}
		for _, q := range results[i] {
			out.Questions[q.ID] = q
		}
	}
	for _, id := range unique {
		if _, ok := out.Questions[id]; !ok {
			out.MissingIDs = append(out.MissingIDs, id)
		}
	}
	return out
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultChunkSize
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

package service

import (
	"context"

	"quiz_engine/internal/model"
	"quiz_engine/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Selection 抽中的一道题及其所属部分
type Selection struct {
	QuestionID string
	Part       model.Part
}

type PartShortfall struct {
	PartID    string `json:"partId"`
	PartName  string `json:"partName"`
	Requested int    `json:"requested"`
	Selected  int    `json:"selected"`
}

type SelectionResult struct {
	Items       []Selection
	Shortfalls  []PartShortfall
	FailedParts []string
}

func (r *SelectionResult) IDs() []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.QuestionID
	}
	return ids
}

type candidateLister interface {
	CandidateIDs(ctx context.Context, filter model.PartFilter) ([]string, error)
	Options() FetchOptions
}

// PartSelector 各部分候选集并发获取，抽样严格按声明顺序串行进行：
// 靠前的部分优先占用同时满足多个部分筛选条件的题目。
type PartSelector struct {
	candidates candidateLister
	sampler    Sampler
}

func NewPartSelector(candidates candidateLister, sampler Sampler) *PartSelector {
	if sampler == nil {
		sampler = RandomSampler{}
	}
	return &PartSelector{candidates: candidates, sampler: sampler}
}

func (s *PartSelector) Select(ctx context.Context, parts []model.Part) *SelectionResult {
	pools := s.fetchPools(ctx, parts)

	result := &SelectionResult{}
	used := make(map[string]struct{})
	for i, part := range parts {
		if pools[i].err != nil {
			result.FailedParts = append(result.FailedParts, part.ID)
		}

		available := make([]string, 0, len(pools[i].ids))
		seen := make(map[string]struct{}, len(pools[i].ids))
		for _, id := range pools[i].ids {
			if _, taken := used[id]; taken {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			available = append(available, id)
		}

		s.sampler.Shuffle(available)
		n := part.Count
		if n > len(available) {
			n = len(available)
		}
		if n < 0 {
			n = 0
		}

		for _, id := range available[:n] {
			used[id] = struct{}{}
			result.Items = append(result.Items, Selection{QuestionID: id, Part: part})
		}

		if n < part.Count {
			result.Shortfalls = append(result.Shortfalls, PartShortfall{
				PartID:    part.ID,
				PartName:  part.Name,
				Requested: part.Count,
				Selected:  n,
			})
			logger.Log.Warn("part pool smaller than requested count",
				zap.String("part", part.Name),
				zap.Int("requested", part.Count),
				zap.Int("selected", n),
			)
		}
	}
	return result
}

type candidatePool struct {
	ids []string
	err error
}

// fetchPools 每个部分一个任务，任务之间互不取消
func (s *PartSelector) fetchPools(ctx context.Context, parts []model.Part) []candidatePool {
	pools := make([]candidatePool, len(parts))

	var g errgroup.Group
	g.SetLimit(s.candidates.Options().CandidateConcurrency)
	for i := range parts {
		i := i
		g.Go(func() error {
			ids, err := s.candidates.CandidateIDs(ctx, parts[i].Filter)
			if err != nil {
				logger.Log.Error("candidate fetch failed, part degraded to empty pool",
					zap.String("part", parts[i].Name),
					zap.Error(err),
				)
			}
			pools[i] = candidatePool{ids: ids, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return pools
}

func (s *PartSelector) readRetry() RetryPolicy {
	return s.candidates.Options().Retry
}

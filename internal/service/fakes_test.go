package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"quiz_engine/internal/model"
	"quiz_engine/internal/util"
)

// fakeQuestionSource 内存题库；候选集按 filter.Subjects[0] 查找
type fakeQuestionSource struct {
	mu         sync.Mutex
	questions  map[string]model.Question
	pools      map[string][]string
	candErr    map[string]error
	chunkErr   func(ids []string, call int) error
	chunkCalls int
	chunkSizes []int
}

func newFakeQuestionSource(questions ...model.Question) *fakeQuestionSource {
	src := &fakeQuestionSource{
		questions: make(map[string]model.Question),
		pools:     make(map[string][]string),
		candErr:   make(map[string]error),
	}
	for _, q := range questions {
		src.questions[q.ID] = q
	}
	return src
}

func subjectOf(filter model.PartFilter) string {
	if len(filter.Subjects) == 0 {
		return ""
	}
	return filter.Subjects[0]
}

func (s *fakeQuestionSource) GetCandidateIDs(_ context.Context, filter model.PartFilter) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subjectOf(filter)
	if err := s.candErr[key]; err != nil {
		return nil, err
	}
	ids := make([]string, len(s.pools[key]))
	copy(ids, s.pools[key])
	return ids, nil
}

func (s *fakeQuestionSource) GetQuestionsByIDs(_ context.Context, ids []string, includeDeleted bool) ([]model.Question, error) {
	s.mu.Lock()
	s.chunkCalls++
	call := s.chunkCalls
	s.chunkSizes = append(s.chunkSizes, len(ids))
	errFn := s.chunkErr
	s.mu.Unlock()

	if errFn != nil {
		if err := errFn(ids, call); err != nil {
			return nil, err
		}
	}

	var out []model.Question
	for _, id := range ids {
		q, ok := s.questions[id]
		if !ok {
			continue
		}
		if q.IsDeleted() && !includeDeleted {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *fakeQuestionSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkCalls
}

// identitySampler 不打乱顺序
type identitySampler struct{}

func (identitySampler) Shuffle([]string) {}

// reverseSampler 倒序，便于验证抽样确实经过 Sampler
type reverseSampler struct{}

func (reverseSampler) Shuffle(ids []string) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}

type fakeResultStore struct {
	mu          sync.Mutex
	results     map[string]*model.QuizResult
	createErr   error
	updateErr   error
	createCalls int
	updateCalls int
	findCalls   int
	findErr     func(call int) error
	nextID      int
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[string]*model.QuizResult)}
}

func (s *fakeResultStore) Create(_ context.Context, r *model.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	if r.ID == "" {
		s.nextID++
		r.ID = fmt.Sprintf("result-%d", s.nextID)
	}
	s.results[r.ID] = r.Clone()
	return nil
}

func (s *fakeResultStore) Update(_ context.Context, r *model.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	s.results[r.ID] = r.Clone()
	return nil
}

func (s *fakeResultStore) FindByID(_ context.Context, id string) (*model.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		if err := s.findErr(s.findCalls); err != nil {
			return nil, err
		}
	}
	r, ok := s.results[id]
	if !ok {
		return nil, util.ErrResultNotFound
	}
	return r.Clone(), nil
}

func (s *fakeResultStore) ListByStatus(_ context.Context, status model.ResultStatus, page, limit int) ([]model.QuizResult, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.QuizResult
	for _, r := range s.results {
		if r.Status == status {
			all = append(all, *r.Clone())
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *fakeResultStore) stored(id string) *model.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[id]
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
	panics  bool
}

func (a *recordingAuditor) Emit(_ context.Context, entry AuditEntry) error {
	if a.panics {
		panic("audit sink exploded")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

type fakeConfigStore struct {
	configs map[string]*model.QuizConfig
	err     error
}

func (s *fakeConfigStore) GetConfig(_ context.Context, id string, includeDeleted bool) (*model.QuizConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.configs[id]
	if !ok {
		return nil, nil
	}
	if cfg.IsDeleted() && !includeDeleted {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

type fakeAuditLogs struct {
	logs map[string][]model.AuditLog
}

func (f *fakeAuditLogs) ListByResult(_ context.Context, resultID string) ([]model.AuditLog, error) {
	return f.logs[resultID], nil
}

var errBoom = errors.New("boom")

func question(id string, qt model.QuestionType, answer string) model.Question {
	return model.Question{
		UUIDBase:      model.UUIDBase{ID: id},
		Type:          qt,
		Text:          "text of " + id,
		CorrectAnswer: answer,
		Explanation:   "because " + id,
		Score:         99,
	}
}

func testFetchOptions() FetchOptions {
	return FetchOptions{
		ChunkSize:            20,
		ChunkConcurrency:     3,
		CandidateConcurrency: 3,
		Retry:                RetryPolicy{Attempts: 3, BaseDelay: 0},
	}
}

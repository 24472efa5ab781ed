package service

import (
	"context"
	"fmt"
	"testing"

	"quiz_engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func part(id string, subject string, count, score int) model.Part {
	return model.Part{
		ID:     id,
		Name:   "Part " + id,
		Filter: model.PartFilter{Subjects: []string{subject}},
		Count:  count,
		Score:  score,
	}
}

func TestSelectEarlierPartClaimsSharedCandidates(t *testing.T) {
	src := newFakeQuestionSource()
	src.pools["math"] = []string{"q1", "q2", "q3", "q4"}
	fetcher := NewQuestionFetcher(src, testFetchOptions())

	parts := []model.Part{part("A", "math", 3, 2), part("B", "math", 2, 5)}

	for i := 0; i < 20; i++ {
		res := NewPartSelector(fetcher, RandomSampler{}).Select(context.Background(), parts)

		require.Len(t, res.Items, 4)
		seen := map[string]bool{}
		for j, item := range res.Items {
			assert.False(t, seen[item.QuestionID], "duplicate %s", item.QuestionID)
			seen[item.QuestionID] = true
			if j < 3 {
				assert.Equal(t, "A", item.Part.ID)
			} else {
				assert.Equal(t, "B", item.Part.ID)
			}
		}

		require.Len(t, res.Shortfalls, 1)
		assert.Equal(t, PartShortfall{PartID: "B", PartName: "Part B", Requested: 2, Selected: 1}, res.Shortfalls[0])
		assert.Empty(t, res.FailedParts)
	}
}

func TestSelectUsesInjectedSampler(t *testing.T) {
	src := newFakeQuestionSource()
	src.pools["math"] = []string{"q1", "q2", "q3", "q4"}
	fetcher := NewQuestionFetcher(src, testFetchOptions())

	res := NewPartSelector(fetcher, reverseSampler{}).Select(context.Background(), []model.Part{part("A", "math", 2, 1)})

	assert.Equal(t, []string{"q4", "q3"}, res.IDs())
}

func TestSelectFullLengthWhenSupplySuffices(t *testing.T) {
	src := newFakeQuestionSource()
	// 各部分候选集互相重叠，但总量充足
	for s := 0; s < 3; s++ {
		var ids []string
		for i := 0; i < 30; i++ {
			ids = append(ids, fmt.Sprintf("q%d", s*10+i))
		}
		src.pools[fmt.Sprintf("s%d", s)] = ids
	}
	fetcher := NewQuestionFetcher(src, testFetchOptions())
	parts := []model.Part{part("A", "s0", 10, 1), part("B", "s1", 10, 1), part("C", "s2", 10, 1)}

	for i := 0; i < 50; i++ {
		res := NewPartSelector(fetcher, nil).Select(context.Background(), parts)
		ids := res.IDs()
		require.Len(t, ids, 30)

		unique := map[string]struct{}{}
		for _, id := range ids {
			unique[id] = struct{}{}
		}
		assert.Len(t, unique, 30)
		assert.Empty(t, res.Shortfalls)
	}
}

func TestSelectDedupesWithinPool(t *testing.T) {
	src := newFakeQuestionSource()
	src.pools["math"] = []string{"q1", "q1", "q2"}
	fetcher := NewQuestionFetcher(src, testFetchOptions())

	res := NewPartSelector(fetcher, identitySampler{}).Select(context.Background(), []model.Part{part("A", "math", 3, 1)})

	assert.Equal(t, []string{"q1", "q2"}, res.IDs())
}

func TestSelectFailedPartDoesNotAffectSiblings(t *testing.T) {
	src := newFakeQuestionSource()
	src.pools["math"] = []string{"q1", "q2"}
	src.pools["art"] = []string{"q3"}
	src.candErr["art"] = errBoom
	fetcher := NewQuestionFetcher(src, testFetchOptions())

	parts := []model.Part{part("A", "art", 1, 1), part("B", "math", 2, 1)}
	res := NewPartSelector(fetcher, identitySampler{}).Select(context.Background(), parts)

	assert.Equal(t, []string{"A"}, res.FailedParts)
	assert.Equal(t, []string{"q1", "q2"}, res.IDs())
	require.Len(t, res.Shortfalls, 1)
	assert.Equal(t, "A", res.Shortfalls[0].PartID)
}

func TestSelectZeroCountPart(t *testing.T) {
	src := newFakeQuestionSource()
	src.pools["math"] = []string{"q1"}
	fetcher := NewQuestionFetcher(src, testFetchOptions())

	res := NewPartSelector(fetcher, identitySampler{}).Select(context.Background(), []model.Part{part("A", "math", 0, 1), part("B", "math", 1, 1)})

	require.Len(t, res.Items, 1)
	assert.Equal(t, "B", res.Items[0].Part.ID)
	assert.Empty(t, res.Shortfalls)
}

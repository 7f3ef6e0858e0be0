package stats

import (
	"container/heap"
	"sort"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
)

// rankedState is the running count and recency of one key in a ranked
// dimension (actor, source IP)
type rankedState struct {
	count        int64
	lastActivity time.Time
}

// rankedHeap is a min-heap of size K keyed by running count, ties broken
// by least-recent activity so that on eviction the more recently active
// key wins.
type rankedHeap []audit.RankedKey

func (h rankedHeap) Len() int { return len(h) }

func (h rankedHeap) Less(i, j int) bool {
	if h[i].Count != h[j].Count {
		return h[i].Count < h[j].Count
	}
	return h[i].LastActivity.Before(h[j].LastActivity)
}

func (h rankedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankedHeap) Push(x interface{}) {
	*h = append(*h, x.(audit.RankedKey))
}

func (h *rankedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// selectTopK returns the K highest-count keys, descending by count, ties
// broken by most recent activity. A size-K min-heap keeps the selection
// bounded regardless of how many keys the dimension has accumulated.
func selectTopK(states map[string]*rankedState, k int) []audit.RankedKey {
	if k <= 0 || len(states) == 0 {
		return nil
	}

	h := make(rankedHeap, 0, k)
	heap.Init(&h)

	for key, state := range states {
		candidate := audit.RankedKey{
			Key:          key,
			Count:        state.count,
			LastActivity: state.lastActivity,
		}

		if len(h) < k {
			heap.Push(&h, candidate)
			continue
		}

		min := h[0]
		if candidate.Count > min.Count ||
			(candidate.Count == min.Count && candidate.LastActivity.After(min.LastActivity)) {
			h[0] = candidate
			heap.Fix(&h, 0)
		}
	}

	result := []audit.RankedKey(h)
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].LastActivity.After(result[j].LastActivity)
	})

	return result
}

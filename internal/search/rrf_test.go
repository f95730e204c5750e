package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/model"
)

func hits(ids ...string) []model.SearchHit {
	out := make([]model.SearchHit, len(ids))
	for i, id := range ids {
		out[i] = model.SearchHit{DocID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func TestFuseRRFDocInBothListsOutranksSingleList(t *testing.T) {
	lists := []rankedList{
		{name: "keyword", hits: hits("a", "b", "c")},
		{name: "vector", hits: hits("b", "d")},
	}

	fused := fuseRRF(lists, 10, DefaultRRFConstant)
	require.NotEmpty(t, fused)

	// "b" appears in both lists, so it beats "a" despite ranking below it
	// in the keyword list.
	assert.Equal(t, "b", fused[0].Hit.DocID)
	expected := 1.0/float64(DefaultRRFConstant+2) + 1.0/float64(DefaultRRFConstant+1)
	assert.InDelta(t, expected, fused[0].RRFScore, 1e-12)
	assert.Equal(t, map[string]int{"keyword": 2, "vector": 1}, fused[0].PerListRank)
}

func TestFuseRRFIndependentOfListOrder(t *testing.T) {
	keyword := rankedList{name: "keyword", hits: hits("a", "b", "c")}
	vector := rankedList{name: "vector", hits: hits("c", "a")}

	forward := fuseRRF([]rankedList{keyword, vector}, 10, DefaultRRFConstant)
	reversed := fuseRRF([]rankedList{vector, keyword}, 10, DefaultRRFConstant)

	require.Equal(t, len(forward), len(reversed))
	for i := range forward {
		assert.Equal(t, forward[i].Hit.DocID, reversed[i].Hit.DocID)
		assert.InDelta(t, forward[i].RRFScore, reversed[i].RRFScore, 1e-12)
	}
}

func TestFuseRRFTiesBreakByDocID(t *testing.T) {
	// Two documents each at rank 1 of exactly one list: identical scores.
	lists := []rankedList{
		{name: "keyword", hits: hits("z")},
		{name: "vector", hits: hits("a")},
	}

	fused := fuseRRF(lists, 10, DefaultRRFConstant)
	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].Hit.DocID)
	assert.Equal(t, "z", fused[1].Hit.DocID)
}

func TestFuseRRFTruncatesToK(t *testing.T) {
	lists := []rankedList{{name: "keyword", hits: hits("a", "b", "c", "d", "e")}}
	fused := fuseRRF(lists, 3, DefaultRRFConstant)
	assert.Len(t, fused, 3)
}

func TestFuseRRFSingleListPreservesOrder(t *testing.T) {
	lists := []rankedList{{name: "vector", hits: hits("x", "y", "z")}}
	fused := fuseRRF(lists, 10, DefaultRRFConstant)
	require.Len(t, fused, 3)
	assert.Equal(t, "x", fused[0].Hit.DocID)
	assert.Equal(t, "y", fused[1].Hit.DocID)
	assert.Equal(t, "z", fused[2].Hit.DocID)
}

func TestFuseRRFKeepsStrongestDisplayScore(t *testing.T) {
	lists := []rankedList{
		{name: "keyword", hits: []model.SearchHit{{DocID: "a", Score: 1.5, Summary: "keyword copy"}}},
		{name: "vector", hits: []model.SearchHit{{DocID: "a", Score: 0.93}}},
	}
	fused := fuseRRF(lists, 10, DefaultRRFConstant)
	require.Len(t, fused, 1)
	assert.Equal(t, 1.5, fused[0].Hit.Score)
	assert.Equal(t, "keyword copy", fused[0].Hit.Summary)
}

func TestFuseRRFEmptyInput(t *testing.T) {
	assert.Empty(t, fuseRRF(nil, 10, DefaultRRFConstant))
}

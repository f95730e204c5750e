// Package search implements concurrent keyword+vector retrieval against
// the statement store, fused with reciprocal rank fusion.
package search

import (
	"sort"

	"finsight/internal/model"
)

// DefaultRRFConstant is the standard k constant from the RRF paper.
const DefaultRRFConstant = 60

// rankedList is one named, ordered result list entering fusion.
type rankedList struct {
	name string
	hits []model.SearchHit
}

// fuseRRF combines ranked lists by reciprocal rank fusion:
// score(doc) = sum over lists containing doc of 1/(kRRF + rank), rank
// 1-based. Documents absent from a list simply omit that term, so scores
// are always >= 0 and monotonic in per-list rank.
//
// Ordering is fused score descending; exact ties break by document ID
// ascending, which keeps the output deterministic and independent of the
// input order of the lists.
func fuseRRF(lists []rankedList, k, kRRF int) []model.FusedResult {
	if kRRF <= 0 {
		kRRF = DefaultRRFConstant
	}

	fused := make(map[string]*model.FusedResult)

	for _, list := range lists {
		for i, hit := range list.hits {
			rank := i + 1
			entry, ok := fused[hit.DocID]
			if !ok {
				entry = &model.FusedResult{
					Hit:         hit,
					PerListRank: make(map[string]int, len(lists)),
				}
				fused[hit.DocID] = entry
			}
			// Keep the strongest per-strategy score for display.
			if hit.Score > entry.Hit.Score {
				entry.Hit = hit
			}
			entry.RRFScore += 1.0 / float64(kRRF+rank)
			entry.PerListRank[list.name] = rank
		}
	}

	results := make([]model.FusedResult, 0, len(fused))
	for _, entry := range fused {
		results = append(results, *entry)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		return results[i].Hit.DocID < results[j].Hit.DocID
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

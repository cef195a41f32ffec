package search

import (
	"github.com/poiesic/sprintly/match"
	"github.com/poiesic/sprintly/storage"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, filter storage.EntityFilter)
	AfterQueryEmbedding(dimensions int)
	AfterSimilaritySearch(hits []*storage.SimilarEntity)
	Candidate(candidate match.Candidate)
	Finish(results []match.Match)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ storage.EntityFilter)           {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)                        {}
func (n *noopMonitor) AfterSimilaritySearch(_ []*storage.SimilarEntity) {}
func (n *noopMonitor) Candidate(_ match.Candidate)                      {}
func (n *noopMonitor) Finish(_ []match.Match)                           {}

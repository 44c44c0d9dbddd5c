// Package graph keeps the directed "beat" relation recorded by judgments and
// answers reachability questions over it.
package graph

import (
	"sync"

	"github.com/okian/pairrank/internal/domain/model"
)

// Graph is a winner -> loser adjacency maintained incrementally.
type Graph struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[string]map[string]struct{})}
}

// Add records winner beating loser. Duplicate edges are ignored.
func (g *Graph) Add(winner, loser string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(winner, loser)
}

func (g *Graph) add(winner, loser string) {
	out, ok := g.edges[winner]
	if !ok {
		out = make(map[string]struct{})
		g.edges[winner] = out
	}
	out[loser] = struct{}{}
}

// Rebuild replaces the adjacency with the edges implied by history.
func (g *Graph) Rebuild(history []model.Judgment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = make(map[string]map[string]struct{}, len(history))
	for _, j := range history {
		g.add(j.Winner, j.Loser)
	}
}

// Reset drops every edge.
func (g *Graph) Reset() {
	g.mu.Lock()
	g.edges = make(map[string]map[string]struct{})
	g.mu.Unlock()
}

// Edges returns the number of distinct winner -> loser edges.
func (g *Graph) Edges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, out := range g.edges {
		n += len(out)
	}
	return n
}

// CanReach reports whether a chain of recorded wins leads from a to b.
// A node always reaches itself.
func (g *Graph) CanReach(a, b string) bool {
	return g.Path(a, b) != nil
}

// Path returns the shortest chain a, ..., b of recorded wins, or nil when b
// is not reachable from a. Path(a, a) is []string{a}.
func (g *Graph) Path(a, b string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if a == b {
		return []string{a}
	}

	parent := map[string]string{a: ""}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.edges[cur] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			if next == b {
				return trace(parent, a, b)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func trace(parent map[string]string, from, to string) []string {
	var rev []string
	for n := to; ; n = parent[n] {
		rev = append(rev, n)
		if n == from {
			break
		}
	}
	path := make([]string, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

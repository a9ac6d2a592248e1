package graph

import (
	"strings"

	"swarm1.dev/core/swarmerr"
)

type color int

const (
	white color = iota // unvisited
	gray               // in-stack
	black              // done
)

// DetectCycle runs depth-first search with three-color marking over the
// graph's adjacency (requires ∪ edges). It returns a
// CYCLE_DETECTED error naming one concrete cycle path, or nil if the graph
// is acyclic.
func DetectCycle(s *Spec) error {
	colors := make(map[string]color, len(s.nodeByID))
	for id := range s.nodeByID {
		colors[id] = white
	}

	var path []string
	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = gray
		path = append(path, id)
		for _, next := range s.adjacency[id] {
			switch colors[next] {
			case gray:
				cycle := append(append([]string{}, path...), next)
				return swarmerr.Newf(swarmerr.CycleDetected, "dependency cycle detected: %s", strings.Join(cycle, " -> "))
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		colors[id] = black
		return nil
	}

	// Iterate in declaration order so cycle reporting is deterministic
	// for identical input.
	for _, n := range s.Nodes {
		if colors[n.ID] == white {
			if err := visit(n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

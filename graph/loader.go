package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"swarm1.dev/core/swarmerr"
)

// Load reads and validates a graph specification from a YAML file at path,
// in the order the design requires: schema first, then edge-reference
// validation, then cycle detection, then each node's typed params. Returns
// an *swarmerr.Error of kind FileNotFound, InvalidSchema, InvalidEdge,
// CycleDetected, or InvalidParams on failure.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, swarmerr.Newf(swarmerr.FileNotFound, "graph file not found: %s", path)
		}
		return nil, swarmerr.Wrap(swarmerr.FileNotFound, fmt.Sprintf("reading graph file %s", path), err)
	}
	return Parse(raw)
}

// Parse validates and constructs a Spec from raw YAML bytes.
func Parse(raw []byte) (*Spec, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, swarmerr.Wrap(swarmerr.InvalidSchema, "graph file is not valid YAML", err)
	}
	// jsonschema/v6 validates JSON-native values; round-trip through JSON
	// so yaml.v3's decoded maps/slices match what the schema expects.
	jsonBytes, err := json.Marshal(generic)
	if err != nil {
		return nil, swarmerr.Wrap(swarmerr.InvalidSchema, "graph file could not be normalized to JSON", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		return nil, swarmerr.Wrap(swarmerr.InvalidSchema, "graph file could not be normalized to JSON", err)
	}
	if err := ValidateSchema(jsonDoc); err != nil {
		return nil, err
	}

	var spec Spec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, swarmerr.Wrap(swarmerr.InvalidSchema, "graph file does not match expected structure", err)
	}

	if err := spec.build(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// build constructs nodeByID, adjacency, and indegree, then runs edge,
// cycle, and per-node params validation. Called once by Parse; never re-run
// after Load.
func (s *Spec) build() error {
	s.nodeByID = make(map[string]*Node, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if _, dup := s.nodeByID[n.ID]; dup {
			return swarmerr.Newf(swarmerr.InvalidSchema, "duplicate node id %q", n.ID)
		}
		s.nodeByID[n.ID] = n
	}

	s.adjacency = make(map[string][]string, len(s.Nodes))
	s.indegree = make(map[string]int, len(s.Nodes))
	for id := range s.nodeByID {
		s.indegree[id] = 0
	}

	addEdge := func(from, to string) error {
		if _, ok := s.nodeByID[from]; !ok {
			return swarmerr.Newf(swarmerr.InvalidEdge, "edge references unknown node id %q", from)
		}
		if _, ok := s.nodeByID[to]; !ok {
			return swarmerr.Newf(swarmerr.InvalidEdge, "edge references unknown node id %q", to)
		}
		s.adjacency[from] = append(s.adjacency[from], to)
		s.indegree[to]++
		return nil
	}

	for _, n := range s.Nodes {
		for _, req := range n.Requires {
			if err := addEdge(req, n.ID); err != nil {
				return err
			}
		}
	}
	for _, e := range s.Edges {
		if err := addEdge(e[0], e[1]); err != nil {
			return err
		}
	}

	if err := DetectCycle(s); err != nil {
		return err
	}
	for _, n := range s.Nodes {
		if _, err := ParamsFor(n); err != nil {
			return err
		}
	}
	return nil
}

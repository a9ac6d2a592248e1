// Package graph parses, validates, and analyzes declarative DAG
// specifications: the YAML graph file format, JSON-schema validation, and
// cycle detection that gate a run before any node executes.
package graph

// NodeType enumerates the seven node kinds a graph may declare.
type NodeType string

const (
	TypeServer     NodeType = "server"
	TypePlaywright NodeType = "playwright"
	TypeLighthouse NodeType = "lighthouse"
	TypeCVF        NodeType = "cvf"
	TypeAgentTask  NodeType = "agent_task"
	TypePackage    NodeType = "package"
	TypeReport     NodeType = "report"
)

var validNodeTypes = map[NodeType]bool{
	TypeServer:     true,
	TypePlaywright: true,
	TypeLighthouse: true,
	TypeCVF:        true,
	TypeAgentTask:  true,
	TypePackage:    true,
	TypeReport:     true,
}

// Edge is a 2-tuple (from, to) of node ids, read literally from the graph
// file's `edges[]` list.
type Edge [2]string

// Retries overrides the default retry count for a single node.
type Retries struct {
	Max int `yaml:"max"`
}

// Defaults carries the graph-level fallbacks applied when a node does not
// override retries, backoff, or timeout.
type Defaults struct {
	Retries   Retries `yaml:"retries"`
	BackoffMs int     `yaml:"backoff_ms"`
	TimeoutMs int     `yaml:"timeout_ms"`
}

// Node is one unit of work in the graph. Params is intentionally untyped
// at this layer and decoded into a typed payload by ParamsFor once the
// node's type is known.
type Node struct {
	ID        string         `yaml:"id"`
	Type      NodeType       `yaml:"type"`
	Requires  []string       `yaml:"requires"`
	Resources []string       `yaml:"resources"`
	Params    map[string]any `yaml:"params"`
	Env       map[string]string `yaml:"env"`
	Retries   *Retries       `yaml:"retries"`
	TimeoutMs *int           `yaml:"timeout_ms"`
}

// EffectiveRetries resolves the node's retry override against the graph
// default, falling back to 1 when neither is set.
func (n Node) EffectiveRetries(d Defaults) int {
	if n.Retries != nil && n.Retries.Max > 0 {
		return n.Retries.Max
	}
	if d.Retries.Max > 0 {
		return d.Retries.Max
	}
	return 1
}

// EffectiveTimeoutMs resolves the node's timeout override against the graph
// default, falling back to the type's own default when neither is set.
func (n Node) EffectiveTimeoutMs(d Defaults, typeDefault int) int {
	if n.TimeoutMs != nil && *n.TimeoutMs > 0 {
		return *n.TimeoutMs
	}
	if d.TimeoutMs > 0 {
		return d.TimeoutMs
	}
	return typeDefault
}

// Spec is the immutable, loaded graph specification.
type Spec struct {
	Version     string   `yaml:"version"`
	ProjectID   string   `yaml:"project_id"`
	Concurrency int      `yaml:"concurrency"`
	Defaults    Defaults `yaml:"defaults"`
	Nodes       []Node   `yaml:"nodes"`
	Edges       []Edge   `yaml:"edges"`

	// FailFast cancels in-flight sibling nodes on the first node failure
	// instead of the default drain-what-you-can policy. Defaults to false.
	FailFast bool `yaml:"fail_fast"`

	// nodeByID and adjacency/indegree are computed by Load, not decoded
	// from YAML.
	nodeByID  map[string]*Node
	adjacency map[string][]string
	indegree  map[string]int
}

// NodeByID returns the node with the given id, built during Load.
func (s *Spec) NodeByID(id string) (*Node, bool) {
	n, ok := s.nodeByID[id]
	return n, ok
}

// Successors returns the set of node ids that depend on id, the union of
// requires-reversed and explicit edges.
func (s *Spec) Successors(id string) []string {
	return s.adjacency[id]
}

// Indegree returns the number of unsatisfied predecessors for id.
func (s *Spec) Indegree(id string) int {
	return s.indegree[id]
}

// EffectiveConcurrency returns the graph's concurrency, defaulting to 3
// when unset (0 in the decoded YAML).
func (s *Spec) EffectiveConcurrency() int {
	if s.Concurrency <= 0 {
		return 3
	}
	return s.Concurrency
}

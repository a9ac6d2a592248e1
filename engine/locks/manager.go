// Package locks implements the resource lock manager: sorted
// acquisition for deadlock avoidance, per-resource FIFO waiter queues, and
// advisory cross-process hint files.
package locks

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"swarm1.dev/core/swarmerr"
)

// waiter is a single blocked acquirer on one resource's queue.
type waiter struct {
	nodeID  string
	granted chan struct{}
}

// Manager holds, in-memory, the authoritative state of every named
// resource lock for one run. Hint files in hintDir are advisory only — the
// map below is the source of truth within this process.
type Manager struct {
	mu      sync.Mutex
	holders map[string]string     // resource -> holding node id
	queues  map[string][]*waiter  // resource -> FIFO waiters
	hintDir string
}

// NewManager constructs a lock manager whose hint files live under
// hintDir (typically runs/locks/).
func NewManager(hintDir string) *Manager {
	return &Manager{
		holders: make(map[string]string),
		queues:  make(map[string][]*waiter),
		hintDir: hintDir,
	}
}

// Acquire blocks the calling node until it holds every resource listed,
// following the sorted-acquisition protocol that avoids hold-and-wait
// cycles: resources are sorted lexicographically and acquired one at a
// time, in that order, by every caller.
func (m *Manager) Acquire(ctx context.Context, nodeID string, resources []string) error {
	if len(resources) == 0 {
		return nil
	}
	sorted := append([]string{}, resources...)
	sort.Strings(sorted)

	acquired := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if err := m.acquireOne(ctx, nodeID, r); err != nil {
			// Roll back whatever we already hold so a canceled or
			// deadlocked acquisition doesn't leak partial holds.
			m.Release(nodeID, acquired)
			return err
		}
		acquired = append(acquired, r)
	}
	return nil
}

func (m *Manager) acquireOne(ctx context.Context, nodeID, resource string) error {
	m.mu.Lock()
	holder, held := m.holders[resource]
	if !held {
		m.holders[resource] = nodeID
		m.mu.Unlock()
		m.writeHint(resource, nodeID)
		return nil
	}
	if holder == nodeID {
		m.mu.Unlock()
		return nil
	}
	w := &waiter{nodeID: nodeID, granted: make(chan struct{})}
	m.queues[resource] = append(m.queues[resource], w)
	m.mu.Unlock()

	select {
	case <-w.granted:
		m.writeHint(resource, nodeID)
		return nil
	case <-ctx.Done():
		m.removeWaiter(resource, w)
		return swarmerr.Wrap(swarmerr.Deadlock, "lock acquisition canceled for resource "+resource, ctx.Err())
	}
}

func (m *Manager) removeWaiter(resource string, target *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[resource]
	for i, w := range q {
		if w == target {
			m.queues[resource] = append(q[:i], q[i+1:]...)
			return
		}
	}
}

// Release gives up the named resources, in any order, promoting the next
// FIFO waiter (if any) to holder.
func (m *Manager) Release(nodeID string, resources []string) {
	for _, r := range resources {
		m.releaseOne(nodeID, r)
	}
}

func (m *Manager) releaseOne(nodeID, resource string) {
	m.mu.Lock()
	if m.holders[resource] != nodeID {
		m.mu.Unlock()
		return
	}
	q := m.queues[resource]
	if len(q) == 0 {
		delete(m.holders, resource)
		m.mu.Unlock()
		m.removeHint(resource)
		return
	}
	next := q[0]
	m.queues[resource] = q[1:]
	m.holders[resource] = next.nodeID
	m.mu.Unlock()
	close(next.granted)
}

// Holder returns the current holder of resource, if any, for test and
// diagnostic use.
func (m *Manager) Holder(resource string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holders[resource]
	return h, ok
}

// ReleaseAll drops every lock this manager knows about and clears all hint
// files, used on graph teardown.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	resources := make([]string, 0, len(m.holders))
	for r := range m.holders {
		resources = append(resources, r)
	}
	m.holders = make(map[string]string)
	m.queues = make(map[string][]*waiter)
	m.mu.Unlock()

	for _, r := range resources {
		m.removeHint(r)
	}
}

func (m *Manager) writeHint(resource, nodeID string) {
	if m.hintDir == "" {
		return
	}
	_ = os.MkdirAll(m.hintDir, 0o755)
	_ = os.WriteFile(m.hintPath(resource), []byte(nodeID), 0o644)
}

func (m *Manager) removeHint(resource string) {
	if m.hintDir == "" {
		return
	}
	_ = os.Remove(m.hintPath(resource))
}

func (m *Manager) hintPath(resource string) string {
	return filepath.Join(m.hintDir, resource+".lock")
}

// GCStaleHints removes hint files in hintDir whose resource name has no
// corresponding in-memory holder, logging nothing itself — callers (engine
// state resume) decide how to report the removals. Hint files are read
// exactly once, at resume, purely for this cleanup; they are never
// consulted to decide an in-memory holder.
func (m *Manager) GCStaleHints() ([]string, error) {
	if m.hintDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(m.hintDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		resource := trimLockSuffix(e.Name())
		if _, held := m.holders[resource]; held {
			continue
		}
		if err := os.Remove(filepath.Join(m.hintDir, e.Name())); err == nil {
			removed = append(removed, resource)
		}
	}
	return removed, nil
}

func trimLockSuffix(name string) string {
	const suffix = ".lock"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

package exec

import (
	"context"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
)

// ServerCommand is the mock staging server's launch command, overridable
// in tests.
var ServerCommand = []string{"node", "mocks/server.js"}

// ServerHandle tracks whether this run started the staging mock server, so
// the scheduler's teardown step only kills a process this run actually
// spawned.
type ServerHandle struct {
	mu          sync.Mutex
	cmd         *exec.Cmd
	startedByUs bool
}

// StartedByUs reports whether this run's server executor spawned the mock
// server, as opposed to finding it already healthy.
func (h *ServerHandle) StartedByUs() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedByUs
}

// Teardown kills the process group this run started, if any, and gives the
// port a moment to release.
func (h *ServerHandle) Teardown() {
	h.mu.Lock()
	cmd := h.cmd
	started := h.startedByUs
	h.cmd, h.startedByUs = nil, false
	h.mu.Unlock()

	if !started || cmd == nil || cmd.Process == nil {
		return
	}
	_ = killTree(cmd)
	time.Sleep(250 * time.Millisecond)
}

func (h *ServerHandle) spawn(env map[string]string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd != nil {
		return nil // already spawned by a concurrent node needing the same server
	}
	cmd := exec.Command(ServerCommand[0], ServerCommand[1:]...)
	cmd.Env = envSlice(env)
	configureDetached(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	h.cmd, h.startedByUs = cmd, true
	return nil
}

// ServerExecutor implements the "server" node type: probe
// ${STAGING_URL}<health_path>, spawn the mock server if unhealthy, and poll
// every 500ms until healthy or the node's timeout elapses.
type ServerExecutor struct{}

func (ServerExecutor) DefaultTimeoutMs() int { return 15000 }

func (ServerExecutor) Execute(ctx context.Context, in Input, deps *Deps) error {
	stagingURL := in.Env["STAGING_URL"]
	if stagingURL == "" {
		stagingURL = "http://127.0.0.1:3000"
	}
	healthPath := "/health"
	if p, ok := in.Params.(graph.ServerParams); ok && p.HealthPath != "" {
		healthPath = p.HealthPath
	}
	healthURL := strings.TrimRight(stagingURL, "/") + healthPath

	if probeHealth(ctx, healthURL) {
		return nil
	}
	if deps.Server != nil {
		if err := deps.Server.spawn(in.Env); err != nil {
			return swarmerr.Wrap(swarmerr.CommandError, "spawning mock server", err)
		}
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		if probeHealth(ctx, healthURL) {
			return nil
		}
		select {
		case <-ctx.Done():
			return swarmerr.Newf(swarmerr.Timeout, "server at %s did not become healthy", healthURL)
		case <-ticker.C:
		}
	}
}

func probeHealth(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

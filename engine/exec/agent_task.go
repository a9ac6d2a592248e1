package exec

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
)

// AgentTaskExecutor implements the "agent_task" node type. It writes a placeholder
// result card recording the prompt and a generated card id, standing in for
// the external agent runtime's eventual result.
type AgentTaskExecutor struct{}

func (AgentTaskExecutor) DefaultTimeoutMs() int { return 30000 }

func (AgentTaskExecutor) Execute(ctx context.Context, in Input, deps *Deps) error {
	p, ok := in.Params.(graph.AgentTaskParams)
	if !ok {
		return swarmerr.Newf(swarmerr.InvalidParams, "node %q: expected AgentTaskParams", in.Node.ID)
	}
	dir := filepath.Join(deps.BaseDir, "agents", in.Node.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return swarmerr.Wrap(swarmerr.CommandError, "creating agent task result directory", err)
	}
	card := map[string]any{
		"card_id":    uuid.NewString(),
		"node_id":    in.Node.ID,
		"run_id":     in.RunID,
		"prompt":     p.Prompt,
		"status":     "placeholder",
		"created_at": time.Now().UTC(),
	}
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return swarmerr.Wrap(swarmerr.InvalidParams, "marshaling agent task result", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "result.json"), data, 0o644); err != nil {
		return swarmerr.Wrap(swarmerr.CommandError, "writing agent task result", err)
	}
	return nil
}

package graph

import (
	"encoding/json"
	"fmt"

	"swarm1.dev/core/swarmerr"
)

// ServerParams configures a "server" node.
type ServerParams struct {
	HealthPath string `json:"health_path"`
}

// PlaywrightParams configures a "playwright" node. Specs must be non-empty.
type PlaywrightParams struct {
	Config string   `json:"config"`
	Specs  []string `json:"specs"`
}

// LighthouseParams configures a "lighthouse" node. URL and Out are required.
type LighthouseParams struct {
	URL string `json:"url"`
	Out string `json:"out"`
}

// CVFParams configures a "cvf" node. AUV is required.
type CVFParams struct {
	AUV string `json:"auv"`
}

// AgentTaskParams configures an "agent_task" node.
type AgentTaskParams struct {
	Prompt string `json:"prompt"`
}

// PackageParams configures a "package" node.
type PackageParams struct {
	AUV      string `json:"auv"`
	OutDir   string `json:"out_dir"`
	Manifest string `json:"manifest"`
}

// ReportParams configures a "report" node.
type ReportParams struct {
	AUV    string `json:"auv"`
	OutDir string `json:"out_dir"`
}

// decodeParams round-trips the node's generic params map through JSON
// into dst, validating the tagged variant at load time rather than at
// dispatch.
func decodeParams(raw map[string]any, dst any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return swarmerr.Wrap(swarmerr.InvalidParams, "encoding node params", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return swarmerr.Wrap(swarmerr.InvalidParams, "decoding node params", err)
	}
	return nil
}

// ParamsFor validates and decodes a node's params into the typed payload
// for its declared type, returning UNKNOWN_TYPE for an unrecognized type and
// INVALID_PARAMS for a type whose required fields are missing.
func ParamsFor(n Node) (any, error) {
	if !validNodeTypes[n.Type] {
		return nil, swarmerr.Newf(swarmerr.UnknownType, "node %q has unknown type %q", n.ID, n.Type)
	}
	switch n.Type {
	case TypeServer:
		var p ServerParams
		if err := decodeParams(n.Params, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypePlaywright:
		var p PlaywrightParams
		if err := decodeParams(n.Params, &p); err != nil {
			return nil, err
		}
		if len(p.Specs) == 0 {
			return nil, swarmerr.Newf(swarmerr.InvalidParams, "node %q: playwright requires non-empty params.specs", n.ID)
		}
		return p, nil
	case TypeLighthouse:
		var p LighthouseParams
		if err := decodeParams(n.Params, &p); err != nil {
			return nil, err
		}
		if p.URL == "" {
			return nil, swarmerr.Newf(swarmerr.InvalidParams, "node %q: lighthouse requires params.url", n.ID)
		}
		if p.Out == "" {
			return nil, swarmerr.Newf(swarmerr.InvalidParams, "node %q: lighthouse requires params.out", n.ID)
		}
		return p, nil
	case TypeCVF:
		var p CVFParams
		if err := decodeParams(n.Params, &p); err != nil {
			return nil, err
		}
		if p.AUV == "" {
			return nil, swarmerr.Newf(swarmerr.InvalidParams, "node %q: cvf requires params.auv", n.ID)
		}
		return p, nil
	case TypeAgentTask:
		var p AgentTaskParams
		if err := decodeParams(n.Params, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypePackage:
		var p PackageParams
		if err := decodeParams(n.Params, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeReport:
		var p ReportParams
		if err := decodeParams(n.Params, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, swarmerr.Newf(swarmerr.UnknownType, "node %q has unknown type %q", n.ID, n.Type)
	}
}

// AUVID derives the AUV identifier for a node: params.auv when the type
// carries one, otherwise a prefix match against the node id of the form
// AUV-dddd.
func AUVID(n Node) string {
	if v, ok := n.Params["auv"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if len(n.ID) >= 8 && n.ID[:4] == "AUV-" {
		digits := n.ID[4:8]
		allDigits := true
		for _, c := range digits {
			if c < '0' || c > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			return n.ID[:8]
		}
	}
	return fmt.Sprintf("node-%s", n.ID)
}

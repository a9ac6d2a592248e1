package exec

import (
	"context"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
)

// PackageExecutor implements the "package" node type: it invokes the
// out-of-scope package builder library to turn an AUV's
// artifacts into a package manifest.
type PackageExecutor struct{}

func (PackageExecutor) DefaultTimeoutMs() int { return 60000 }

func (PackageExecutor) Execute(ctx context.Context, in Input, deps *Deps) error {
	p, ok := in.Params.(graph.PackageParams)
	if !ok {
		return swarmerr.Newf(swarmerr.InvalidParams, "node %q: expected PackageParams", in.Node.ID)
	}
	if deps.PackageBuilder == nil {
		return swarmerr.Newf(swarmerr.PackageFailed, "node %q: no package builder configured", in.Node.ID)
	}
	if _, err := deps.PackageBuilder(p.AUV, p.OutDir, p.Manifest); err != nil {
		return swarmerr.Wrap(swarmerr.PackageFailed, "package build failed", err)
	}
	return nil
}

// ReportExecutor implements the "report" node type: it invokes the
// out-of-scope report builder library to render an AUV's
// verification report.
type ReportExecutor struct{}

func (ReportExecutor) DefaultTimeoutMs() int { return 60000 }

func (ReportExecutor) Execute(ctx context.Context, in Input, deps *Deps) error {
	p, ok := in.Params.(graph.ReportParams)
	if !ok {
		return swarmerr.Newf(swarmerr.InvalidParams, "node %q: expected ReportParams", in.Node.ID)
	}
	if deps.ReportBuilder == nil {
		return swarmerr.Newf(swarmerr.ReportFailed, "node %q: no report builder configured", in.Node.ID)
	}
	if _, err := deps.ReportBuilder(p.AUV, p.OutDir); err != nil {
		return swarmerr.Wrap(swarmerr.ReportFailed, "report build failed", err)
	}
	return nil
}

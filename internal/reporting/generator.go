package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"airdrop-scout/internal/pipeline"
)

// Output file names written by Generator.WriteFiles.
const (
	ReportFile = "ELIGIBILITY_REPORT.md"
	ScoresFile = "scores.csv"
)

// Evaluator produces evaluation results.
type Evaluator interface {
	Evaluate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Generator produces report files for an address.
type Generator struct {
	evaluator Evaluator
	outputDir string
}

// NewGenerator creates a new report generator writing into outputDir.
func NewGenerator(evaluator Evaluator, outputDir string) *Generator {
	return &Generator{evaluator: evaluator, outputDir: outputDir}
}

// Generate evaluates req and builds its report.
func (g *Generator) Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, *Report, error) {
	res, err := g.evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return res, BuildReport(res), nil
}

// WriteFiles evaluates req and writes the Markdown report and the score CSV
// into a per-address directory. Returns the written paths.
func (g *Generator) WriteFiles(ctx context.Context, req pipeline.Request) ([]string, error) {
	res, report, err := g.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(g.outputDir, res.Address)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{ReportFile, renderReport(report)},
		{ScoresFile, RenderCSV(report.Projects)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

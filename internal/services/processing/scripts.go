package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/common"
)

// tracebackPattern matches diagnostic-stream output that indicates a script
// failed even when it manages to exit. The pipeline scripts are Python, so a
// traceback header or an uncaught error line on stderr is treated as failure.
var tracebackPattern = regexp.MustCompile(`Traceback \(most recent call last\)|(?m)^\w*Error:`)

// scriptRunner invokes the external extraction scripts as subprocesses. Each
// script takes no arguments and communicates through its side effects on the
// shared spreadsheet files.
type scriptRunner struct {
	pipeline *common.PipelineConfig
	logger   arbor.ILogger
}

func newScriptRunner(pipeline *common.PipelineConfig, logger arbor.ILogger) *scriptRunner {
	return &scriptRunner{
		pipeline: pipeline,
		logger:   logger,
	}
}

// validate checks the interpreter and every configured script file. Called
// once at startup; failures are fatal to bootstrap.
func (r *scriptRunner) validate() error {
	if _, err := exec.LookPath(r.pipeline.Interpreter); err != nil {
		return fmt.Errorf("pipeline interpreter %q not found: %w", r.pipeline.Interpreter, err)
	}

	scripts := append([]string{}, r.pipeline.Scripts...)
	if r.pipeline.MissingDataScript != "" {
		scripts = append(scripts, r.pipeline.MissingDataScript)
	}
	for _, name := range scripts {
		path := r.pipeline.ScriptPath(name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("pipeline script %q not accessible: %w", path, err)
		}
	}
	return nil
}

// run executes one script and blocks until it exits. A non-zero exit or a
// traceback-shaped stderr aborts the run.
func (r *scriptRunner) run(ctx context.Context, name string) error {
	path := r.pipeline.ScriptPath(name)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.pipeline.Interpreter, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	r.logger.Info().Str("script", name).Msg("Executing pipeline script")

	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		return fmt.Errorf("script %s failed: %w (stderr: %s)", name, err, truncate(stderr.String(), 500))
	}

	if tracebackPattern.MatchString(stderr.String()) {
		return fmt.Errorf("script %s reported an error on stderr: %s", name, truncate(stderr.String(), 500))
	}

	r.logger.Info().
		Str("script", name).
		Dur("duration", duration).
		Msg("Pipeline script completed")

	return nil
}

// columnGap describes missing values for one column of one category.
type columnGap struct {
	Count int   `json:"count"`
	Rows  []int `json:"rows"`
}

// missingDataReport is the JSON object the missing-data script prints to
// standard output.
type missingDataReport struct {
	Success bool                            `json:"success"`
	Details map[string]map[string]columnGap `json:"details"`
}

// runMissingDataCheck executes the missing-data variant and parses its JSON
// stdout contract.
func (r *scriptRunner) runMissingDataCheck(ctx context.Context) (*missingDataReport, error) {
	if r.pipeline.MissingDataScript == "" {
		return nil, nil
	}

	path := r.pipeline.ScriptPath(r.pipeline.MissingDataScript)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.pipeline.Interpreter, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("missing-data script failed: %w (stderr: %s)", err, truncate(stderr.String(), 500))
	}

	var report missingDataReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		return nil, fmt.Errorf("missing-data script produced invalid JSON: %w", err)
	}
	return &report, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

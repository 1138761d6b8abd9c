package queryengine

import (
	"time"

	"github.com/cheshire-mcp/cheshire/pkg/logging"
)

// stageName enumerates the fixed six stages of the staged engine's
// execution pipeline. The order here is the order they run
// in; it is not configurable.
type stageName string

const (
	stageParse    stageName = "parse"
	stageValidate stageName = "validate"
	stageConvert  stageName = "convert"
	stageOptimize stageName = "optimize"
	stageExecute  stageName = "execute"
	stageTransform stageName = "transform"
)

// runStage times fn and logs its outcome, with the stage name, under the
// staged engine's subsystem tag. It returns fn's error unchanged; Execute
// wraps it with the stage it failed at so the returned error names where
// things went wrong.
func runStage(engineName string, stage stageName, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		logging.Debug("queryengine", "engine=%s stage=%s failed after %s: %v", engineName, stage, elapsed, err)
		return err
	}
	logging.Debug("queryengine", "engine=%s stage=%s completed in %s", engineName, stage, elapsed)
	return nil
}

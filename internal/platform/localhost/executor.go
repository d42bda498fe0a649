package localhost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gauntlet/internal/driver"
	"gauntlet/internal/platform"
	"gauntlet/internal/results"
	"gauntlet/internal/testdef"
	"gauntlet/pkg/logging"
)

// maxCaseOutput bounds the captured output embedded per case so a chatty
// command cannot blow up the report artifact. The tail is kept because
// failures explain themselves at the end.
const maxCaseOutput = 64 << 10

func (c *controller) executeOne(ctx context.Context, item platform.WorkItem) results.CaseResult {
	def := item.Def
	result := results.CaseResult{Name: item.Name, ClassName: def.Area}

	if def.Skip {
		result.Status = results.CaseSkipped
		result.Message = "marked skip in definition"
		return result
	}

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = c.caseTimeout
	}
	caseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(caseCtx, c.shell, "-c", def.Command)
	cmd.Dir = c.scratchDir
	cmd.Env = c.caseEnvironment(def)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	result.Duration = time.Since(start)
	result.Output = truncateOutput(output)

	switch {
	case err == nil:
		result.Status = results.CasePassed
	case errors.Is(caseCtx.Err(), context.DeadlineExceeded):
		result.Status = results.CaseFailed
		result.Message = fmt.Sprintf("timed out after %s", timeout)
	case errors.Is(caseCtx.Err(), context.Canceled):
		result.Status = results.CaseError
		result.Message = "run canceled before the case finished"
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Status = results.CaseFailed
			result.Message = exitErr.Error()
		} else {
			result.Status = results.CaseError
			result.Message = fmt.Sprintf("starting command: %v", err)
		}
	}

	c.writeCaseLog(item.Name, result)
	logging.Debug("Platform", "Case %s finished with %s in %s", item.Name, result.Status, result.Duration.Round(time.Millisecond))
	return result
}

// caseEnvironment layers the process environment, the run secrets, and the
// case's own env block. Later entries win on duplicate keys, so case env
// overrides secrets and both override the inherited environment.
func (c *controller) caseEnvironment(def testdef.Case) []string {
	env := os.Environ()
	for _, key := range sortedKeys(c.secrets) {
		env = append(env, key+"="+c.secrets[key])
	}
	for _, key := range sortedKeys(def.Env) {
		env = append(env, key+"="+def.Env[key])
	}
	return env
}

// writeCaseLog mirrors the captured output to a per-case file under the
// run's log directory. Log mirroring is best effort and never fails a case.
func (c *controller) writeCaseLog(name string, result results.CaseResult) {
	logDir := c.storeString(driver.StoreKeyRunLogDir)
	if logDir == "" {
		return
	}
	caseDir := filepath.Join(logDir, "cases")
	if err := os.MkdirAll(caseDir, 0o755); err != nil {
		logging.Warn("Platform", "Failed to create case log directory %s: %v", caseDir, err)
		return
	}
	content := fmt.Sprintf("status: %s\nduration: %s\n", result.Status, result.Duration)
	if result.Message != "" {
		content += "message: " + result.Message + "\n"
	}
	content += "\n" + result.Output
	path := filepath.Join(caseDir, sanitizeName(name)+".log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logging.Warn("Platform", "Failed to write case log %s: %v", path, err)
	}
}

func truncateOutput(output []byte) string {
	if len(output) <= maxCaseOutput {
		return string(output)
	}
	return "[output truncated]\n" + string(output[len(output)-maxCaseOutput:])
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

package run

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"gauntlet/pkg/logging"
)

// Context is the immutable identity of one run: its token and the
// directories everything else derives paths from.
type Context struct {
	// ID is the run token. Siblings of a parallel run share the parent's
	// token with a numeric suffix.
	ID string
	// WorkspaceDir is where test definitions and scratch files live. It may
	// pre-exist and is never timestamped.
	WorkspaceDir string
	// LogDir is the per-run log tree, named <timestamp>-<token> for fresh
	// runs. Siblings write beneath their parent's LogDir.
	LogDir string
	// CreatedAt is when this context was established in this process.
	CreatedAt time.Time

	reused bool
}

// NewContext establishes a fresh run identity: generates a token, derives
// the timestamped log directory under logRoot, and creates all directories.
// Directory creation is idempotent; only filesystem errors fail.
func NewContext(workspaceDir, logRoot string) (*Context, error) {
	now := time.Now()
	token := newToken()
	rc := &Context{
		ID:           token,
		WorkspaceDir: workspaceDir,
		LogDir:       filepath.Join(logRoot, fmt.Sprintf("%s-%s", now.Format("20060102-150405"), token)),
		CreatedAt:    now,
	}
	if err := rc.ensureDirs(); err != nil {
		return nil, err
	}
	logging.Info("Run", "Established run %s (logs in %s)", rc.ID, rc.LogDir)
	return rc, nil
}

// ReuseContext adopts an identity established by a parent process. The
// token and directories are taken verbatim; directory creation is repeated
// because it is idempotent and the child may win the race against its
// parent's own mkdir.
func ReuseContext(id, workspaceDir, logDir string) (*Context, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("run id must not be empty when reusing an identity")
	}
	if workspaceDir == "" || logDir == "" {
		return nil, fmt.Errorf("run %s: workspace and log directories must be supplied when reusing an identity", id)
	}
	rc := &Context{
		ID:           id,
		WorkspaceDir: workspaceDir,
		LogDir:       logDir,
		CreatedAt:    time.Now(),
		reused:       true,
	}
	if err := rc.ensureDirs(); err != nil {
		return nil, err
	}
	logging.Debug("Run", "Reusing run identity %s (logs in %s)", rc.ID, rc.LogDir)
	return rc, nil
}

// Reused reports whether this identity was adopted from a parent process.
func (rc *Context) Reused() bool {
	return rc.reused
}

// ReportDir is the directory all result artifacts of this run land in.
// Siblings share it with their parent.
func (rc *Context) ReportDir() string {
	return filepath.Join(rc.LogDir, "report")
}

// ReportArtifact is the result artifact path for the given run or sibling
// id. Aggregation locates sibling reports through this convention.
func (rc *Context) ReportArtifact(id string) string {
	return filepath.Join(rc.ReportDir(), fmt.Sprintf("junit-%s.xml", id))
}

// ScopedLogDir is where this invocation's own controller output goes. A
// reused (sibling) identity gets a subdirectory keyed by its token so
// siblings never interleave files.
func (rc *Context) ScopedLogDir() string {
	if rc.reused {
		return filepath.Join(rc.LogDir, rc.ID)
	}
	return rc.LogDir
}

// SiblingID derives the token for the n-th sibling of a parallel run.
func (rc *Context) SiblingID(n int) string {
	return fmt.Sprintf("%s-%d", rc.ID, n)
}

func (rc *Context) ensureDirs() error {
	for _, dir := range []string{rc.WorkspaceDir, rc.LogDir, rc.ReportDir(), rc.ScopedLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("run %s: failed to create directory %s: %w", rc.ID, dir, err)
		}
	}
	return nil
}

// newToken returns a short unique run token. The first uuid group is
// plenty for distinguishing concurrently active runs while keeping
// directory names readable.
func newToken() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

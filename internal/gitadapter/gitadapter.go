// Package gitadapter implements C10's git adapter:
// git_add/git_commit/git_push plus a generic run_command, every one of
// which is restricted to invoking the `git` binary.
package gitadapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/logging"
)

const defaultTimeout = 30 * time.Second

// ErrNotGit is returned when a caller attempts to run a non-git command
// through this adapter.
var ErrNotGit = fmt.Errorf("gitadapter: command must start with git")

// Adapter runs git subcommands as subprocesses rooted at Dir, grounded on
// internal/tactile/direct.go's context.WithTimeout + exec.CommandContext +
// buffered output pattern (already reused once for internal/fault.Runner).
type Adapter struct {
	Dir     string
	Timeout time.Duration
	log     *zap.Logger
}

// New constructs an Adapter rooted at dir. timeout <= 0 defaults to 30s.
func New(dir string, timeout time.Duration, log *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Adapter{Dir: dir, Timeout: timeout, log: logging.For(log, logging.CategoryGitAdapter)}
}

// GitAdd stages files.
func (a *Adapter) GitAdd(ctx context.Context, files []string) (string, error) {
	return a.run(ctx, append([]string{"git", "add"}, files...))
}

// GitCommit commits the staged tree with message.
func (a *Adapter) GitCommit(ctx context.Context, message string) (string, error) {
	return a.run(ctx, []string{"git", "commit", "-m", message})
}

// GitPush pushes branch to remote.
func (a *Adapter) GitPush(ctx context.Context, remote, branch string) (string, error) {
	return a.run(ctx, []string{"git", "push", remote, branch})
}

// HasUncommittedChanges reports whether the working tree has staged or
// unstaged modifications (`git status --porcelain` is non-empty).
func (a *Adapter) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := a.run(ctx, []string{"git", "status", "--porcelain"})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CurrentBranch returns the checked-out branch name.
func (a *Adapter) CurrentBranch(ctx context.Context) (string, error) {
	out, err := a.run(ctx, []string{"git", "rev-parse", "--abbrev-ref", "HEAD"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CreateBranch creates and checks out a new branch from the current HEAD.
func (a *Adapter) CreateBranch(ctx context.Context, name string) (string, error) {
	return a.run(ctx, []string{"git", "checkout", "-b", name})
}

// RunCommand executes an arbitrary argv, refusing anything whose first
// element is not exactly "git".
func (a *Adapter) RunCommand(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 || argv[0] != "git" {
		return "", ErrNotGit
	}
	return a.run(ctx, argv)
}

func (a *Adapter) run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 || argv[0] != "git" {
		return "", ErrNotGit
	}

	execCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)
	cmd.Dir = a.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	a.log.Debug("gitadapter: ran command", zap.Strings("argv", argv), zap.Bool("ok", err == nil))
	if err != nil {
		return stdout.String(), fmt.Errorf("gitadapter: %s: %w: %s", strings.Join(argv, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

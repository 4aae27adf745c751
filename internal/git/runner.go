package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/secrets"
)

// Runner executes the git CLI operations Apply needs: bare mirror
// clones of source repositories and history pushes to the destination.
// Every call goes through the shared Pool so concurrent projects
// cannot exhaust the host. Remote URLs and stderr are redacted before
// they reach an error message.
type Runner struct {
	pool *Pool
	log  *slog.Logger
}

// NewRunner builds a Runner on the shared pool. A nil logger falls
// back to slog.Default.
func NewRunner(pool *Pool, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{pool: pool, log: log}
}

// MirrorClone creates a bare mirror of url at dir. An existing mirror
// is refreshed with a pruning remote update instead of recloned.
func (r *Runner) MirrorClone(ctx context.Context, url, dir string) error {
	return r.pool.Run(ctx, func() error {
		if _, err := os.Stat(filepath.Join(dir, "HEAD")); err == nil {
			r.log.Debug("refreshing existing mirror", "dir", dir)
			if _, execErr := runGit(ctx, dir, "remote", "update", "--prune"); execErr != nil {
				return fmt.Errorf("git: refresh mirror %s: %w", secrets.Redact(url), execErr)
			}
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return fmt.Errorf("git: prepare mirror dir: %w", err)
		}
		if _, execErr := runGit(ctx, "", "clone", "--mirror", url, dir); execErr != nil {
			return fmt.Errorf("git: mirror clone %s: %w", secrets.Redact(url), execErr)
		}
		return nil
	})
}

// MirrorPush pushes every branch and tag of the mirror at dir to url.
// Hidden source refs (refs/merge-requests, refs/pipelines) are not
// part of the refspec; the destination refuses them.
func (r *Runner) MirrorPush(ctx context.Context, dir, url string) error {
	return r.pool.Run(ctx, func() error {
		if _, execErr := runGit(ctx, dir, "push", url,
			"+refs/heads/*:refs/heads/*", "+refs/tags/*:refs/tags/*"); execErr != nil {
			return fmt.Errorf("git: mirror push %s: %w", secrets.Redact(url), execErr)
		}
		return nil
	})
}

// SyncLFS copies every LFS object reachable from the mirror at dir to
// the destination remote. The mirror's origin must still point at the
// source so fetch can read from it.
func (r *Runner) SyncLFS(ctx context.Context, dir, destURL string) error {
	return r.pool.Run(ctx, func() error {
		if _, execErr := runGit(ctx, dir, "lfs", "fetch", "--all", "origin"); execErr != nil {
			return fmt.Errorf("git: lfs fetch: %w", execErr)
		}
		if _, execErr := runGit(ctx, dir, "lfs", "push", "--all", destURL); execErr != nil {
			return fmt.Errorf("git: lfs push %s: %w", secrets.Redact(destURL), execErr)
		}
		return nil
	})
}

// HeadRef returns the symbolic ref HEAD points at in the mirror at
// dir, e.g. "refs/heads/main".
func (r *Runner) HeadRef(ctx context.Context, dir string) (string, error) {
	var ref string
	err := r.pool.Run(ctx, func() error {
		out, execErr := runGit(ctx, dir, "symbolic-ref", "HEAD")
		if execErr != nil {
			return fmt.Errorf("git: read HEAD: %w", execErr)
		}
		ref = strings.TrimSpace(out)
		return nil
	})
	return ref, err
}

// Version reports the installed git version line. Apply preflight uses
// it to fail before any action runs on a host without git.
func (r *Runner) Version(ctx context.Context) (string, error) {
	var version string
	err := r.pool.Run(ctx, func() error {
		out, execErr := runGit(ctx, "", "version")
		if execErr != nil {
			return fmt.Errorf("git: %w", execErr)
		}
		version = strings.TrimSpace(out)
		return nil
	})
	return version, err
}

// runGit executes a git command and returns its stdout. Credential
// prompts are disabled so a bad token fails instead of hanging, and
// stderr is redacted before it is folded into the error.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", secrets.Redact(strings.TrimSpace(stderr.String())), err)
	}
	return stdout.String(), nil
}

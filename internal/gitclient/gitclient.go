// Package gitclient is a thin facade over internal/procexec exposing
// the subset of git plumbing the indexer, version gate, upgrade
// channel and release builder need. It shells out to the real `git`
// binary rather than linking a git library, since the spec treats the
// git binary itself as an external collaborator (see SPEC_FULL.md §1)
// — mirroring this tree's own worktree manager, which does the same.
package gitclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/procexec"
)

// Client runs git commands rooted at Dir.
type Client struct {
	Dir string
}

func New(dir string) *Client {
	return &Client{Dir: dir}
}

func (c *Client) run(ctx context.Context, accept []int, args ...string) (procexec.Result, error) {
	return procexec.Run(ctx, procexec.Spec{
		Name:                "git",
		Args:                args,
		Dir:                 c.Dir,
		AcceptableExitCodes: accept,
	})
}

// LsFiles returns the tracked paths under base, using the -z
// zero-byte-delimited form required by the git contract.
func (c *Client) LsFiles(ctx context.Context, base string) ([]string, error) {
	res, err := c.run(ctx, nil, "ls-files", "-z", "--", base)
	if err != nil {
		return nil, err
	}
	return splitNUL(res.Stdout), nil
}

// Status returns the -z zero-delimited porcelain status lines.
func (c *Client) Status(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, nil, "status", "-z")
	if err != nil {
		return nil, err
	}
	return splitNUL(res.Stdout), nil
}

// IsClean reports whether the working tree has no pending changes.
func (c *Client) IsClean(ctx context.Context) (bool, error) {
	lines, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	return len(lines) == 0, nil
}

// LogCommitMessages streams the raw commit messages touching paths,
// newest first, for the write-time version gate (component E).
func (c *Client) LogCommitMessages(ctx context.Context, paths ...string) ([]string, error) {
	args := append([]string{"log", "--raw", "--format=%B%x00"}, paths...)
	res, err := c.run(ctx, nil, args...)
	if err != nil {
		return nil, err
	}
	msgs := splitNUL(res.Stdout)
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

// RevParse resolves rev to a commit hash.
func (c *Client) RevParse(ctx context.Context, rev string) (string, error) {
	res, err := c.run(ctx, nil, "rev-parse", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	res, err := c.run(ctx, nil, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// Describe runs `git describe --tags --long --always`.
func (c *Client) Describe(ctx context.Context) (string, error) {
	res, err := c.run(ctx, nil, "describe", "--tags", "--long", "--always")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// Tag creates an annotated (or signed, if sign is true) tag.
func (c *Client) Tag(ctx context.Context, name, message string, sign bool) error {
	args := []string{"tag"}
	if sign {
		args = append(args, "-s")
	} else {
		args = append(args, "-a")
	}
	args = append(args, "-m", message, name)
	_, err := c.run(ctx, nil, args...)
	return err
}

// Reset runs `git reset <mode> <rev>`.
func (c *Client) Reset(ctx context.Context, mode, rev string) error {
	_, err := c.run(ctx, nil, "reset", mode, rev)
	return err
}

// Push pushes remote/ref, optionally including tags.
func (c *Client) Push(ctx context.Context, remote, ref string, withTags bool) error {
	args := []string{"push"}
	if withTags {
		args = append(args, "--follow-tags")
	}
	args = append(args, remote, ref)
	_, err := c.run(ctx, nil, args...)
	return err
}

// CatFile returns the content of rev:path.
func (c *Client) CatFile(ctx context.Context, rev, path string) ([]byte, error) {
	res, err := c.run(ctx, nil, "cat-file", "-p", rev+":"+path)
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}

// ConfigGet returns a git config value, empty if unset (exit 1 is
// acceptable for a missing key).
func (c *Client) ConfigGet(ctx context.Context, key string) (string, error) {
	res, err := c.run(ctx, []int{1}, "config", "--get", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// RemoteForBranch returns the configured remote for branch.
func (c *Client) RemoteForBranch(ctx context.Context, branch string) (string, error) {
	return c.ConfigGet(ctx, fmt.Sprintf("branch.%s.remote", branch))
}

// RemoteUpdate runs `git remote update`.
func (c *Client) RemoteUpdate(ctx context.Context) error {
	_, err := c.run(ctx, nil, "remote", "update")
	return err
}

// MergeBaseIsAncestor reports whether ancestor is an ancestor of
// descendant, using exit code 1 (not-an-ancestor) as a normal false
// result rather than an error.
func (c *Client) MergeBaseIsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	res, err := c.run(ctx, []int{1}, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

// Clone clones url into dir.
func Clone(ctx context.Context, url, dir string) error {
	_, err := procexec.Run(ctx, procexec.Spec{Name: "git", Args: []string{"clone", url, dir}})
	return err
}

// Pull runs `git pull` in the client's directory.
func (c *Client) Pull(ctx context.Context) error {
	_, err := c.run(ctx, nil, "pull")
	return err
}

func splitNUL(b []byte) []string {
	raw := strings.Split(string(b), "\x00")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

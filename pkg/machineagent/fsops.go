// pkg/machineagent/fsops.go

package machineagent

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"

	"github.com/opsdep/appdctl/pkg/execute"
)

// treeOpTimeout bounds recursive copies and chowns of the whole agent
// tree, which can run long on slow disks.
const treeOpTimeout = 10 * time.Minute

// copyTree copies src to dst preserving mode, ownership, and timestamps.
// dst must not exist; cp creates it as an exact copy of src.
func copyTree(ctx context.Context, src, dst string) error {
	if out, err := execute.Run(ctx, execute.Options{
		Command: "cp",
		Args:    []string{"-a", src, dst},
		Capture: true,
		Timeout: treeOpTimeout,
	}); err != nil {
		return cerr.Wrapf(err, "copy %s to %s: %s", src, dst, strings.TrimSpace(out))
	}
	return nil
}

// copyFile copies one regular file, creating the destination directory.
func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return cerr.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return cerr.Wrapf(err, "create %s", filepath.Dir(dst))
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return cerr.Wrapf(err, "create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return cerr.Wrapf(err, "copy %s to %s", src, dst)
	}
	return out.Close()
}

// chownTree hands the tree to the run-as user. Requires root; callers
// treat failure as advisory.
func chownTree(ctx context.Context, dir, owner, group string) error {
	if out, err := execute.Run(ctx, execute.Options{
		Command: "chown",
		Args:    []string{"-R", owner + ":" + group, dir},
		Capture: true,
		Timeout: treeOpTimeout,
	}); err != nil {
		return cerr.Wrapf(err, "chown %s: %s", dir, strings.TrimSpace(out))
	}
	return nil
}

// removeDirIfEmpty removes dir when it holds nothing, reporting whether
// it was removed. A non-empty dir is left alone.
func removeDirIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, cerr.Wrapf(err, "read %s", dir)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil {
		return false, cerr.Wrapf(err, "remove %s", dir)
	}
	return true, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

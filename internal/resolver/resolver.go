// Package resolver recovers, for a symbolic link somewhere under an
// alternative root, the absolute path the link would resolve to on
// the live, booted filesystem the alternative root stands in for.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	snaperrors "sysdsnap/internal/errors"
)

// Resolution is the resolver's output: the target directory (always
// ending in "/") and target basename such that the live boot would
// resolve the link to TargetDir+TargetBasename.
type Resolution struct {
	TargetDir      string
	TargetBasename string
}

// Target returns the joined absolute path TargetDir+TargetBasename.
func (r Resolution) Target() string {
	return r.TargetDir + r.TargetBasename
}

// Resolve reads the symlink at linkPath (an absolute path that
// includes the altRoot prefix) and computes its target in the
// target filesystem's own terms, with altRoot stripped.
//
// Only the immediate target is read — link chains are not followed.
// A target outside altRoot is returned unstripped, verbatim, for a
// later consumer to resolve; this function does no existence checks
// against known search paths.
func Resolve(altRoot, linkPath string) (Resolution, error) {
	rawTarget, err := os.Readlink(linkPath)
	if err != nil {
		return Resolution{}, snaperrors.Wrap(snaperrors.MalformedSymlink, "not a symbolic link", err).WithSubject(linkPath)
	}

	var canonical string
	if filepath.IsAbs(rawTarget) {
		canonical = filepath.Clean(rawTarget)
	} else {
		parent := filepath.Dir(linkPath)
		canonical = filepath.Clean(filepath.Join(parent, rawTarget))
	}

	stripped := canonical
	if altRoot != "" && strings.HasPrefix(canonical, altRoot) {
		stripped = strings.TrimPrefix(canonical, altRoot)
		if stripped == "" {
			stripped = "/"
		}
		if !strings.HasPrefix(stripped, "/") {
			stripped = "/" + stripped
		}
	}

	dir, base := filepath.Split(stripped)
	if dir == "" {
		dir = "/"
	}
	return Resolution{TargetDir: dir, TargetBasename: base}, nil
}

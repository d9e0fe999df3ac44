package sandbox

import (
	"fmt"
	"path/filepath"
)

// PathJail implements the Path-Jail Sandbox (C6): every filesystem-facing
// tool resolves its target path through one jail before touching disk.
// Grounded on original_source/src/tools/security.rs's PathJail —
// canonicalize, then verify the result is still inside the jail root, so a
// symlink or a ".." component cannot walk the resolved path out.
type PathJail struct {
	root string // canonicalized jail root
}

// JailEscape reports that a path resolved outside the jail root.
type JailEscape struct {
	Attempted string
	Root      string
}

func (e *JailEscape) Error() string {
	return fmt.Sprintf("path jail escape: %q resolves outside root %q", e.Attempted, e.Root)
}

// NewPathJail canonicalizes root and returns a jail scoped to it. root must
// already exist; it is the working_root from config.View.
func NewPathJail(root string) (*PathJail, error) {
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("canonicalize jail root %q: %w", root, err)
	}
	abs, err := filepath.Abs(canonical)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute jail root %q: %w", root, err)
	}
	return &PathJail{root: abs}, nil
}

// Root returns the jail's canonical root directory.
func (j *PathJail) Root() string { return j.root }

// Resolve canonicalizes path (interpreted relative to the jail root when
// not absolute) and verifies the result lies within the jail. For paths
// that do not yet exist (common for write targets), it verifies the
// nearest existing ancestor directory instead and reconstructs the
// requested path under that verified ancestor, avoiding a TOCTOU gap
// between the check and the eventual write.
func (j *PathJail) Resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(j.root, path)
	}

	if canonical, err := filepath.EvalSymlinks(full); err == nil {
		return j.verify(canonical, path)
	}

	// full itself doesn't exist yet; walk up to the nearest existing
	// ancestor and verify that instead.
	dir := filepath.Dir(full)
	base := filepath.Base(full)
	for {
		canonicalDir, err := filepath.EvalSymlinks(dir)
		if err == nil {
			verifiedDir, verr := j.verify(canonicalDir, path)
			if verr != nil {
				return "", verr
			}
			return filepath.Join(verifiedDir, base), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &JailEscape{Attempted: path, Root: j.root}
		}
		base = filepath.Join(filepath.Base(dir), base)
		dir = parent
	}
}

func (j *PathJail) verify(canonical, original string) (string, error) {
	rel, err := filepath.Rel(j.root, canonical)
	if err != nil || rel == ".." || hasDotDotPrefix(rel) {
		return "", &JailEscape{Attempted: original, Root: j.root}
	}
	return canonical, nil
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

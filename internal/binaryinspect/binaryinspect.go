// Package binaryinspect shells out to an ELF-introspection tool and a
// string-extraction tool to harvest an executable's NEEDED libraries
// and the file-like/path-like strings embedded in it, then recurses
// through the NEEDED set's own library closure.
package binaryinspect

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"sysdsnap/internal/cache"
	"sysdsnap/internal/config"
	snaperrors "sysdsnap/internal/errors"
)

func statFile(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// candidateLibDirs is the fixed search list walked to resolve a
// NEEDED basename to a file under the alternative root, in order.
var candidateLibDirs = []string{
	"/lib", "/lib32", "/lib64", "/libexec", "/lib/systemd",
	"/usr/lib", "/usr/lib/systemd", "/usr/lib/x86_64-linux-gnu",
	"/usr/lib32", "/usr/lib64", "/usr/libexec", "/var/lib",
}

// fileLikeExtensions is the fixed allowlist of extensions that make a
// string token "file-like" rather than merely "path-like".
var fileLikeExtensions = []string{
	"cfg", "conf", "ini",
	"log",
	"exe",
	"der", "crt", "cer", "pem", "crl", "pfx", "p8", "p8e", "pk8", "p10",
	"csr", "p7r", "p7s", "p7m", "p7c", "p7b", "keystore", "p12", "pkcs12",
}

var (
	neededRe   = regexp.MustCompile(`\(NEEDED\)\s+Shared library: \[(.+?)\]`)
	fileLikeRe = regexp.MustCompile(`\.(` + strings.Join(fileLikeExtensions, "|") + `)$`)
	pathLikeRe = regexp.MustCompile(`^/\w+(/[\w.\-]*)+$`)
)

// Result is the inspection output for one executable: the sets
// feeding the Master Structure's binaries/libraries/files/strings
// catalogs.
type Result struct {
	Needed  []string
	Files   []string
	Strings []string
}

// Inspector runs the external tools and library-closure recursion.
type Inspector struct {
	altRoot string
	tools   config.ToolsConfig
	cache   *cache.Cache
	logger  logger
}

type logger interface {
	Warn(msg string, args ...any)
}

// New builds an Inspector. c may be nil to disable caching.
func New(altRoot string, tools config.ToolsConfig, c *cache.Cache, log logger) *Inspector {
	return &Inspector{altRoot: altRoot, tools: tools, cache: c, logger: log}
}

// Inspect computes the NEEDED/file-like/path-like sets for the
// executable at execPath (relative to altRoot, e.g. "/usr/bin/sshd"),
// with no transitive closure: that is Closure's job.
func (ins *Inspector) Inspect(ctx context.Context, execPath string) (Result, error) {
	real, err := ins.realPath(execPath)
	if err != nil {
		return Result{}, err
	}

	var contentHash string
	if ins.cache != nil {
		if h, err := cache.ContentHash(real); err == nil {
			contentHash = h
			if cached, ok, _ := ins.cache.GetBinaryInspection(execPath, ins.altRoot, contentHash); ok {
				return Result{Needed: cached.Needed, Files: cached.Files, Strings: cached.Strings}, nil
			}
		}
	}

	needed, err := ins.extractNeeded(ctx, real)
	if err != nil {
		return Result{}, err
	}

	files, paths, err := ins.extractStrings(ctx, real)
	if err != nil {
		return Result{}, err
	}

	result := Result{Needed: needed, Files: files, Strings: paths}

	if ins.cache != nil && contentHash != "" {
		_ = ins.cache.SetBinaryInspection(execPath, ins.altRoot, contentHash, cache.BinaryInspection{
			Needed: result.Needed, Files: result.Files, Strings: result.Strings,
		})
	}
	return result, nil
}

// Closure walks the library closure of needed: each basename is
// resolved under the fixed candidate directory list, inspected, and
// its own NEEDED entries followed in turn. It returns a map from every
// library basename reached to that library's direct NEEDED list (nil
// when the library was not found or could not be inspected). seen
// guards against cycles and is mutated in place.
func (ins *Inspector) Closure(ctx context.Context, needed []string, seen map[string]bool) map[string][]string {
	out := make(map[string][]string)
	for _, lib := range needed {
		ins.closeOne(ctx, lib, seen, out)
	}
	return out
}

func (ins *Inspector) closeOne(ctx context.Context, lib string, seen map[string]bool, out map[string][]string) {
	if seen[lib] {
		return
	}
	seen[lib] = true

	libPath, found := ins.locateLibrary(lib)
	if !found {
		out[lib] = nil
		return
	}

	result, err := ins.Inspect(ctx, libPath)
	if err != nil {
		if ins.logger != nil {
			ins.logger.Warn("library inspection failed", "library", lib, "error", err)
		}
		out[lib] = nil
		return
	}
	out[lib] = result.Needed

	for _, child := range result.Needed {
		ins.closeOne(ctx, child, seen, out)
	}
}

func (ins *Inspector) locateLibrary(basename string) (string, bool) {
	for _, dir := range candidateLibDirs {
		candidate := dir + "/" + basename
		if real, err := ins.realPath(candidate); err == nil {
			if _, err := statFile(real); err == nil {
				return candidate, true
			}
		}
	}
	return "", false
}

func (ins *Inspector) realPath(relPath string) (string, error) {
	if ins.altRoot == "" {
		return relPath, nil
	}
	real, err := securejoin.SecureJoin(ins.altRoot, relPath)
	if err != nil {
		return "", snaperrors.Wrap(snaperrors.FileOrDirMissing, "resolving alt-root path", err).WithSubject(relPath)
	}
	return real, nil
}

func (ins *Inspector) extractNeeded(ctx context.Context, realPath string) ([]string, error) {
	out, err := ins.run(ctx, ins.tools.ELFTool, "-d", realPath)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var needed []string
	for _, m := range neededRe.FindAllStringSubmatch(out, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			needed = append(needed, m[1])
		}
	}
	sort.Strings(needed)
	return needed, nil
}

func (ins *Inspector) extractStrings(ctx context.Context, realPath string) (files, paths []string, err error) {
	out, err := ins.run(ctx, ins.tools.StringsTool, realPath)
	if err != nil {
		return nil, nil, err
	}

	fileSeen := make(map[string]bool)
	pathSeen := make(map[string]bool)
	for _, tok := range strings.Fields(out) {
		tok = stripKeyPrefix(tok)
		switch {
		case fileLikeRe.MatchString(tok):
			if !fileSeen[tok] {
				fileSeen[tok] = true
				files = append(files, tok)
			}
		case pathLikeRe.MatchString(tok):
			if !pathSeen[tok] {
				pathSeen[tok] = true
				paths = append(paths, tok)
			}
		}
	}
	sort.Strings(files)
	sort.Strings(paths)
	return files, paths, nil
}

func stripKeyPrefix(tok string) string {
	if idx := strings.LastIndex(tok, "="); idx >= 0 {
		return tok[idx+1:]
	}
	return tok
}

// run executes name with args, returning its stdout as a string. A
// non-zero exit is not fatal: the caller treats it as "no NEEDED
// libraries"/"no strings" and continues. A tool that cannot be started
// at all is reported as an error.
func (ins *Inspector) run(ctx context.Context, name string, args ...string) (string, error) {
	if ins.tools.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ins.tools.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// Non-zero exit: treated as empty output, per failure policy.
			return "", nil
		}
		return "", snaperrors.Wrap(snaperrors.MissingBinary, "external tool not found", err).WithSubject(name)
	}
	return buf.String(), nil
}

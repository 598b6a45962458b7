// Package masterstructure walks the init manager's known search
// paths, dispatches every entry to the unit parser, extracts and
// inspects the binaries referenced by ExecStart-family directives,
// and folds fstab-synthesized units in, producing the Master
// Structure that the closure engine and graph assembler both consume.
package masterstructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"sysdsnap/internal/artifact"
	"sysdsnap/internal/binaryinspect"
	"sysdsnap/internal/cache"
	"sysdsnap/internal/config"
	"sysdsnap/internal/fstabgen"
	"sysdsnap/internal/implicitdeps"
	"sysdsnap/internal/unitparser"
)

// DefaultSearchDirs is the fixed, ordered list of unit search
// directories consulted relative to the alternative root.
var DefaultSearchDirs = []string{
	"/etc/systemd/system.control/",
	"/run/systemd/system.control/",
	"/run/systemd/transient/",
	"/run/systemd/generator.early/",
	"/etc/systemd/system/",
	"/etc/systemd/system.attached/",
	"/run/systemd/system/",
	"/run/systemd/system.attached/",
	"/run/systemd/generator/",
	"/lib/systemd/system/",
	"/usr/local/lib/systemd/system",
	"/usr/lib/systemd/system/",
	"/run/systemd/generator.late/",
}

// execDirectives is the fixed set of command-bearing directives
// scanned for executable paths to inspect.
var execDirectives = []string{
	"ExecStart", "ExecCondition", "ExecStartPre", "ExecStartPost",
	"ExecReload", "ExecStop", "ExecStopPost",
}

var execProbeDirs = []string{"/bin", "/sbin", "/usr/bin", "/usr/sbin"}

// MasterStructure is the normalized catalog of every init artifact
// found under the search paths, plus the four binary-forensics
// catalogs.
type MasterStructure struct {
	RemotePath string
	RunID      uuid.UUID
	Entries    map[string]*artifact.Record
	Binaries   map[string][]string
	Libraries  map[string][]string
	Files      map[string][]string
	Strings    map[string][]string
}

// MarshalJSON flattens Entries to the top level alongside the four
// catalogs and the two scalars, matching the Master Structure's wire
// shape: a mapping keyed by path, plus the reserved catalog/scalar keys.
func (ms *MasterStructure) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ms.Entries)+6)
	for path, rec := range ms.Entries {
		out[path] = rec
	}
	out["remote_path"] = ms.RemotePath
	out["run_id"] = ms.RunID.String()
	out["binaries"] = ms.Binaries
	out["libraries"] = ms.Libraries
	out["files"] = ms.Files
	out["strings"] = ms.Strings
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON, sorting every non-reserved key
// back into Entries as an *artifact.Record.
func (ms *MasterStructure) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ms.Entries = make(map[string]*artifact.Record)
	ms.Binaries = make(map[string][]string)
	ms.Libraries = make(map[string][]string)
	ms.Files = make(map[string][]string)
	ms.Strings = make(map[string][]string)

	for key, v := range raw {
		switch key {
		case "remote_path":
			if err := json.Unmarshal(v, &ms.RemotePath); err != nil {
				return err
			}
		case "run_id":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if id, err := uuid.Parse(s); err == nil {
				ms.RunID = id
			}
		case "binaries":
			if err := json.Unmarshal(v, &ms.Binaries); err != nil {
				return err
			}
		case "libraries":
			if err := json.Unmarshal(v, &ms.Libraries); err != nil {
				return err
			}
		case "files":
			if err := json.Unmarshal(v, &ms.Files); err != nil {
				return err
			}
		case "strings":
			if err := json.Unmarshal(v, &ms.Strings); err != nil {
				return err
			}
		default:
			var rec artifact.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			ms.Entries[key] = &rec
		}
	}
	return nil
}

// Fingerprint returns a deterministic hash of the structure's catalog
// membership: the entry paths and the keys of each catalog. Record
// contents and catalog values are not hashed. It is used to test
// rebuild idempotency.
func (ms *MasterStructure) Fingerprint() uint64 {
	h := xxhash.New()
	writeSortedCatalog(h, "entries", entryKeys(ms.Entries))
	writeSortedCatalog(h, "binaries", mapKeys(ms.Binaries))
	writeSortedCatalog(h, "libraries", mapKeys(ms.Libraries))
	writeSortedCatalog(h, "files", mapKeys(ms.Files))
	writeSortedCatalog(h, "strings", mapKeys(ms.Strings))
	return h.Sum64()
}

func entryKeys(m map[string]*artifact.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func mapKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func writeSortedCatalog(h *xxhash.Digest, label string, keys []string) {
	sort.Strings(keys)
	h.WriteString(label)
	for _, k := range keys {
		h.WriteString(k)
	}
}

// Builder drives the walk-and-dispatch pipeline.
type Builder struct {
	altRoot    string
	searchDirs []string
	fstabPath  string
	tools      config.ToolsConfig
	cache      *cache.Cache
	inspector  *binaryinspect.Inspector
	parser     *unitparser.Parser
	logger     *slog.Logger
}

// New builds a Builder from a loaded configuration.
func New(cfg *config.Config, c *cache.Cache, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dirs := cfg.SearchDirs
	if len(dirs) == 0 {
		dirs = DefaultSearchDirs
	}
	dirs = append(append([]string{}, dirs...), cfg.ExtraSearchDirs...)

	fstabPath := cfg.FstabPath
	if fstabPath == "" {
		fstabPath = "/etc/fstab"
	}

	return &Builder{
		altRoot:    cfg.AltRoot,
		searchDirs: dirs,
		fstabPath:  fstabPath,
		tools:      cfg.Tools,
		cache:      c,
		inspector:  binaryinspect.New(cfg.AltRoot, cfg.Tools, c, logger),
		parser:     unitparser.New(cfg.AltRoot, logger),
		logger:     logger,
	}
}

// Build walks the search directories and produces a fully populated
// MasterStructure.
func (b *Builder) Build(ctx context.Context) (*MasterStructure, error) {
	ms := &MasterStructure{
		RemotePath: b.altRoot,
		RunID:      newRunID(),
		Entries:    make(map[string]*artifact.Record),
		Binaries:   make(map[string][]string),
		Libraries:  make(map[string][]string),
		Files:      make(map[string][]string),
		Strings:    make(map[string][]string),
	}

	dirs := b.collapseLibSystemd()

	for _, dir := range dirs {
		if err := b.walkSearchDir(dir, ms); err != nil {
			return nil, err
		}
	}

	if err := b.inspectBinaries(ctx, ms); err != nil {
		return nil, err
	}

	if err := b.mergeFstab(ms); err != nil {
		return nil, err
	}

	return ms, nil
}

// collapseLibSystemd drops "/lib/systemd/system/" from the search
// list when "<R>/lib" is itself a symlink into usr/lib, since walking
// both would double-count every entry.
func (b *Builder) collapseLibSystemd() []string {
	libPath, err := b.realPath("/lib")
	if err != nil {
		return b.searchDirs
	}
	target, err := os.Readlink(libPath)
	if err != nil {
		return b.searchDirs
	}
	if !strings.Contains(filepath.Clean(target), "usr/lib") {
		return b.searchDirs
	}

	out := make([]string, 0, len(b.searchDirs))
	for _, d := range b.searchDirs {
		if d == "/lib/systemd/system/" {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (b *Builder) walkSearchDir(dir string, ms *MasterStructure) error {
	realDir, err := b.realPath(dir)
	if err != nil {
		return nil
	}
	if _, err := os.Stat(realDir); err != nil {
		return nil // FileOrDirMissing: skip, continue.
	}

	return filepath.WalkDir(realDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("walk error", "path", path, "error", err)
			return nil
		}
		if path == realDir {
			return nil
		}

		key, err := b.toKey(path)
		if err != nil {
			return nil
		}

		rec, err := b.parser.Parse(path)
		if err != nil {
			b.logger.Warn("parse failed", "path", path, "error", err)
			return nil
		}
		if rec == nil {
			return nil // not a dep dir, link, or unit file; keep walking
		}

		if rec.Metadata.FileType == artifact.UnitFile {
			implicitdeps.Apply(filepath.Base(path), rec)
		}

		ms.Entries[key] = rec

		// The walk descends into dependency directories too: their
		// contained symlinks and drop-in files get entries of their own,
		// alongside the directory's record.
		return nil
	})
}

func (b *Builder) inspectBinaries(ctx context.Context, ms *MasterStructure) error {
	seen := make(map[string]bool)
	for _, rec := range ms.Entries {
		if rec.Metadata.FileType != artifact.UnitFile {
			continue
		}
		for _, directive := range execDirectives {
			for _, line := range rec.Directives[directive] {
				bin := b.resolveExecPath(ExtractExecutablePath(line))
				if bin == "" || seen[bin] {
					continue
				}
				seen[bin] = true

				result, err := b.inspector.Inspect(ctx, bin)
				if err != nil {
					b.logger.Warn("binary inspection failed", "binary", bin, "error", err)
					continue
				}
				ms.Binaries[bin] = result.Needed
				ms.Files[bin] = result.Files
				ms.Strings[bin] = result.Strings

				closure := b.inspector.Closure(ctx, result.Needed, map[string]bool{})
				for lib, libNeeded := range closure {
					if _, ok := ms.Libraries[lib]; !ok {
						ms.Libraries[lib] = libNeeded
					}
				}
			}
		}
	}
	return nil
}

func (b *Builder) mergeFstab(ms *MasterStructure) error {
	real, err := b.realPath(b.fstabPath)
	if err != nil {
		return nil
	}
	entries, err := fstabgen.ParseFile(real)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		ms.Entries[e.Key] = e.Record
	}
	return nil
}

var execPrefixChars = "@-:"

// ExtractExecutablePath pulls the binary path out of a command line:
// strip leading "@ - : + ! !!" prefixes (at most one of "+ ! !!", in
// any relative order with the rest) and return the first whitespace-
// delimited token.
func ExtractExecutablePath(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	tok := fields[0]

	stripAnchor := func(s string) string {
		for len(s) > 0 && strings.ContainsRune(execPrefixChars, rune(s[0])) {
			s = s[1:]
		}
		return s
	}

	tok = stripAnchor(tok)
	for _, p := range []string{"!!", "!", "+"} {
		if strings.HasPrefix(tok, p) {
			tok = tok[len(p):]
			break
		}
	}
	tok = stripAnchor(tok)
	return tok
}

func (b *Builder) resolveExecPath(path string) string {
	return ResolveExecPath(b.altRoot, path)
}

// ResolveExecPath probes the fixed /bin, /sbin, /usr/bin, /usr/sbin
// directories under altRoot for a non-absolute command path,
// returning the first that exists (or path unchanged if it's already
// absolute or nothing probes successfully).
func ResolveExecPath(altRoot, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	for _, dir := range execProbeDirs {
		candidate := dir + "/" + path
		real, err := joinAltRoot(altRoot, candidate)
		if err != nil {
			continue
		}
		if _, err := os.Stat(real); err == nil {
			return candidate
		}
	}
	return path
}

func joinAltRoot(altRoot, relPath string) (string, error) {
	if altRoot == "" {
		return relPath, nil
	}
	return securejoin.SecureJoin(altRoot, relPath)
}

func (b *Builder) realPath(relPath string) (string, error) {
	return joinAltRoot(b.altRoot, relPath)
}

// toKey converts a real filesystem path back to its alt-root-relative
// Master Structure key.
func (b *Builder) toKey(realPath string) (string, error) {
	if b.altRoot == "" {
		return realPath, nil
	}
	if !strings.HasPrefix(realPath, b.altRoot) {
		return "", fmt.Errorf("path %q escaped alt root %q", realPath, b.altRoot)
	}
	key := strings.TrimPrefix(realPath, b.altRoot)
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	return key, nil
}

var templateNameRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// IsTemplateInstance reports whether name looks like an instantiated
// template unit, used by the graph assembler to distinguish TEMPLATE
// vertices.
func IsTemplateInstance(name string) bool {
	return templateNameRe.MatchString(name)
}

func newRunID() uuid.UUID {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil
	}
	return id
}

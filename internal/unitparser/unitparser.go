// Package unitparser classifies one filesystem entry under a search
// directory as a dependency-directory, symbolic link, or unit file,
// and for unit files parses directive lines with continuation
// handling, option validation, and argument normalization.
package unitparser

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sysdsnap/internal/artifact"
	"sysdsnap/internal/resolver"
	"sysdsnap/internal/unitkind"
)

type logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// Parser dispatches filesystem entries to Artifact records.
type Parser struct {
	altRoot string
	table   *unitkind.Table
	log     logger
}

// New builds a Parser. If log is nil, warnings and debug lines are
// discarded.
func New(altRoot string, log logger) *Parser {
	if log == nil {
		log = nopLogger{}
	}
	return &Parser{altRoot: altRoot, table: unitkind.Default(), log: log}
}

// Parse classifies the entry at absPath (the real filesystem path,
// including the alt-root prefix) and returns its Artifact record. A
// nil record with a nil error means the entry is a plain directory
// with no dependency-directory suffix; the caller keeps walking into
// it. Regular files always yield a Unit-File record: an unrecognized
// suffix is warned about and treated as kind target.
func (p *Parser) Parse(absPath string) (*artifact.Record, error) {
	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return p.parseSymlink(absPath)
	}
	if info.IsDir() {
		return p.parseDependencyDir(absPath)
	}
	return p.parseUnitFile(absPath)
}

func (p *Parser) parseSymlink(absPath string) (*artifact.Record, error) {
	res, err := resolver.Resolve(p.altRoot, absPath)
	if err != nil {
		p.log.Warn("not a symbolic link", "path", absPath, "error", err)
		return nil, nil
	}

	data := &artifact.SymLinkData{
		LinkBasename:   filepath.Base(absPath),
		TargetDir:      res.TargetDir,
		TargetBasename: res.TargetBasename,
	}
	return &artifact.Record{
		Metadata: artifact.Metadata{FileType: artifact.SymLink},
		SymLink:  data,
	}, nil
}

func (p *Parser) parseDependencyDir(absPath string) (*artifact.Record, error) {
	base := filepath.Base(absPath)
	var tagKey string
	switch {
	case strings.HasSuffix(base, ".wants"):
		tagKey = "Wants"
	case strings.HasSuffix(base, ".requires"):
		tagKey = "Requires"
	case strings.HasSuffix(base, ".d"):
		tagKey = "config_files"
	default:
		return nil, nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	rec := &artifact.Record{
		Metadata: artifact.Metadata{FileType: artifact.DepDir},
		Entries:  names,
	}
	if len(names) > 0 {
		rec.AddDirective(tagKey, names...)
	}
	return rec, nil
}

func (p *Parser) parseUnitFile(absPath string) (*artifact.Record, error) {
	suffix := strings.TrimPrefix(filepath.Ext(absPath), ".")
	kind, ok := unitkind.KindForSuffix[suffix]
	if !ok {
		p.log.Warn("invalid or unknown unit file kind, treating as target", "path", absPath, "suffix", suffix)
		kind = unitkind.Target
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec := &artifact.Record{
		Metadata: artifact.Metadata{FileType: artifact.UnitFile, Kind: kind},
	}

	directives, err := readDirectives(f)
	if err != nil {
		return nil, err
	}

	for _, d := range directives {
		p.validate(kind, d.name)
		if artifact.IsSpaceDelimited(d.name) {
			rec.AddDirective(d.name, strings.Fields(d.arg)...)
		} else {
			rec.AddDirective(d.name, d.arg)
		}
	}

	return rec, nil
}

func (p *Parser) validate(kind unitkind.Kind, directive string) {
	for _, group := range p.table.Groups(kind) {
		if p.table.KnowsDirective(group, directive) {
			return
		}
	}
	p.log.Warn("unrecognized directive", "kind", kind, "directive", directive)
}

type rawDirective struct {
	name string
	arg  string
}

// readDirectives scans f line by line, joining continuation lines
// (a directive line ending in a single backslash immediately before
// the newline pulls in the next physical line, with the backslash and
// newline stripped) before splitting each logical line on its first
// "=".
func readDirectives(f *os.File) ([]rawDirective, error) {
	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading unit file: %w", err)
	}

	var out []rawDirective
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.Contains(line, "=") {
			continue // section header or other non-directive line
		}

		full := line
		for strings.HasSuffix(full, "\\") && i+1 < len(lines) {
			full = full[:len(full)-1] + lines[i+1]
			i++
		}

		eq := strings.Index(full, "=")
		name := strings.TrimSpace(full[:eq])
		arg := full[eq+1:]
		out = append(out, rawDirective{name: name, arg: arg})
	}
	return out, nil
}

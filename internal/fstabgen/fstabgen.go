// Package fstabgen translates /etc/fstab entries into the synthetic
// mount/swap unit records the init manager's own fstab generator
// would produce at boot, so the master-structure builder can fold
// them in alongside the units actually present on disk.
package fstabgen

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"sysdsnap/internal/artifact"
)

// GeneratorDir is the fixed key prefix fstab-synthesized units are
// recorded under in the Master Structure.
const GeneratorDir = "/run/systemd/generator/"

var uuidTokenRe = regexp.MustCompile(`(?i)^UUID=(\S+)$`)

// Entry pairs a synthesized unit's Master-Structure key with its
// record.
type Entry struct {
	Key    string
	Record *artifact.Record
}

// ParseFile reads the fstab file at path (the real, alt-root-joined
// path), producing one Entry per non-comment, non-blank line. A
// missing file is not an error: fstab is optional input.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, ok := parseLine(line)
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseLine(line string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Entry{}, false
	}
	device, mountPoint, fsType := fields[0], fields[1], fields[2]
	options := "defaults"
	if len(fields) >= 4 {
		options = fields[3]
	}

	what := rewriteDeviceToken(device)

	var name string
	if fsType == "swap" {
		name = swapUnitName(device)
	} else {
		name = mountUnitName(mountPoint)
	}

	rec := &artifact.Record{
		Metadata: artifact.Metadata{FileType: artifact.FstabUnit},
	}
	rec.AddDirective("Description", fmt.Sprintf("/etc/fstab entry for %s", mountPoint))
	rec.AddDirective("Documentation", "man:fstab(5)", "man:systemd-fstab-generator(8)")
	rec.AddDirective("SourcePath", "/etc/fstab")
	rec.AddDirective("Where", mountPoint)
	rec.AddDirective("What", what)
	rec.AddDirective("Type", fsType)
	rec.AddDirective("Options", options)

	return Entry{Key: GeneratorDir + name, Record: rec}, true
}

// rewriteDeviceToken expands a "UUID=..." fstab device token into its
// /dev/disk/by-uuid form, the uuid concatenated directly after the
// prefix; other tokens (paths, LABEL=, etc.) pass through unchanged.
func rewriteDeviceToken(device string) string {
	if m := uuidTokenRe.FindStringSubmatch(device); m != nil {
		return "/dev/disk/by-uuid" + m[1]
	}
	return device
}

// swapUnitName computes the synthetic swap unit's name: for a
// UUID-keyed device, the systemd-escaped "/dev/disk/by-uuid/<uuid>"
// path; otherwise the escaped device path.
func swapUnitName(device string) string {
	if m := uuidTokenRe.FindStringSubmatch(device); m != nil {
		escapedUUID := strings.ReplaceAll(m[1], "-", `\x2d`)
		return `dev-disk-by\x2duuid-` + escapedUUID + ".swap"
	}
	return escapePath(device) + ".swap"
}

// mountUnitName computes the synthetic mount unit's name from the
// mount point, collapsing the empty/root case to "-.mount".
func mountUnitName(mountPoint string) string {
	return escapePath(mountPoint) + ".mount"
}

// escapePath mirrors the init manager's path-to-unit-name escaping:
// strip the leading slash, then replace remaining slashes with
// dashes. A path that collapses to nothing (root, or empty) becomes
// "-", the reserved root-unit stem.
func escapePath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "-"
	}
	return strings.ReplaceAll(trimmed, "/", "-")
}

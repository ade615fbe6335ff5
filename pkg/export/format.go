// Package export writes a normalized mesh out as binary interchange
// artifacts. Each target format is encoded independently; a format that
// fails is reported as unavailable rather than failing the export.
package export

import (
	"fmt"
	"strings"
)

// Format names an artifact type. Its value is also the file extension.
type Format string

const (
	FormatGLB  Format = "glb"
	FormatUSDZ Format = "usdz"
	FormatSTL  Format = "stl"
)

// DefaultFormats is the export set when the caller names none.
var DefaultFormats = []Format{FormatGLB, FormatUSDZ}

// KnownFormats lists every format the package can encode.
var KnownFormats = []Format{FormatGLB, FormatUSDZ, FormatSTL}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ParseFormats maps names to formats, rejecting unknown names and
// dropping duplicates. An empty list yields DefaultFormats.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return append([]Format(nil), DefaultFormats...), nil
	}
	seen := make(map[Format]bool, len(names))
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		known := false
		for _, k := range KnownFormats {
			if f == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("export: unknown format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Artifact is the outcome for one format: either a complete file at Path,
// or Unavailable with the Reason.
type Artifact struct {
	Format      Format `json:"format"`
	Path        string `json:"path,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Result holds one artifact per requested format.
type Result map[Format]Artifact

// Available returns the artifact for f if it was written.
func (r Result) Available(f Format) (Artifact, bool) {
	a, ok := r[f]
	if !ok || a.Unavailable {
		return Artifact{}, false
	}
	return a, true
}

// Package buildscript parses the line-oriented directive protocol a
// custom-build target's standard output is read through: each line
// prefixed forge: is split into a directive name and its value, and
// folded into an Output describing the effect on the package that ran
// it and on that package's dependents.
package buildscript

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prefix is the line prefix a build-script directive is recognized
// under. Real Cargo uses cargo:; this project keeps every directive
// name and semantics but renames the prefix into its own namespace.
const Prefix = "forge:"

// Output is everything a custom-build run contributes once its
// directive stream has been fully parsed.
type Output struct {
	LinkLibs      []string          // "[KIND=]NAME" as written
	LinkSearch    []string          // "[KIND=]PATH" as written
	Flags         []string          // opaque rustc-flags-equivalent strings
	Cfgs          []string          // "KEY" or `KEY="VAL"`
	Env           map[string]string // rustc-env=K=V
	RerunIfChanged []string         // paths/directories declared as freshness inputs
	RerunIfEnv     []string         // env var names to watch for value changes
	Warnings      []string
	Metadata      map[string]string // metadata:K=V, exposed to dependents as DEP_<LINKS>_<K>

	// AllFiles is true when the script emitted no rerun-if-* directive
	// at all, meaning every file in its package counts as a freshness
	// input rather than the (possibly empty) set named explicitly.
	AllFiles bool
}

func newOutput() Output {
	return Output{
		Env:      make(map[string]string),
		Metadata: make(map[string]string),
	}
}

// Parse reads r line by line and folds every recognized directive into
// the returned Output. An unrecognized forge:-prefixed directive is
// recorded as a warning rather than rejected, per spec. A script that
// emits no rerun-if-* directive at all reports AllFiles true, so the
// caller knows to treat the whole package tree as a freshness input.
func Parse(r io.Reader) (Output, error) {
	out := newOutput()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, Prefix) {
			continue
		}
		directive := strings.TrimPrefix(line, Prefix)
		name, value, _ := strings.Cut(directive, "=")
		applyDirective(&out, name, value, directive)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("buildscript: reading directive stream: %w", err)
	}
	out.AllFiles = len(out.RerunIfChanged) == 0 && len(out.RerunIfEnv) == 0
	return out, nil
}

func applyDirective(out *Output, name, value, whole string) {
	switch name {
	case "rustc-link-lib":
		out.LinkLibs = append(out.LinkLibs, value)
	case "rustc-link-search":
		out.LinkSearch = append(out.LinkSearch, value)
	case "rustc-flags":
		out.Flags = append(out.Flags, value)
	case "rustc-cfg":
		out.Cfgs = append(out.Cfgs, value)
	case "rustc-env":
		k, v, ok := strings.Cut(value, "=")
		if ok {
			out.Env[k] = v
		}
	case "rerun-if-changed":
		out.RerunIfChanged = append(out.RerunIfChanged, value)
	case "rerun-if-env-changed":
		out.RerunIfEnv = append(out.RerunIfEnv, value)
	case "warning":
		out.Warnings = append(out.Warnings, value)
	default:
		if strings.HasPrefix(whole, "metadata:") {
			k, v, ok := strings.Cut(strings.TrimPrefix(whole, "metadata:"), "=")
			if ok {
				out.Metadata[k] = v
			}
			return
		}
		out.Warnings = append(out.Warnings, fmt.Sprintf("unknown directive: %s%s", Prefix, whole))
	}
}

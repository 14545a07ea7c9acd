// Package core is the orchestration layer.  It composes a cloud session
// with an output sink into complete operational modes and provides a
// builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  cloud  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between the
// parsed configuration and the code that runs.
package core

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/nexensys/scratch3-api/cloud"
)

// Mode represents a complete operational mode of cloudvar (watch, get,
// set, or a codec action).  Each mode owns its full lifecycle from
// connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// output is embedded by modes that print results.
type output struct {
	// Stdout defaults to os.Stdout when nil.  Override in tests for
	// deterministic I/O.
	Stdout io.Writer
}

func (o output) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

// VarName returns label as a cloud variable name, adding the sigil
// unless label already carries it.
func VarName(label string) string {
	if strings.HasPrefix(label, cloud.Sigil) {
		return label
	}
	return cloud.Name(label)
}

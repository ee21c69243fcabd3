// Package adapter defines the boundary between tool-specific trace formats
// and the layered event log, and ships the reference adapters used by the
// CLI and tests.
package adapter

import (
	"bufio"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/convergence"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
)

// Adapter turns one raw trace into a layered event log.
type Adapter interface {
	// Name is the registry key of the adapter.
	Name() string

	// Framework is the simulation tool whose output the adapter reads.
	Framework() constants.Framework

	// Parse reads the whole trace and assembles its log.
	Parse(ctx context.Context, raw io.Reader) (*lel.LayeredEventLog, error)
}

// ErrorKind classifies adapter failures.
type ErrorKind string

const (
	// ErrParse means the input could not be understood.
	ErrParse ErrorKind = "parse"
	// ErrUnsupportedFormat means no adapter handles the input.
	ErrUnsupportedFormat ErrorKind = "unsupported_format"
)

// Error is returned by adapters and the registry.
type Error struct {
	Kind    ErrorKind
	Adapter string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Adapter != "" {
		b.WriteString(" in ")
		b.WriteString(e.Adapter)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can test with
// errors.Is(err, &adapter.Error{Kind: adapter.ErrParse}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Options configure the log an adapter produces.
type Options struct {
	// ExperimentID defaults to a random UUID.
	ExperimentID string
	CycleID      uint32
	HypothesisID string

	// SourceFile names the raw trace in provenance anchors.
	SourceFile string

	// Params tune the derived convergence summary.
	Params convergence.Params
}

func (o Options) withDefaults(sourceFile string) Options {
	if o.ExperimentID == "" {
		o.ExperimentID = uuid.NewString()
	}
	if o.SourceFile == "" {
		o.SourceFile = sourceFile
	}
	if o.Params == (convergence.Params{}) {
		o.Params = convergence.DefaultParams()
	}
	return o
}

func (o Options) ref() models.ExperimentRef {
	return models.ExperimentRef{ExperimentID: o.ExperimentID, CycleID: o.CycleID, HypothesisID: o.HypothesisID}
}

var registry = map[string]func(Options) Adapter{
	EnergySeriesName: func(o Options) Adapter { return NewEnergySeries(o) },
	OSZICARName:      func(o Options) Adapter { return NewOSZICAR(o) },
}

// Names lists the registered adapters in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the adapter registered under name.
func Lookup(name string, opts Options) (Adapter, error) {
	factory, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, &Error{
			Kind: ErrUnsupportedFormat,
			Msg:  fmt.Sprintf("no adapter named %q (available: %s)", name, strings.Join(Names(), ", ")),
		}
	}
	return factory(opts), nil
}

// line is one raw input line with its 1-based number and content hash.
type line struct {
	num  uint64
	text string
	hash uint64
}

func (l line) provenance(sourceFile string) models.ProvenanceAnchor {
	return models.ProvenanceAnchor{
		SourceFile:     sourceFile,
		SourceLocation: models.LineRange(l.num, l.num),
		RawHash:        l.hash,
	}
}

// readLines reads raw to the end, checking ctx between lines.
func readLines(ctx context.Context, raw io.Reader, adapterName string) ([]line, error) {
	var lines []line
	sc := bufio.NewScanner(raw)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var num uint64
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		num++
		h := fnv.New64a()
		h.Write(sc.Bytes())
		lines = append(lines, line{num: num, text: sc.Text(), hash: h.Sum64()})
	}
	if err := sc.Err(); err != nil {
		return nil, &Error{Kind: ErrParse, Adapter: adapterName, Msg: "reading input", Err: err}
	}
	return lines, nil
}

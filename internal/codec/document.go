// Package codec reads and writes the persisted form of a layered event log
// and its causal overlay as JSON or YAML documents.
package codec

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
	"github.com/nvandessel/trace-semantics/internal/overlay"
)

var (
	// ErrUnsupportedVersion is returned for documents outside the supported
	// format version range.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrInconsistent is returned when persisted indexes or overlay do not
	// match those rebuilt from the events.
	ErrInconsistent = errors.New("document is inconsistent")
)

var supportedFormat = mustConstraint(constants.SupportedFormatConstraint)

func mustConstraint(c string) *semver.Constraints {
	parsed, err := semver.NewConstraint(c)
	if err != nil {
		panic(fmt.Sprintf("codec: invalid format constraint %q: %v", c, err))
	}
	return parsed
}

// Document is the persisted form of a log, its indexes and optionally its
// causal overlay.
type Document struct {
	FormatVersion string                 `json:"format_version" yaml:"format_version"`
	ExperimentRef models.ExperimentRef   `json:"experiment_ref" yaml:"experiment_ref"`
	Spec          models.ExperimentSpec  `json:"spec" yaml:"spec"`
	Events        []lel.TraceEvent       `json:"events" yaml:"events"`
	Indexes       lel.IndexSnapshot      `json:"indexes" yaml:"indexes"`
	Overlay       *overlay.CausalOverlay `json:"overlay,omitempty" yaml:"overlay,omitempty"`

	log *lel.LayeredEventLog
}

// NewDocument captures log and, when ov is non-nil, its overlay.
func NewDocument(log *lel.LayeredEventLog, ov *overlay.CausalOverlay) *Document {
	return &Document{
		FormatVersion: constants.FormatVersion,
		ExperimentRef: log.ExperimentRef(),
		Spec:          *log.Spec(),
		Events:        slices.Clone(log.Events()),
		Indexes:       log.Indexes().Snapshot(),
		Overlay:       ov,
		log:           log,
	}
}

// Log returns the log the document describes. It is nil until the document
// has been built by NewDocument or verified by a decoder.
func (d *Document) Log() *lel.LayeredEventLog {
	return d.log
}

// checkVersion rejects documents outside the supported version range.
func (d *Document) checkVersion() error {
	v, err := semver.NewVersion(d.FormatVersion)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, d.FormatVersion, err)
	}
	if !supportedFormat.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, constants.SupportedFormatConstraint)
	}
	return nil
}

// verify rebuilds the log from the decoded events and checks the persisted
// indexes and overlay against the rebuilt ones.
func (d *Document) verify() (err error) {
	if err := d.checkVersion(); err != nil {
		return err
	}

	defer func() {
		// Malformed events trip the builder's construction checks.
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInconsistent, r)
		}
	}()
	b := lel.NewBuilder(d.ExperimentRef, d.Spec, lel.WithCapacity(len(d.Events)))
	for _, e := range d.Events {
		b.AppendEvent(e)
	}
	log := b.Build()

	if !log.Indexes().Snapshot().Equal(d.Indexes) {
		return fmt.Errorf("%w: persisted indexes differ from rebuilt indexes", ErrInconsistent)
	}
	if d.Overlay != nil && !overlay.FromLog(log).Equal(d.Overlay) {
		return fmt.Errorf("%w: persisted overlay differs from rebuilt overlay", ErrInconsistent)
	}
	d.log = log
	return nil
}

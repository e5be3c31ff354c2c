// Package gate applies the two-threshold trust policy to raw classifier
// output and decides whether to consult the reference table and the
// registry.
package gate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/errors"
	"github.com/muzzleid/muzzle-go/internal/logging"
	"github.com/muzzleid/muzzle-go/internal/reference"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

// RegistryMatchLimit caps the registry lookup performed in the mapped state.
const RegistryMatchLimit = 50

// Prediction is the raw classifier output: a label and a scalar confidence.
// The classifier itself is an opaque oracle to this system.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// State is the terminal state of one classification attempt.
type State int

const (
	// StateUnreliable: confidence below the fixed reliability floor. The
	// label is never surfaced as a catalog match and no lookups happen.
	StateUnreliable State = iota
	// StateBelowDisplayThreshold: trustworthy but suppressed by the
	// caller's display preference. No lookups happen.
	StateBelowDisplayThreshold
	// StateMapped: trustworthy and displayed; reference table and registry
	// have both been consulted.
	StateMapped
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateUnreliable:
		return "unreliable"
	case StateBelowDisplayThreshold:
		return "below_display_threshold"
	case StateMapped:
		return "mapped"
	default:
		return "unknown"
	}
}

// Result is the trust-qualified outcome of one classification attempt.
// Reference and Subjects are populated only in the mapped state; either may
// be empty there, which is a valid outcome, not an error.
type Result struct {
	State      State              `json:"state"`
	Prediction Prediction         `json:"prediction"`
	Reference  []reference.Row    `json:"reference,omitempty"`
	Subjects   []registry.Subject `json:"subjects,omitempty"`
}

// Gate evaluates classification attempts against the trust policy.
type Gate struct {
	store registry.Interface
	refs  *reference.Provider
}

var (
	gateLogger     *slog.Logger
	gateLoggerOnce sync.Once
)

func getLogger() *slog.Logger {
	gateLoggerOnce.Do(func() {
		gateLogger = logging.ForService("gate")
	})
	return gateLogger
}

// New creates a gate over the given registry store and reference provider.
func New(store registry.Interface, refs *reference.Provider) *Gate {
	return &Gate{store: store, refs: refs}
}

// Evaluate runs the state machine for a single attempt. Boundary values
// satisfy their threshold: confidence equal to the floor or to the display
// threshold resolves to the satisfied side. The two thresholds are always
// evaluated independently, so a display threshold configured above the
// floor is legal.
func (g *Gate) Evaluate(ctx context.Context, pred Prediction, displayThreshold float64) (*Result, error) {
	if pred.Confidence < 0 || pred.Confidence > 1 {
		return nil, errors.Newf("confidence %.4f outside [0,1]", pred.Confidence).
			Component("gate").
			Category(errors.CategoryValidation).
			Context("confidence", pred.Confidence).
			Build()
	}
	if displayThreshold < 0 || displayThreshold > 1 {
		return nil, errors.Newf("display threshold %.4f outside [0,1]", displayThreshold).
			Component("gate").
			Category(errors.CategoryValidation).
			Context("display_threshold", displayThreshold).
			Build()
	}
	if pred.Label == "" {
		return nil, errors.Newf("prediction label is empty").
			Component("gate").
			Category(errors.CategoryValidation).
			Build()
	}

	result := &Result{Prediction: pred}

	if pred.Confidence < conf.ReliabilityFloor {
		result.State = StateUnreliable
		getLogger().Debug("classification below reliability floor",
			"label", pred.Label, "confidence", pred.Confidence)
		return result, nil
	}

	if pred.Confidence < displayThreshold {
		result.State = StateBelowDisplayThreshold
		return result, nil
	}

	result.State = StateMapped
	result.Reference = g.refs.Table().LookupByLabel(pred.Label)

	subjects, err := g.store.ByLabel(ctx, pred.Label, RegistryMatchLimit)
	if err != nil {
		return nil, err
	}
	result.Subjects = subjects

	getLogger().Debug("classification mapped",
		"label", pred.Label,
		"confidence", pred.Confidence,
		"reference_rows", len(result.Reference),
		"registry_matches", len(result.Subjects))
	return result, nil
}

package infer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoSolution matches every unification failure. Failures are expected during
// search: the caller tries another derivation.
var ErrNoSolution = errors.New("no solution")

// ErrMalformedCanonical reports a correspondence table canonicalization can never
// produce, and so indicates a defect in the caller
var ErrMalformedCanonical = errors.New("malformed canonical correspondence table")

type FailureKind uint8

const (
	// HeadMismatch is two different type constructors or placeholders
	HeadMismatch FailureKind = iota
	ArityMismatch
	KindMismatch
	// UniverseEscape is a variable bound to a placeholder it cannot see
	UniverseEscape
	// Cycle is a variable bound to a term containing itself
	Cycle
	PlaceholderMismatch
)

func (k FailureKind) String() string {
	switch k {
	case HeadMismatch:
		return "head mismatch"
	case ArityMismatch:
		return "arity mismatch"
	case KindMismatch:
		return "kind mismatch"
	case UniverseEscape:
		return "universe escape"
	case Cycle:
		return "cycle"
	case PlaceholderMismatch:
		return "placeholder mismatch"
	default:
		return "unknown"
	}
}

// NoSolution is the error returned when two terms cannot be made equal
type NoSolution struct {
	Kind        FailureKind
	Left, Right string
}

func (e *NoSolution) Error() string {
	return fmt.Sprintf("cannot unify `%s` and `%s`: %s", e.Left, e.Right, e.Kind)
}

func (e *NoSolution) Is(target error) bool {
	return target == ErrNoSolution
}

func noSolution(kind FailureKind, left, right fmt.Stringer) error {
	recordUnifyFailure(kind)
	return errors.WithStack(&NoSolution{Kind: kind, Left: left.String(), Right: right.String()})
}

// FailureKindOf returns the kind of a unification failure anywhere in err's chain
func FailureKindOf(err error) (FailureKind, bool) {
	var noSol *NoSolution
	if errors.As(err, &noSol) {
		return noSol.Kind, true
	}
	return 0, false
}

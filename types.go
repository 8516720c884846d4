package expect

import "maps"

// Reserved binding names.
const (
	// CandidateBinding names the value under test inside expression filters.
	CandidateBinding = "x"
	// PresentBinding and MissingBinding name the presence sentinels.
	PresentBinding = "PRESENT"
	MissingBinding = "MISSING"
)

// Bindings maps variable names to the values visible to an expression.
type Bindings map[string]any

// With returns a copy of b with name bound to value.
func (b Bindings) With(name string, value any) Bindings {
	out := make(Bindings, len(b)+1)
	maps.Copy(out, b)
	out[name] = value
	return out
}

// Evaluator compiles and executes expressions for one runtime.
type Evaluator interface {
	Evaluate(bindings Bindings, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program. Implementations
// must be safe for concurrent use; one rule is shared by every caller that
// compiles the same text.
type CompiledRule interface {
	Evaluate(bindings Bindings) (any, error)
	Source() string
}

// Presence is the result of the PRESENT and MISSING sentinels.
type Presence int

const (
	Present Presence = iota + 1
	Missing
)

func (p Presence) String() string {
	switch p {
	case Present:
		return PresentBinding
	case Missing:
		return MissingBinding
	default:
		return "UNKNOWN"
	}
}

// ValueKind classifies the value produced by a one-shot evaluation.
type ValueKind int

const (
	KindLiteral ValueKind = iota
	KindPresent
	KindMissing
	KindKnownBug
)

func (k ValueKind) String() string {
	switch k {
	case KindPresent:
		return "present"
	case KindMissing:
		return "missing"
	case KindKnownBug:
		return "known_bug"
	default:
		return "literal"
	}
}

// Classify reports how a one-shot evaluation result should become a Filter.
func Classify(value any) ValueKind {
	switch typed := value.(type) {
	case Presence:
		switch typed {
		case Present:
			return KindPresent
		case Missing:
			return KindMissing
		}
	case *KnownBug:
		if typed != nil {
			return KindKnownBug
		}
	}
	return KindLiteral
}

func presenceBindings(bindings Bindings) map[string]any {
	env := make(map[string]any, len(bindings)+2)
	env[PresentBinding] = Present
	env[MissingBinding] = Missing
	maps.Copy(env, bindings)
	return env
}

package stream

import "strings"

// TypePolicy decides which message types a queue stores. With Invert unset
// the listed types are the stored ones; with Invert set they are the
// dropped ones. An empty policy stores everything.
type TypePolicy struct {
	Types  []string
	Invert bool
}

// Allows reports whether messages named name are stored.
func (p TypePolicy) Allows(name string) bool {
	if p.Empty() {
		return true
	}
	listed := p.contains(name)
	if p.Invert {
		return !listed
	}
	return listed
}

func (p TypePolicy) Empty() bool {
	return len(p.Types) == 0
}

func (p TypePolicy) String() string {
	if p.Empty() {
		return "all types"
	}
	mode := "stored"
	if p.Invert {
		mode = "dropped"
	}
	return mode + " [" + strings.Join(p.Types, ", ") + "]"
}

func (p TypePolicy) contains(name string) bool {
	for _, t := range p.Types {
		if t == name {
			return true
		}
	}
	return false
}

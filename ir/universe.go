package ir

import "fmt"

// UniverseIndex orders the scopes in which variables and placeholders are created.
// A variable in universe U can only be unified with terms whose placeholders live in
// universes <= U.
type UniverseIndex uint32

// Root is the universe of every variable created outside any quantifier
const Root UniverseIndex = 0

// CanSee reports whether a variable in ui may name things created in other
func (ui UniverseIndex) CanSee(other UniverseIndex) bool {
	return ui >= other
}

func (ui UniverseIndex) Next() UniverseIndex {
	return ui + 1
}

func (ui UniverseIndex) String() string {
	return fmt.Sprintf("U%d", uint32(ui))
}

// MinUniverse returns the more restrictive of a and b
func MinUniverse(a, b UniverseIndex) UniverseIndex {
	return min(a, b)
}

// PlaceholderIndex identifies a rigid (universally quantified) type or lifetime.
// It is also a TypeName, so a placeholder type is an ApplyTy named by it.
type PlaceholderIndex struct {
	Universe UniverseIndex
	Idx      int
}

func (p PlaceholderIndex) isTypeName() {}

func (p PlaceholderIndex) String() string {
	return fmt.Sprintf("!%d.%d", uint32(p.Universe), p.Idx)
}

package r1cs

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

type varKind uint8

const (
	kindCommitted varKind = iota
	kindMultLeft
	kindMultRight
	kindMultOutput
	kindOne
)

// Variable is a handle into a constraint system: a slot of the committed
// input vector, one of the three wires of a multiplication gate, or the
// constant one.
type Variable struct {
	kind  varKind
	index int
}

// One returns the constant-one variable, used to fold constants into linear
// combinations.
func One() Variable {
	return Variable{kind: kindOne}
}

// Term is a variable scaled by a coefficient.
type Term struct {
	Var   Variable
	Coeff fr.Element
}

// LinearCombination is a weighted sum of variables. Constraints assert that
// a linear combination evaluates to zero.
type LinearCombination []Term

// FromVariable lifts a variable into a one-term linear combination.
func FromVariable(v Variable) LinearCombination {
	var one fr.Element
	one.SetOne()
	return LinearCombination{{Var: v, Coeff: one}}
}

// FromConstant lifts a constant into a linear combination over One.
func FromConstant(c fr.Element) LinearCombination {
	return LinearCombination{{Var: One(), Coeff: c}}
}

// Add returns lc + other.
func (lc LinearCombination) Add(other LinearCombination) LinearCombination {
	out := make(LinearCombination, 0, len(lc)+len(other))
	out = append(out, lc...)
	out = append(out, other...)
	return out
}

// Sub returns lc - other.
func (lc LinearCombination) Sub(other LinearCombination) LinearCombination {
	out := make(LinearCombination, 0, len(lc)+len(other))
	out = append(out, lc...)
	for _, t := range other {
		t.Coeff.Neg(&t.Coeff)
		out = append(out, t)
	}
	return out
}

// Scale returns c * lc.
func (lc LinearCombination) Scale(c fr.Element) LinearCombination {
	out := make(LinearCombination, len(lc))
	for i, t := range lc {
		t.Coeff.Mul(&t.Coeff, &c)
		out[i] = t
	}
	return out
}

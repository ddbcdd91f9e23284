// Package r1cs implements a rank-1 constraint system prover and verifier in
// the Bulletproofs style, with the inner-product phase delegated to the
// k-ary folding arguments of package fold and a batched consistency argument
// tying the committed witness to caller-supplied re-randomized commitment
// vectors. Verification reduces to a single multiscalar multiplication.
package r1cs

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkfold/bulletfold/fold"
)

// Error values. The folding sub-arguments share the same taxonomy, so the
// sentinels are those of package fold and errors.Is matches across layers.
var (
	ErrFormat                  = fold.ErrFormat
	ErrVerification            = fold.ErrVerification
	ErrInvalidGeneratorsLength = fold.ErrInvalidGeneratorsLength
	ErrInputLength             = fold.ErrInputLength
)

// ConstraintSystem is the interface gadgets are written against. A gadget
// filled into a Prover sees real witness values; filled into a Verifier it
// only shapes the constraint set. Both sides must perform the identical
// sequence of calls.
type ConstraintSystem interface {
	// Multiply adds a multiplication gate constrained to the two linear
	// combinations and returns its left, right and output wires.
	Multiply(left, right LinearCombination) (Variable, Variable, Variable, error)

	// Allocate adds an unconstrained multiplication gate. The assignment
	// callback provides the three wire values on the prover side and is
	// ignored by the verifier.
	Allocate(assign func() (left, right, out fr.Element, err error)) (Variable, Variable, Variable, error)

	// Constrain asserts that the linear combination evaluates to zero.
	Constrain(lc LinearCombination)

	// ChallengeScalar draws a Fiat-Shamir challenge usable as a gadget
	// randomizer. Sound only for constraints over previously committed
	// variables.
	ChallengeScalar(label string) fr.Element
}

// flattenedConstraints collapses the constraint list into per-wire weight
// vectors under powers of z, plus the constant term wc. Constraint i is
// weighted by z^(i+1).
func flattenedConstraints(constraints []LinearCombination, z fr.Element, numVars, numCommitted int) (wL, wR, wO, wV []fr.Element, wc fr.Element) {
	wL = make([]fr.Element, numVars)
	wR = make([]fr.Element, numVars)
	wO = make([]fr.Element, numVars)
	wV = make([]fr.Element, numCommitted)

	expZ := z
	var t fr.Element
	for _, lc := range constraints {
		for _, term := range lc {
			t.Mul(&expZ, &term.Coeff)
			switch term.Var.kind {
			case kindMultLeft:
				wL[term.Var.index].Add(&wL[term.Var.index], &t)
			case kindMultRight:
				wR[term.Var.index].Add(&wR[term.Var.index], &t)
			case kindMultOutput:
				wO[term.Var.index].Add(&wO[term.Var.index], &t)
			case kindCommitted:
				wV[term.Var.index].Sub(&wV[term.Var.index], &t)
			case kindOne:
				wc.Sub(&wc, &t)
			}
		}
		expZ.Mul(&expZ, &z)
	}
	return wL, wR, wO, wV, wc
}

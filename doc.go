// Package bulletfold implements a non-interactive zero-knowledge argument
// system for rank-1 constraint systems (R1CS) over vector Pedersen
// commitments, built around a generalized k-ary folding argument.
//
// The classical Bulletproofs inner-product argument halves the witness
// vectors every round (arity 2). bulletfold generalizes the reduction to an
// arbitrary fold arity k >= 2 with a fixed round count d, padding the working
// vectors to a multiple of k before each round. A proof carries d*(2k-2)
// cross-term commitments and two final vectors of length m, where m is the
// deterministic result of d pad-and-divide steps.
//
// On top of the folding argument, the r1cs package provides a constraint
// system with vector commitments, and an aggregation protocol that combines
// the circuit argument with a ciphertext-consistency argument (proving the
// committed witness consistent with a pair of re-randomized ElGamal-style
// ciphertext lists) into a single multiscalar-multiplication check.
//
// All group arithmetic is over the BN254 G1 group via
// github.com/consensys/gnark-crypto.
package bulletfold

import "github.com/blang/semver/v4"

// Version of the bulletfold library.
var Version = semver.MustParse("0.1.0")

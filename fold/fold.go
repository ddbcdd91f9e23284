// Package fold implements the generalized k-ary folding arguments at the
// heart of bulletfold.
//
// Two argument families are provided:
//
//   - Proof: the k-ary folding argument over a pair of vectors (a, b),
//     proving that P = <a,G> + <b,H> + <a,b>*Q opens correctly. Each of the
//     d rounds pads the working length to a multiple of k, splits every
//     vector into k blocks, commits 2k-2 cross terms, and folds by powers of
//     a single round challenge. For k=2 this degenerates to the classical
//     one-(L,R)-pair-per-round inner-product argument.
//
//   - ConsistencyProof: the batched variant over a single vector a against
//     two generator chains, proving that P0 = <a,G> and P1 = <a,C1> hold
//     simultaneously. There is no companion vector and no inner-product
//     term, so the cross terms reduce to the triangular block ranges and
//     come in pairs, one per generator chain.
//
// Both arguments expose a VerificationScalars method that replays the
// transcript read-only and reconstructs, without refolding, the effective
// per-original-index generator exponents. Callers embed those scalars into a
// larger multiscalar multiplication; the Verify methods are standalone
// single-equation checks used by tests.
//
// All multiscalar multiplications use gnark-crypto's variable-time MultiExp.
// Operands derived from witness data are blinded upstream by the r1cs
// protocol; a constant-time profile would need a different MSM primitive.
package fold

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc"
	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var (
	// ErrFormat reports a malformed byte encoding: wrong length, a
	// non-canonical scalar, or an invalid point encoding.
	ErrFormat = errors.New("fold: malformed proof encoding")

	// ErrVerification reports a well-formed proof that fails the
	// cryptographic check.
	ErrVerification = errors.New("fold: proof verification failed")

	// ErrInvalidGeneratorsLength reports insufficient or mismatched public
	// generators.
	ErrInvalidGeneratorsLength = errors.New("fold: invalid generators length")

	// ErrInputLength reports caller-supplied vectors of incompatible
	// lengths or an unusable fold arity.
	ErrInputLength = errors.New("fold: input length mismatch")
)

// RoundLengths returns the working vector lengths across d rounds of
// "pad to the next multiple of k, divide by k", starting from n. The
// returned slice has d+1 entries; the last one is the final length m.
// Prover and verifier must compute this identically: the verifier truncates
// its reconstructed exponent vectors to these pre-padding lengths.
func RoundLengths(n, k, d int) []int {
	lengths := make([]int, 0, d+1)
	lengths = append(lengths, n)
	for i := 0; i < d; i++ {
		if rem := n % k; rem != 0 {
			n += k - rem
		}
		n /= k
		lengths = append(lengths, n)
	}
	return lengths
}

func innerProduct(a, b []fr.Element) fr.Element {
	if len(a) != len(b) {
		panic("fold: inner product length mismatch")
	}
	var out, t fr.Element
	for i := range a {
		t.Mul(&a[i], &b[i])
		out.Add(&out, &t)
	}
	return out
}

// powers returns [1, x, x^2, ..., x^(n-1)].
func powers(x fr.Element, n int) []fr.Element {
	out := make([]fr.Element, n)
	out[0].SetOne()
	for i := 1; i < n; i++ {
		out[i].Mul(&out[i-1], &x)
	}
	return out
}

func scalarPow(base fr.Element, exp uint64) fr.Element {
	var result fr.Element
	result.SetOne()
	b := base
	for exp > 0 {
		if exp&1 == 1 {
			result.Mul(&result, &b)
		}
		b.Square(&b)
		exp >>= 1
	}
	return result
}

// msmFiltered computes the multiscalar multiplication after dropping pairs
// whose base is the point at infinity. Padding introduces identity bases,
// which contribute nothing but must not reach MultiExp.
func msmFiltered(points []bn254.G1Affine, scalars []fr.Element) (bn254.G1Affine, error) {
	for i := range points {
		if points[i].IsInfinity() {
			fp := make([]bn254.G1Affine, 0, len(points))
			fs := make([]fr.Element, 0, len(scalars))
			for j := range points {
				if !points[j].IsInfinity() {
					fp = append(fp, points[j])
					fs = append(fs, scalars[j])
				}
			}
			points, scalars = fp, fs
			break
		}
	}
	if len(points) == 0 {
		return bn254.G1Affine{}, nil
	}
	var acc bn254.G1Jac
	if _, err := acc.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return bn254.G1Affine{}, err
	}
	var res bn254.G1Affine
	res.FromJacobian(&acc)
	return res, nil
}

// chunks splits v into contiguous blocks of the given size. len(v) must be a
// multiple of size.
func chunks(v []fr.Element, size int) [][]fr.Element {
	out := make([][]fr.Element, 0, len(v)/size)
	for i := 0; i < len(v); i += size {
		out = append(out, v[i:i+size])
	}
	return out
}

func chunksPoints(v []bn254.G1Affine, size int) [][]bn254.G1Affine {
	out := make([][]bn254.G1Affine, 0, len(v)/size)
	for i := 0; i < len(v); i += size {
		out = append(out, v[i:i+size])
	}
	return out
}

// tensorExpand blows sc up by the k inverse-challenge (or challenge) powers
// in block and truncates the result to keep, implementing one backward step
// of the exponent reconstruction.
func tensorExpand(sc []fr.Element, block []fr.Element, keep int) []fr.Element {
	next := make([]fr.Element, 0, len(sc)*len(block))
	var t fr.Element
	for i := range block {
		for j := range sc {
			t.Mul(&sc[j], &block[i])
			next = append(next, t)
		}
	}
	if keep < len(next) {
		next = next[:keep]
	}
	return next
}

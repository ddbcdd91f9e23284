// Package generators builds the public parameters of the bulletfold proving
// system: the two Pedersen base points and the indexed generator chains used
// by vector commitments and the folding arguments.
//
// All generators are derived deterministically by hashing to the curve with
// domain-separated labels, so provers and verifiers reconstruct identical
// parameters from nothing but the capacity.
package generators

import (
	"encoding/binary"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

const (
	dstPedersenBlinding = "bulletfold-v1:pedersen-blinding"
	dstChainG           = "bulletfold-v1:gens-G"
	dstChainH           = "bulletfold-v1:gens-H"
)

// PedersenGens holds the two base points of a Pedersen commitment
// value*B + blinding*BBlinding.
type PedersenGens struct {
	B         bn254.G1Affine
	BBlinding bn254.G1Affine
}

// NewPedersenGens returns the default Pedersen bases: the curve generator and
// a hashed-to-curve blinding base with no known discrete-log relation to it.
func NewPedersenGens() PedersenGens {
	_, _, g1, _ := bn254.Generators()
	blinding, err := bn254.HashToG1([]byte("B-blinding"), []byte(dstPedersenBlinding))
	if err != nil {
		// hash-to-curve over a fixed message is infallible at runtime
		panic(err)
	}
	return PedersenGens{B: g1, BBlinding: blinding}
}

// Commit computes value*B + blinding*BBlinding.
func (pg *PedersenGens) Commit(value, blinding fr.Element) bn254.G1Affine {
	var vBig, bBig big.Int
	value.BigInt(&vBig)
	blinding.BigInt(&bBig)

	var vB, bB bn254.G1Affine
	vB.ScalarMultiplication(&pg.B, &vBig)
	bB.ScalarMultiplication(&pg.BBlinding, &bBig)

	var acc bn254.G1Jac
	acc.FromAffine(&vB)
	acc.AddMixed(&bB)

	var res bn254.G1Affine
	res.FromJacobian(&acc)
	return res
}

// BulletproofGens holds the G and H generator chains, usable in prefix slices
// of any length up to Capacity.
type BulletproofGens struct {
	// Capacity is the number of generators available per chain.
	Capacity int

	g []bn254.G1Affine
	h []bn254.G1Affine
}

// NewBulletproofGens derives capacity generators for each chain.
func NewBulletproofGens(capacity int) (*BulletproofGens, error) {
	bg := &BulletproofGens{
		Capacity: capacity,
		g:        make([]bn254.G1Affine, capacity),
		h:        make([]bn254.G1Affine, capacity),
	}
	var msg [8]byte
	for i := 0; i < capacity; i++ {
		binary.LittleEndian.PutUint64(msg[:], uint64(i))
		p, err := bn254.HashToG1(msg[:], []byte(dstChainG))
		if err != nil {
			return nil, err
		}
		bg.g[i] = p
		p, err = bn254.HashToG1(msg[:], []byte(dstChainH))
		if err != nil {
			return nil, err
		}
		bg.h[i] = p
	}
	return bg, nil
}

// G returns the first n generators of the G chain. n must not exceed
// Capacity; callers are expected to have checked capacity up front.
func (bg *BulletproofGens) G(n int) []bn254.G1Affine {
	return bg.g[:n]
}

// H returns the first n generators of the H chain.
func (bg *BulletproofGens) H(n int) []bn254.G1Affine {
	return bg.h[:n]
}

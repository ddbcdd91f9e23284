// Package transcript implements the Fiat-Shamir transcript used by all
// bulletfold protocols.
//
// A Transcript is an append-only accumulator of labeled protocol messages.
// Challenges are deterministic functions of every message absorbed so far,
// so the prover and verifier derive identical challenges exactly when they
// absorb identical message sequences. A transcript must be exclusively owned
// by a single in-flight proving or verifying call.
package transcript

import (
	"encoding/binary"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"
)

// domain separation tags for the three absorb flavors
const (
	tagMessage   = 0x01
	tagChallenge = 0x02
	tagRngSeed   = 0x03
)

// Transcript is a chained-digest Fiat-Shamir state.
type Transcript struct {
	state [blake2b.Size256]byte
}

// New creates a transcript bound to a protocol label.
func New(label string) *Transcript {
	t := &Transcript{}
	t.AppendMessage("protocol-init", []byte(label))
	return t
}

// Clone returns an independent copy of the transcript state.
func (t *Transcript) Clone() *Transcript {
	c := *t
	return &c
}

// AppendMessage absorbs labeled bytes into the transcript state. Both the
// label and the message are length-prefixed so that distinct (label, message)
// splits can never collide.
func (t *Transcript) AppendMessage(label string, msg []byte) {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // keyless blake2b cannot fail
	}
	var lenBuf [8]byte
	h.Write(t.state[:])
	h.Write([]byte{tagMessage})
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(label)))
	h.Write(lenBuf[:])
	h.Write([]byte(label))
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(msg)))
	h.Write(lenBuf[:])
	h.Write(msg)
	h.Sum(t.state[:0])
}

// AppendU64 absorbs a labeled little-endian integer.
func (t *Transcript) AppendU64(label string, x uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], x)
	t.AppendMessage(label, buf[:])
}

// AppendPoint absorbs the canonical compressed encoding of a group element.
func (t *Transcript) AppendPoint(label string, p *bn254.G1Affine) {
	buf := p.Bytes()
	t.AppendMessage(label, buf[:])
}

// AppendScalar absorbs the canonical encoding of a scalar.
func (t *Transcript) AppendScalar(label string, s *fr.Element) {
	buf := s.Bytes()
	t.AppendMessage(label, buf[:])
}

// ChallengeScalar derives a labeled challenge scalar and ratchets the
// transcript state, so repeated calls with the same label yield independent
// challenges.
func (t *Transcript) ChallengeScalar(label string) fr.Element {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(err)
	}
	var lenBuf [8]byte
	h.Write(t.state[:])
	h.Write([]byte{tagChallenge})
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(label)))
	h.Write(lenBuf[:])
	h.Write([]byte(label))
	digest := h.Sum(nil)

	t.state = blake2b.Sum256(digest)

	// 64 uniform bytes reduced into fr keep the bias negligible.
	var c fr.Element
	c.SetBytes(digest)
	if c.IsZero() {
		// The folding rounds invert their challenges; a zero challenge is
		// both unsound and non-invertible.
		c.SetOne()
	}
	return c
}

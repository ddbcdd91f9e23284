package transcript

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"
)

// Rng is a deterministic-stream random generator seeded from a transcript
// state, optional private witness bytes, and fresh OS entropy. It is used
// exclusively for proof-internal blinding scalars: binding the stream to the
// transcript and witness protects against randomness-reuse across transcript
// forks, while the OS entropy keeps distinct proofs of the same statement
// unlinkable. It is never used to derive protocol challenges.
type Rng struct {
	seed    [blake2b.Size]byte
	counter uint64
}

// Rng forks a generator off the current transcript state. The witness slices
// are absorbed into the seed but leave the transcript itself untouched.
func (t *Transcript) Rng(label string, witness ...[]byte) (*Rng, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return nil, err
	}
	var lenBuf [8]byte
	h.Write(t.state[:])
	h.Write([]byte{tagRngSeed})
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(label)))
	h.Write(lenBuf[:])
	h.Write([]byte(label))
	for _, w := range witness {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(w)))
		h.Write(lenBuf[:])
		h.Write(w)
	}
	var entropy [32]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return nil, fmt.Errorf("transcript rng: %w", err)
	}
	h.Write(entropy[:])

	r := &Rng{}
	copy(r.seed[:], h.Sum(nil))
	return r, nil
}

// Scalar draws the next scalar from the stream.
func (r *Rng) Scalar() fr.Element {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(err)
	}
	var ctr [8]byte
	binary.LittleEndian.PutUint64(ctr[:], r.counter)
	r.counter++
	h.Write(r.seed[:])
	h.Write(ctr[:])

	var e fr.Element
	e.SetBytes(h.Sum(nil))
	return e
}

// Scalars draws n scalars at once.
func (r *Rng) Scalars(n int) []fr.Element {
	out := make([]fr.Element, n)
	for i := range out {
		out[i] = r.Scalar()
	}
	return out
}

// Wipe overwrites the generator seed.
func (r *Rng) Wipe() {
	for i := range r.seed {
		r.seed[i] = 0
	}
}

package fold

import (
	"encoding/binary"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Wire layout, shared by both proof families: a header of three 32-byte
// words carrying k, d and m as little-endian u64 values (upper 24 bytes
// zero), followed by the compressed cross-term points round by round, then
// the final scalar vectors in canonical big-endian form. Every field is
// exactly 32 bytes, so the total length is determined by the header and
// checked strictly on decode.

const wordSize = 32

// maxFoldDepth bounds the round count accepted on decode. Folding by the
// minimum arity halves the length each round, so 32 rounds already exhaust
// any vector addressable on a 64-bit machine.
const maxFoldDepth = 32

func appendWord(buf []byte, x uint64) []byte {
	var w [wordSize]byte
	binary.LittleEndian.PutUint64(w[:8], x)
	return append(buf, w[:]...)
}

func readWord(buf []byte) (uint64, error) {
	for _, b := range buf[8:wordSize] {
		if b != 0 {
			return 0, ErrFormat
		}
	}
	return binary.LittleEndian.Uint64(buf[:8]), nil
}

func appendPointBytes(buf []byte, p *bn254.G1Affine) []byte {
	b := p.Bytes()
	return append(buf, b[:]...)
}

func appendScalarBytes(buf []byte, s *fr.Element) []byte {
	b := s.Bytes()
	return append(buf, b[:]...)
}

func decodePoint(buf []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if _, err := p.SetBytes(buf[:wordSize]); err != nil {
		return bn254.G1Affine{}, ErrFormat
	}
	return p, nil
}

// decodeScalar rejects non-canonical encodings: the value must be the unique
// big-endian representative below the group order.
func decodeScalar(buf []byte) (fr.Element, error) {
	var e fr.Element
	var v big.Int
	v.SetBytes(buf[:wordSize])
	if v.Cmp(fr.Modulus()) >= 0 {
		return e, ErrFormat
	}
	e.SetBigInt(&v)
	return e, nil
}

// MarshalBinary encodes the proof as header, d*(2k-2) points, then the two
// final vectors.
func (p *Proof) MarshalBinary() ([]byte, error) {
	k := p.K
	d := len(p.Rounds)
	m := len(p.AFinal)
	if k < 2 || d == 0 || m == 0 || len(p.BFinal) != m {
		return nil, ErrFormat
	}
	buf := make([]byte, 0, wordSize*(3+d*(2*k-2)+2*m))
	buf = appendWord(buf, uint64(k))
	buf = appendWord(buf, uint64(d))
	buf = appendWord(buf, uint64(m))
	for _, round := range p.Rounds {
		if len(round) != 2*k-2 {
			return nil, ErrFormat
		}
		for i := range round {
			buf = appendPointBytes(buf, &round[i])
		}
	}
	for i := range p.AFinal {
		buf = appendScalarBytes(buf, &p.AFinal[i])
	}
	for i := range p.BFinal {
		buf = appendScalarBytes(buf, &p.BFinal[i])
	}
	return buf, nil
}

// UnmarshalBinary decodes and validates a proof. Any length mismatch,
// header inconsistency, invalid point or non-canonical scalar yields
// ErrFormat; a successfully decoded proof contains only valid group elements.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data) < 3*wordSize || len(data)%wordSize != 0 {
		return ErrFormat
	}
	k64, err := readWord(data[0:])
	if err != nil {
		return err
	}
	d64, err := readWord(data[wordSize:])
	if err != nil {
		return err
	}
	m64, err := readWord(data[2*wordSize:])
	if err != nil {
		return err
	}
	if k64 < 2 || k64 > 1<<16 || d64 == 0 || d64 >= maxFoldDepth || m64 == 0 || m64 > 1<<32 {
		return ErrFormat
	}
	k, d, m := int(k64), int(d64), int(m64)
	if uint64(len(data)) != uint64(wordSize)*(3+uint64(d)*uint64(2*k-2)+2*uint64(m)) {
		return ErrFormat
	}

	off := 3 * wordSize
	rounds := make([][]bn254.G1Affine, d)
	for r := range rounds {
		rounds[r] = make([]bn254.G1Affine, 2*k-2)
		for i := range rounds[r] {
			if rounds[r][i], err = decodePoint(data[off:]); err != nil {
				return err
			}
			off += wordSize
		}
	}
	aFinal := make([]fr.Element, m)
	for i := range aFinal {
		if aFinal[i], err = decodeScalar(data[off:]); err != nil {
			return err
		}
		off += wordSize
	}
	bFinal := make([]fr.Element, m)
	for i := range bFinal {
		if bFinal[i], err = decodeScalar(data[off:]); err != nil {
			return err
		}
		off += wordSize
	}

	p.K = k
	p.Rounds = rounds
	p.AFinal = aFinal
	p.BFinal = bFinal
	return nil
}

// MarshalBinary encodes the proof as header, d*(2k-2) point pairs, then the
// final vector.
func (p *ConsistencyProof) MarshalBinary() ([]byte, error) {
	k := p.K
	d := len(p.Rounds)
	m := len(p.Z)
	if k < 2 || d == 0 || m == 0 {
		return nil, ErrFormat
	}
	buf := make([]byte, 0, wordSize*(3+2*d*(2*k-2)+m))
	buf = appendWord(buf, uint64(k))
	buf = appendWord(buf, uint64(d))
	buf = appendWord(buf, uint64(m))
	for _, round := range p.Rounds {
		if len(round) != 2*k-2 {
			return nil, ErrFormat
		}
		for i := range round {
			buf = appendPointBytes(buf, &round[i][0])
			buf = appendPointBytes(buf, &round[i][1])
		}
	}
	for i := range p.Z {
		buf = appendScalarBytes(buf, &p.Z[i])
	}
	return buf, nil
}

// UnmarshalBinary decodes and validates a consistency proof under the same
// strictness rules as Proof.UnmarshalBinary.
func (p *ConsistencyProof) UnmarshalBinary(data []byte) error {
	if len(data) < 3*wordSize || len(data)%wordSize != 0 {
		return ErrFormat
	}
	k64, err := readWord(data[0:])
	if err != nil {
		return err
	}
	d64, err := readWord(data[wordSize:])
	if err != nil {
		return err
	}
	m64, err := readWord(data[2*wordSize:])
	if err != nil {
		return err
	}
	if k64 < 2 || k64 > 1<<16 || d64 == 0 || d64 >= maxFoldDepth || m64 == 0 || m64 > 1<<32 {
		return ErrFormat
	}
	k, d, m := int(k64), int(d64), int(m64)
	if uint64(len(data)) != uint64(wordSize)*(3+2*uint64(d)*uint64(2*k-2)+uint64(m)) {
		return ErrFormat
	}

	off := 3 * wordSize
	rounds := make([][]PointPair, d)
	for r := range rounds {
		rounds[r] = make([]PointPair, 2*k-2)
		for i := range rounds[r] {
			if rounds[r][i][0], err = decodePoint(data[off:]); err != nil {
				return err
			}
			off += wordSize
			if rounds[r][i][1], err = decodePoint(data[off:]); err != nil {
				return err
			}
			off += wordSize
		}
	}
	z := make([]fr.Element, m)
	for i := range z {
		if z[i], err = decodeScalar(data[off:]); err != nil {
			return err
		}
		off += wordSize
	}

	p.K = k
	p.Rounds = rounds
	p.Z = z
	return nil
}

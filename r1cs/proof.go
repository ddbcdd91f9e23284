package r1cs

import (
	"encoding/binary"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkfold/bulletfold/fold"
)

// Proof is an aggregated constraint-system proof: the circuit-phase
// commitments, the consistency-phase commitments, the opened scalars and the
// two folding sub-proofs.
type Proof struct {
	AI, AO, S              bn254.G1Affine
	T1, T2, T3, T4, T5, T6 bn254.G1Affine

	SPrime, T1Prime, S1Prime, S2Prime bn254.G1Affine

	TX, TXBlinding, EBlinding    fr.Element
	TCX, TCXBlinding, ECBlinding fr.Element
	TCross, RBlinding            fr.Element

	Fold        *fold.Proof
	Consistency *fold.ConsistencyProof
}

const proofPointBytes = 32

// fixedProofSize covers the 13 points, the 8 scalars and the two blob
// length fields.
const fixedProofSize = 13*proofPointBytes + 8*proofPointBytes + 16

func (p *Proof) points() []*bn254.G1Affine {
	return []*bn254.G1Affine{
		&p.AI, &p.AO, &p.S,
		&p.T1, &p.T2, &p.T3, &p.T4, &p.T5, &p.T6,
		&p.SPrime, &p.T1Prime, &p.S1Prime, &p.S2Prime,
	}
}

func (p *Proof) scalars() []*fr.Element {
	return []*fr.Element{
		&p.TX, &p.TXBlinding, &p.EBlinding,
		&p.TCX, &p.TCXBlinding, &p.ECBlinding,
		&p.TCross, &p.RBlinding,
	}
}

// MarshalBinary encodes the proof: the 13 points, the 8 scalars, then the
// two folding blobs each preceded by its little-endian u64 byte length.
func (p *Proof) MarshalBinary() ([]byte, error) {
	if p.Fold == nil || p.Consistency == nil {
		return nil, ErrFormat
	}
	foldBlob, err := p.Fold.MarshalBinary()
	if err != nil {
		return nil, err
	}
	ecpBlob, err := p.Consistency.MarshalBinary()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, fixedProofSize+len(foldBlob)+len(ecpBlob))
	for _, pt := range p.points() {
		b := pt.Bytes()
		buf = append(buf, b[:]...)
	}
	for _, sc := range p.scalars() {
		b := sc.Bytes()
		buf = append(buf, b[:]...)
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(foldBlob)))
	buf = append(buf, lenBuf[:]...)
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(ecpBlob)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, foldBlob...)
	buf = append(buf, ecpBlob...)
	return buf, nil
}

// UnmarshalBinary decodes and validates a proof. The total length must match
// the declared blob lengths exactly; every point and scalar must be a valid
// canonical encoding.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data) < fixedProofSize {
		return ErrFormat
	}

	off := 0
	var decoded Proof
	for _, pt := range decoded.points() {
		if _, err := pt.SetBytes(data[off : off+proofPointBytes]); err != nil {
			return ErrFormat
		}
		off += proofPointBytes
	}
	for _, sc := range decoded.scalars() {
		v, err := decodeCanonicalScalar(data[off : off+proofPointBytes])
		if err != nil {
			return err
		}
		*sc = v
		off += proofPointBytes
	}

	foldLen := binary.LittleEndian.Uint64(data[off : off+8])
	ecpLen := binary.LittleEndian.Uint64(data[off+8 : off+16])
	off += 16
	rest := uint64(len(data) - off)
	if foldLen > rest || ecpLen > rest-foldLen || foldLen+ecpLen != rest {
		return ErrFormat
	}

	decoded.Fold = new(fold.Proof)
	if err := decoded.Fold.UnmarshalBinary(data[off : off+int(foldLen)]); err != nil {
		return err
	}
	off += int(foldLen)
	decoded.Consistency = new(fold.ConsistencyProof)
	if err := decoded.Consistency.UnmarshalBinary(data[off:]); err != nil {
		return err
	}

	*p = decoded
	return nil
}

// decodeCanonicalScalar rejects big-endian encodings at or above the group
// order.
func decodeCanonicalScalar(buf []byte) (fr.Element, error) {
	var e fr.Element
	var v big.Int
	v.SetBytes(buf)
	if v.Cmp(fr.Modulus()) >= 0 {
		return e, ErrFormat
	}
	e.SetBigInt(&v)
	return e, nil
}

package fold

import (
	"testing"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/zkfold/bulletfold/generators"
	"github.com/zkfold/bulletfold/transcript"
)

func TestRoundLengths(t *testing.T) {
	cases := []struct {
		n, k, d int
		want    []int
	}{
		{16, 4, 1, []int{16, 4}},
		{16, 4, 2, []int{16, 4, 1}},
		{10, 3, 2, []int{10, 4, 2}},
		{1, 2, 1, []int{1, 1}},
		{7, 5, 2, []int{7, 2, 1}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, RoundLengths(tc.n, tc.k, tc.d))
	}
}

func randScalars(t *testing.T, n int) []fr.Element {
	t.Helper()
	out := make([]fr.Element, n)
	for i := range out {
		_, err := out[i].SetRandom()
		require.NoError(t, err)
	}
	return out
}

func testGens(t *testing.T, n int) ([]bn254.G1Affine, []bn254.G1Affine, bn254.G1Affine) {
	t.Helper()
	bg, err := generators.NewBulletproofGens(n)
	require.NoError(t, err)
	pg := generators.NewPedersenGens()
	return bg.G(n), bg.H(n), pg.BBlinding
}

// karyCommitment computes <a,G> + <b,H> + <a,b>*Q directly.
func karyCommitment(t *testing.T, g, h []bn254.G1Affine, q bn254.G1Affine, a, b []fr.Element) bn254.G1Affine {
	t.Helper()
	scalars := append(append([]fr.Element(nil), a...), b...)
	scalars = append(scalars, innerProduct(a, b))
	points := append(append([]bn254.G1Affine(nil), g...), h...)
	points = append(points, q)
	p, err := msmFiltered(points, scalars)
	require.NoError(t, err)
	return p
}

func TestKaryProveVerify(t *testing.T) {
	cases := []struct {
		n, k, depth int
	}{
		{8, 2, 3},
		{16, 4, 2},
		{10, 3, 2},
		{7, 5, 1},
		{1, 2, 1},
		{9, 3, 2},
	}
	for _, tc := range cases {
		g, h, q := testGens(t, tc.n)
		a := randScalars(t, tc.n)
		b := randScalars(t, tc.n)
		commitment := karyCommitment(t, g, h, q, a, b)

		proof, err := Prove(transcript.New("fold-test"), tc.k, g, h, q, a, b, tc.depth)
		require.NoError(t, err)
		require.Len(t, proof.Rounds, tc.depth)
		for _, round := range proof.Rounds {
			require.Len(t, round, 2*tc.k-2)
		}
		m := RoundLengths(tc.n, tc.k, tc.depth)[tc.depth]
		require.Len(t, proof.AFinal, m)
		require.Len(t, proof.BFinal, m)

		err = proof.Verify(transcript.New("fold-test"), g, h, q, commitment)
		require.NoError(t, err, "n=%d k=%d depth=%d", tc.n, tc.k, tc.depth)
	}
}

func TestKaryVerifyRejects(t *testing.T) {
	require := require.New(t)

	const n, k, depth = 12, 3, 2
	g, h, q := testGens(t, n)
	a := randScalars(t, n)
	b := randScalars(t, n)
	commitment := karyCommitment(t, g, h, q, a, b)

	proof, err := Prove(transcript.New("fold-test"), k, g, h, q, a, b, depth)
	require.NoError(err)

	// tampered final vector
	bad := *proof
	bad.AFinal = append([]fr.Element(nil), proof.AFinal...)
	bad.AFinal[0].Add(&bad.AFinal[0], &bad.AFinal[0])
	err = bad.Verify(transcript.New("fold-test"), g, h, q, commitment)
	require.ErrorIs(err, ErrVerification)

	// wrong commitment
	wrong := karyCommitment(t, g, h, q, b, a)
	err = proof.Verify(transcript.New("fold-test"), g, h, q, wrong)
	require.ErrorIs(err, ErrVerification)

	// diverging transcript
	err = proof.Verify(transcript.New("other"), g, h, q, commitment)
	require.ErrorIs(err, ErrVerification)
}

func TestKaryInputChecks(t *testing.T) {
	require := require.New(t)

	g, h, q := testGens(t, 4)
	a := randScalars(t, 4)
	b := randScalars(t, 4)

	_, err := Prove(transcript.New("t"), 1, g, h, q, a, b, 1)
	require.ErrorIs(err, ErrInputLength)
	_, err = Prove(transcript.New("t"), 2, g, h, q, a, b[:3], 1)
	require.ErrorIs(err, ErrInputLength)
	_, err = Prove(transcript.New("t"), 2, g[:3], h, q, a, b, 1)
	require.ErrorIs(err, ErrInvalidGeneratorsLength)
	_, err = Prove(transcript.New("t"), 2, g, h, q, a, b, 0)
	require.ErrorIs(err, ErrInputLength)
}

// Folding with arity 2 must produce the classical shape: one positive and one
// negative cross term per round, halving lengths down to a single element.
func TestKaryBinaryShape(t *testing.T) {
	require := require.New(t)

	const n, depth = 8, 3
	g, h, q := testGens(t, n)
	a := randScalars(t, n)
	b := randScalars(t, n)

	proof, err := Prove(transcript.New("fold-test"), 2, g, h, q, a, b, depth)
	require.NoError(err)
	require.Len(proof.Rounds, depth)
	for _, round := range proof.Rounds {
		require.Len(round, 2)
	}
	require.Len(proof.AFinal, 1)
	require.Len(proof.BFinal, 1)

	commitment := karyCommitment(t, g, h, q, a, b)
	require.NoError(proof.Verify(transcript.New("fold-test"), g, h, q, commitment))
}

func TestKaryVerificationScalarShapes(t *testing.T) {
	require := require.New(t)

	const n, k, depth = 10, 3, 2
	g, h, q := testGens(t, n)
	a := randScalars(t, n)
	b := randScalars(t, n)

	proof, err := Prove(transcript.New("fold-test"), k, g, h, q, a, b, depth)
	require.NoError(err)

	vs, err := proof.VerificationScalars(n, transcript.New("fold-test"))
	require.NoError(err)
	require.Len(vs.G, n)
	require.Len(vs.H, n)
	require.Len(vs.Rounds, depth*(2*k-2))
	require.False(vs.P.IsZero())
}

// Claiming a different original length recomputes a different final size, so
// the proof shape no longer matches and reconstruction must fail.
func TestVerificationScalarsRejectsWrongLength(t *testing.T) {
	require := require.New(t)

	const n, k, depth = 12, 3, 2
	g, h, q := testGens(t, n)
	a := randScalars(t, n)
	b := randScalars(t, n)

	proof, err := Prove(transcript.New("fold-test"), k, g, h, q, a, b, depth)
	require.NoError(err)
	_, err = proof.VerificationScalars(40, transcript.New("fold-test"))
	require.ErrorIs(err, ErrVerification)

	ecp, err := ProveConsistency(transcript.New("ecp-test"), k, g, h, a, depth)
	require.NoError(err)
	_, err = ecp.VerificationScalars(40, transcript.New("ecp-test"))
	require.ErrorIs(err, ErrVerification)
}

func consistencyCommitments(t *testing.T, g, c1 []bn254.G1Affine, a []fr.Element) (bn254.G1Affine, bn254.G1Affine) {
	t.Helper()
	p0, err := msmFiltered(g, a)
	require.NoError(t, err)
	p1, err := msmFiltered(c1, a[:len(c1)])
	require.NoError(t, err)
	return p0, p1
}

func TestConsistencyProveVerify(t *testing.T) {
	cases := []struct {
		n, kOrig, k, depth int
	}{
		{8, 8, 2, 3},
		{8, 5, 3, 2},
		{16, 16, 4, 2},
		{10, 7, 3, 2},
		{1, 1, 2, 1},
	}
	for _, tc := range cases {
		g, h, _ := testGens(t, tc.n)
		c1 := h[:tc.kOrig] // any fixed points serve as the second chain
		a := randScalars(t, tc.n)
		p0, p1 := consistencyCommitments(t, g, c1, a)

		proof, err := ProveConsistency(transcript.New("ecp-test"), tc.k, g, c1, a, tc.depth)
		require.NoError(t, err)
		require.Len(t, proof.Rounds, tc.depth)
		for _, round := range proof.Rounds {
			require.Len(t, round, 2*tc.k-2)
		}
		m := RoundLengths(tc.n, tc.k, tc.depth)[tc.depth]
		require.Len(t, proof.Z, m)

		err = proof.Verify(transcript.New("ecp-test"), g, c1, p0, p1)
		require.NoError(t, err, "n=%d kOrig=%d k=%d depth=%d", tc.n, tc.kOrig, tc.k, tc.depth)
	}
}

func TestConsistencyVerifyRejects(t *testing.T) {
	require := require.New(t)

	const n, kOrig, k, depth = 12, 9, 3, 2
	g, h, _ := testGens(t, n)
	c1 := h[:kOrig]
	a := randScalars(t, n)
	p0, p1 := consistencyCommitments(t, g, c1, a)

	proof, err := ProveConsistency(transcript.New("ecp-test"), k, g, c1, a, depth)
	require.NoError(err)

	bad := *proof
	bad.Z = append([]fr.Element(nil), proof.Z...)
	bad.Z[0].Add(&bad.Z[0], &bad.Z[0])
	err = bad.Verify(transcript.New("ecp-test"), g, c1, p0, p1)
	require.ErrorIs(err, ErrVerification)

	// the batching challenge must tie both relations: swapping the
	// commitments has to fail even though their sum is unchanged
	err = proof.Verify(transcript.New("ecp-test"), g, c1, p1, p0)
	require.ErrorIs(err, ErrVerification)
}

func TestKaryMarshalRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)
	properties.Property("decode inverts encode", prop.ForAll(
		func(n, k, depth int) bool {
			g, h, q := testGens(t, n)
			a := randScalars(t, n)
			b := randScalars(t, n)
			proof, err := Prove(transcript.New("codec"), k, g, h, q, a, b, depth)
			if err != nil {
				return false
			}
			data, err := proof.MarshalBinary()
			if err != nil {
				return false
			}
			var decoded Proof
			if err := decoded.UnmarshalBinary(data); err != nil {
				return false
			}
			return cmp.Diff(proof, &decoded) == ""
		},
		gen.IntRange(1, 20),
		gen.IntRange(2, 5),
		gen.IntRange(1, 3),
	))
	properties.TestingRun(t)
}

func TestConsistencyMarshalRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)
	properties.Property("decode inverts encode", prop.ForAll(
		func(n, k, depth int) bool {
			g, h, _ := testGens(t, n)
			a := randScalars(t, n)
			proof, err := ProveConsistency(transcript.New("codec"), k, g, h, a, depth)
			if err != nil {
				return false
			}
			data, err := proof.MarshalBinary()
			if err != nil {
				return false
			}
			var decoded ConsistencyProof
			if err := decoded.UnmarshalBinary(data); err != nil {
				return false
			}
			return cmp.Diff(proof, &decoded) == ""
		},
		gen.IntRange(1, 20),
		gen.IntRange(2, 5),
		gen.IntRange(1, 3),
	))
	properties.TestingRun(t)
}

func TestKaryUnmarshalRejects(t *testing.T) {
	require := require.New(t)

	const n, k, depth = 8, 3, 2
	g, h, q := testGens(t, n)
	a := randScalars(t, n)
	b := randScalars(t, n)
	proof, err := Prove(transcript.New("codec"), k, g, h, q, a, b, depth)
	require.NoError(err)
	data, err := proof.MarshalBinary()
	require.NoError(err)

	var decoded Proof

	// truncated
	require.ErrorIs(decoded.UnmarshalBinary(data[:len(data)-wordSize]), ErrFormat)
	// trailing garbage
	require.ErrorIs(decoded.UnmarshalBinary(append(append([]byte(nil), data...), make([]byte, wordSize)...)), ErrFormat)
	// not a multiple of the field size
	require.ErrorIs(decoded.UnmarshalBinary(data[:len(data)-1]), ErrFormat)
	// non-zero padding in a header word
	bad := append([]byte(nil), data...)
	bad[20] = 1
	require.ErrorIs(decoded.UnmarshalBinary(bad), ErrFormat)
	// arity below 2
	bad = append([]byte(nil), data...)
	bad[0] = 1
	require.ErrorIs(decoded.UnmarshalBinary(bad), ErrFormat)
	// non-canonical scalar: the group order is an invalid encoding
	bad = append([]byte(nil), data...)
	mod := fr.Modulus().Bytes()
	copy(bad[len(bad)-wordSize+(wordSize-len(mod)):], mod)
	require.ErrorIs(decoded.UnmarshalBinary(bad), ErrFormat)
}

// A corrupted encoding must never verify: it either fails to decode or fails
// the check.
func TestKaryCorruptionNeverAccepted(t *testing.T) {
	require := require.New(t)

	const n, k, depth = 8, 3, 2
	g, h, q := testGens(t, n)
	a := randScalars(t, n)
	b := randScalars(t, n)
	commitment := karyCommitment(t, g, h, q, a, b)
	proof, err := Prove(transcript.New("codec"), k, g, h, q, a, b, depth)
	require.NoError(err)
	data, err := proof.MarshalBinary()
	require.NoError(err)

	for _, pos := range []int{0, 8, 3 * wordSize, 3*wordSize + 1, len(data) - wordSize, len(data) - 1} {
		bad := append([]byte(nil), data...)
		bad[pos] ^= 0x01
		var decoded Proof
		if err := decoded.UnmarshalBinary(bad); err != nil {
			require.ErrorIs(err, ErrFormat)
			continue
		}
		err = decoded.Verify(transcript.New("codec"), g, h, q, commitment)
		require.ErrorIs(err, ErrVerification, "corrupt byte %d", pos)
	}
}

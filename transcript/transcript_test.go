package transcript

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
)

func TestChallengeDeterminism(t *testing.T) {
	require := require.New(t)

	a := New("test")
	b := New("test")

	a.AppendMessage("msg", []byte("hello"))
	b.AppendMessage("msg", []byte("hello"))

	ca := a.ChallengeScalar("c")
	cb := b.ChallengeScalar("c")
	require.True(ca.Equal(&cb), "identical transcripts must yield identical challenges")

	// successive challenges with the same label must differ
	ca2 := a.ChallengeScalar("c")
	require.False(ca.Equal(&ca2))
}

func TestChallengeDivergence(t *testing.T) {
	require := require.New(t)

	cases := []struct {
		name string
		mut  func(*Transcript)
	}{
		{"different message", func(t *Transcript) { t.AppendMessage("msg", []byte("world")) }},
		{"different label", func(t *Transcript) { t.AppendMessage("gsm", []byte("hello")) }},
		{"extra u64", func(t *Transcript) {
			t.AppendMessage("msg", []byte("hello"))
			t.AppendU64("n", 1)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := New("test")
			a.AppendMessage("msg", []byte("hello"))
			b := New("test")
			tc.mut(b)
			ca := a.ChallengeScalar("c")
			cb := b.ChallengeScalar("c")
			require.False(ca.Equal(&cb))
		})
	}
}

func TestLabelMessageBoundary(t *testing.T) {
	require := require.New(t)

	// moving a byte across the label/message boundary must change the state
	a := New("test")
	a.AppendMessage("ab", []byte("c"))
	b := New("test")
	b.AppendMessage("a", []byte("bc"))

	ca := a.ChallengeScalar("c")
	cb := b.ChallengeScalar("c")
	require.False(ca.Equal(&cb))
}

func TestScalarPointAbsorb(t *testing.T) {
	require := require.New(t)

	var s fr.Element
	s.SetUint64(42)

	a := New("test")
	a.AppendScalar("s", &s)
	b := New("test")
	b.AppendScalar("s", &s)

	ca := a.ChallengeScalar("c")
	cb := b.ChallengeScalar("c")
	require.True(ca.Equal(&cb))
}

func TestRngBoundToWitness(t *testing.T) {
	require := require.New(t)

	tr := New("test")
	r1, err := tr.Rng("blinding", []byte("witness-a"))
	require.NoError(err)
	r2, err := tr.Rng("blinding", []byte("witness-a"))
	require.NoError(err)

	// OS entropy must make two forks of the same state independent
	s1 := r1.Scalar()
	s2 := r2.Scalar()
	require.False(s1.Equal(&s2))

	// forking must not mutate the transcript
	other := New("test")
	c1 := tr.ChallengeScalar("c")
	c2 := other.ChallengeScalar("c")
	require.True(c1.Equal(&c2))
}

func TestRngStream(t *testing.T) {
	require := require.New(t)

	tr := New("test")
	r, err := tr.Rng("blinding")
	require.NoError(err)

	seen := make(map[string]bool)
	for _, s := range r.Scalars(16) {
		b := s.Bytes()
		require.False(seen[string(b[:])], "rng stream repeated a scalar")
		seen[string(b[:])] = true
	}
}

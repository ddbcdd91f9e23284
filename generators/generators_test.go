package generators

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	require := require.New(t)

	a, err := NewBulletproofGens(8)
	require.NoError(err)
	b, err := NewBulletproofGens(8)
	require.NoError(err)

	for i := 0; i < 8; i++ {
		require.True(a.G(8)[i].Equal(&b.G(8)[i]))
		require.True(a.H(8)[i].Equal(&b.H(8)[i]))
	}
}

func TestPrefixStability(t *testing.T) {
	require := require.New(t)

	small, err := NewBulletproofGens(4)
	require.NoError(err)
	large, err := NewBulletproofGens(16)
	require.NoError(err)

	// a larger capacity must extend, not reshuffle, the chains
	for i := 0; i < 4; i++ {
		require.True(small.G(4)[i].Equal(&large.G(4)[i]))
		require.True(small.H(4)[i].Equal(&large.H(4)[i]))
	}
}

func TestChainsDistinct(t *testing.T) {
	require := require.New(t)

	bg, err := NewBulletproofGens(4)
	require.NoError(err)
	pg := NewPedersenGens()

	require.False(pg.B.Equal(&pg.BBlinding))
	for i := 0; i < 4; i++ {
		require.False(bg.G(4)[i].Equal(&bg.H(4)[i]))
		require.False(bg.G(4)[i].IsInfinity())
		require.False(bg.H(4)[i].IsInfinity())
	}
}

func TestPedersenCommit(t *testing.T) {
	require := require.New(t)

	pg := NewPedersenGens()

	var v, b fr.Element
	v.SetUint64(7)
	b.SetUint64(11)

	c1 := pg.Commit(v, b)
	c2 := pg.Commit(v, b)
	require.True(c1.Equal(&c2))

	var b2 fr.Element
	b2.SetUint64(12)
	c3 := pg.Commit(v, b2)
	require.False(c1.Equal(&c3), "commitment must be binding to the blinding factor")
}

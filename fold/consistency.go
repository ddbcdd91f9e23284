package fold

import (
	"math/big"
	"runtime"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"

	"github.com/zkfold/bulletfold/transcript"
)

// PointPair is one cross-term of the consistency argument: the same scalar
// block committed against the G chain and against the C1 chain.
type PointPair [2]bn254.G1Affine

// ConsistencyProof is a batched k-ary folding argument for the simultaneous
// relations P0 = <a,G> and P1 = <a,C1> over a single vector a. Rounds holds
// 2k-2 cross-term pairs per round; Z is the folded vector left after the last
// round.
type ConsistencyProof struct {
	K      int
	Rounds [][]PointPair
	Z      []fr.Element
}

// ProveConsistency folds a against the two generator chains g and c1 for
// depth rounds of arity k. c1 may be shorter than g; it is treated as padded
// with identity points up to len(g). The inputs are not modified.
func ProveConsistency(t *transcript.Transcript, k int, g, c1 []bn254.G1Affine, a []fr.Element, depth int) (*ConsistencyProof, error) {
	n := len(a)
	if k < 2 || depth < 1 || n == 0 {
		return nil, ErrInputLength
	}
	if len(g) != n || len(c1) > n {
		return nil, ErrInvalidGeneratorsLength
	}

	appendConsistencyHeader(t, n, k)

	aCur := append([]fr.Element(nil), a...)
	gCur := append([]bn254.G1Affine(nil), g...)
	c1Cur := make([]bn254.G1Affine, n)
	copy(c1Cur, c1)

	rounds := make([][]PointPair, 0, depth)

	for round := 0; round < depth; round++ {
		if rem := len(aCur) % k; rem != 0 {
			pad := k - rem
			aCur = append(aCur, make([]fr.Element, pad)...)
			gCur = append(gCur, make([]bn254.G1Affine, pad)...)
			c1Cur = append(c1Cur, make([]bn254.G1Affine, pad)...)
		}
		m := len(aCur) / k
		aS := chunks(aCur, m)
		gS := chunksPoints(gCur, m)
		c1S := chunksPoints(c1Cur, m)

		cross := make([]PointPair, 2*k-2)
		var eg errgroup.Group
		eg.SetLimit(runtime.NumCPU())
		for i := 1; i < k; i++ {
			i := i
			eg.Go(func() error {
				pair, err := consistencyCrossPair(aS, gS, c1S, i, true)
				if err != nil {
					return err
				}
				cross[i-1] = pair
				return nil
			})
			eg.Go(func() error {
				pair, err := consistencyCrossPair(aS, gS, c1S, i, false)
				if err != nil {
					return err
				}
				cross[k-1+i-1] = pair
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		c := appendConsistencyRound(t, round, cross)
		var cInv fr.Element
		cInv.Inverse(&c)

		cPows := powers(c, k) // folds a
		// base blocks fold by descending powers c^k ... c, so the folded
		// relation keeps a uniform c^k factor per round
		basePows := make([]fr.Element, k)
		basePows[0].Mul(&cPows[k-1], &c)
		for i := 1; i < k; i++ {
			basePows[i].Mul(&basePows[i-1], &cInv)
		}

		aNext := make([]fr.Element, m)
		var tmp fr.Element
		for j := 0; j < m; j++ {
			for i := 0; i < k; i++ {
				tmp.Mul(&aS[i][j], &cPows[i])
				aNext[j].Add(&aNext[j], &tmp)
			}
		}

		gNext, err := foldPoints(gS, basePows)
		if err != nil {
			return nil, err
		}
		c1Next, err := foldPoints(c1S, basePows)
		if err != nil {
			return nil, err
		}

		aCur, gCur, c1Cur = aNext, gNext, c1Next
		rounds = append(rounds, cross)
	}

	return &ConsistencyProof{K: k, Rounds: rounds, Z: aCur}, nil
}

// consistencyCrossPair commits the shift-i scalar blocks against both base
// chains. The low half pairs the leading scalar blocks with the trailing base
// blocks; the high half mirrors it.
func consistencyCrossPair(aS [][]fr.Element, gS, c1S [][]bn254.G1Affine, i int, low bool) (PointPair, error) {
	k := len(aS)
	m := len(aS[0])
	var nbBlocks int
	if low {
		nbBlocks = i
	} else {
		nbBlocks = k - i
	}
	scalars := make([]fr.Element, 0, nbBlocks*m)
	pts0 := make([]bn254.G1Affine, 0, nbBlocks*m)
	pts1 := make([]bn254.G1Affine, 0, nbBlocks*m)
	if low {
		for l := 1; l <= i; l++ {
			scalars = append(scalars, aS[l-1]...)
			pts0 = append(pts0, gS[k-i+l-1]...)
			pts1 = append(pts1, c1S[k-i+l-1]...)
		}
	} else {
		for l := 1; l <= k-i; l++ {
			scalars = append(scalars, aS[i+l-1]...)
			pts0 = append(pts0, gS[l-1]...)
			pts1 = append(pts1, c1S[l-1]...)
		}
	}
	var pair PointPair
	var err error
	if pair[0], err = msmFiltered(pts0, scalars); err != nil {
		return PointPair{}, err
	}
	if pair[1], err = msmFiltered(pts1, scalars); err != nil {
		return PointPair{}, err
	}
	return pair, nil
}

// ConsistencyScalars is the verifier-side reconstruction of a consistency
// argument: the effective exponent of every original generator, of the
// commitments, and of each cross-term pair.
type ConsistencyScalars struct {
	Z      []fr.Element
	P      fr.Element
	Rounds []fr.Element
}

// VerificationScalars replays the folding rounds on the transcript and
// reconstructs the verification exponents for an argument over n initial
// generators.
func (p *ConsistencyProof) VerificationScalars(n int, t *transcript.Transcript) (*ConsistencyScalars, error) {
	k := p.K
	d := len(p.Rounds)
	if k < 2 || d == 0 {
		return nil, ErrVerification
	}
	if n <= 0 {
		return nil, ErrInvalidGeneratorsLength
	}
	lengths := RoundLengths(n, k, d)
	m := lengths[d]
	if len(p.Z) != m {
		return nil, ErrVerification
	}

	appendConsistencyHeader(t, n, k)

	challenges := make([]fr.Element, d)
	for r := 0; r < d; r++ {
		if len(p.Rounds[r]) != 2*k-2 {
			return nil, ErrVerification
		}
		challenges[r] = appendConsistencyRound(t, r, p.Rounds[r])
	}
	challengesInv := fr.BatchInvert(challenges)

	// each round scales the commitment by c_r^k
	suffix := make([]fr.Element, d)
	var sP fr.Element
	sP.SetOne()
	for r := d - 1; r >= 0; r-- {
		suffix[r] = sP
		ck := scalarPow(challenges[r], uint64(k))
		sP.Mul(&sP, &ck)
	}

	zS := append([]fr.Element(nil), p.Z...)
	for r := d - 1; r >= 0; r-- {
		zS = tensorExpand(zS, powers(challengesInv[r], k), lengths[r])
	}
	for i := range zS {
		zS[i].Mul(&zS[i], &sP)
	}

	sRounds := make([]fr.Element, 0, d*(2*k-2))
	for r := 0; r < d; r++ {
		for i := 1; i < k; i++ {
			v := scalarPow(challenges[r], uint64(i))
			v.Mul(&v, &suffix[r])
			sRounds = append(sRounds, v)
		}
		for i := 1; i < k; i++ {
			v := scalarPow(challenges[r], uint64(k+i))
			v.Mul(&v, &suffix[r])
			sRounds = append(sRounds, v)
		}
	}

	return &ConsistencyScalars{Z: zS, P: sP, Rounds: sRounds}, nil
}

// Verify checks the argument against p0 = <a,G> and p1 = <a,C1> as a
// standalone single-MSM equation. It draws one batching challenge to combine
// the two chains, so both relations are covered by the one check.
func (p *ConsistencyProof) Verify(t *transcript.Transcript, g, c1 []bn254.G1Affine, p0, p1 bn254.G1Affine) error {
	n := len(g)
	if len(c1) > n {
		return ErrInvalidGeneratorsLength
	}
	vs, err := p.VerificationScalars(n, t)
	if err != nil {
		return err
	}
	r1 := t.ChallengeScalar("ecp-combine")

	total := n + len(c1) + 1 + len(vs.Rounds)
	scalars := make([]fr.Element, 0, total)
	points := make([]bn254.G1Affine, 0, total)
	scalars = append(scalars, vs.Z...)
	points = append(points, g...)
	var tmp fr.Element
	for i := range c1 {
		tmp.Mul(&vs.Z[i], &r1)
		scalars = append(scalars, tmp)
		points = append(points, c1[i])
	}
	var neg fr.Element
	neg.Neg(&vs.P)
	scalars = append(scalars, neg)
	points = append(points, combinePair(&p0, &p1, &r1))
	i := 0
	for r := range p.Rounds {
		for idx := range p.Rounds[r] {
			neg.Neg(&vs.Rounds[i])
			i++
			scalars = append(scalars, neg)
			points = append(points, combinePair(&p.Rounds[r][idx][0], &p.Rounds[r][idx][1], &r1))
		}
	}

	res, err := msmFiltered(points, scalars)
	if err != nil {
		return err
	}
	if !res.IsInfinity() {
		return ErrVerification
	}
	return nil
}

// combinePair returns p0 + r*p1.
func combinePair(p0, p1 *bn254.G1Affine, r *fr.Element) bn254.G1Affine {
	var rBig big.Int
	r.BigInt(&rBig)
	var scaled bn254.G1Affine
	scaled.ScalarMultiplication(p1, &rBig)
	var acc bn254.G1Jac
	acc.FromAffine(p0)
	acc.AddMixed(&scaled)
	var out bn254.G1Affine
	out.FromJacobian(&acc)
	return out
}

func appendConsistencyHeader(t *transcript.Transcript, n, k int) {
	t.AppendMessage("protocol-name", []byte("bulletfold/consistency"))
	t.AppendU64("n", uint64(n))
	t.AppendU64("k", uint64(k))
}

func appendConsistencyRound(t *transcript.Transcript, round int, cross []PointPair) fr.Element {
	for idx := range cross {
		t.AppendU64("ecp-round", uint64(round))
		t.AppendU64("ecp-index", uint64(idx))
		t.AppendPoint("ecp-cross-0", &cross[idx][0])
		t.AppendPoint("ecp-cross-1", &cross[idx][1])
	}
	t.AppendU64("ecp-challenge-round", uint64(round))
	return t.ChallengeScalar("ecp-c")
}

package fold

import (
	"runtime"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"

	"github.com/zkfold/bulletfold/transcript"
)

// Proof is a k-ary folding argument for the relation
// P = <a,G> + <b,H> + <a,b>*Q.
//
// Rounds holds the 2k-2 cross-term commitments of each round, the k-1
// positive-shift terms first. AFinal and BFinal are the folded vectors left
// after the last round, of length m determined by n, k and the depth.
type Proof struct {
	K      int
	Rounds [][]bn254.G1Affine
	AFinal []fr.Element
	BFinal []fr.Element
}

// Prove runs depth folding rounds of arity k over (a, b) against the
// generator chains g, h and the inner-product base q. The inputs are not
// modified. The transcript must already be bound to the surrounding protocol;
// the verifier has to replay it from the same state.
func Prove(t *transcript.Transcript, k int, g, h []bn254.G1Affine, q bn254.G1Affine, a, b []fr.Element, depth int) (*Proof, error) {
	n := len(a)
	if k < 2 || depth < 1 || n == 0 || len(b) != n {
		return nil, ErrInputLength
	}
	if len(g) != n || len(h) != n {
		return nil, ErrInvalidGeneratorsLength
	}

	appendKaryHeader(t, n, k)

	aCur := append([]fr.Element(nil), a...)
	bCur := append([]fr.Element(nil), b...)
	gCur := append([]bn254.G1Affine(nil), g...)
	hCur := append([]bn254.G1Affine(nil), h...)

	rounds := make([][]bn254.G1Affine, 0, depth)

	for round := 0; round < depth; round++ {
		// pad with zero scalars and identity points up to a multiple of k
		if rem := len(aCur) % k; rem != 0 {
			pad := k - rem
			aCur = append(aCur, make([]fr.Element, pad)...)
			bCur = append(bCur, make([]fr.Element, pad)...)
			gCur = append(gCur, make([]bn254.G1Affine, pad)...)
			hCur = append(hCur, make([]bn254.G1Affine, pad)...)
		}
		m := len(aCur) / k
		aS := chunks(aCur, m)
		bS := chunks(bCur, m)
		gS := chunksPoints(gCur, m)
		hS := chunksPoints(hCur, m)

		cross := make([]bn254.G1Affine, 2*k-2)
		var eg errgroup.Group
		eg.SetLimit(runtime.NumCPU())
		for l := 1; l < k; l++ {
			l := l
			eg.Go(func() error {
				u, err := karyCrossTerm(aS, bS, gS, hS, q, l, false)
				if err != nil {
					return err
				}
				cross[l-1] = u
				return nil
			})
			eg.Go(func() error {
				u, err := karyCrossTerm(aS, bS, gS, hS, q, l, true)
				if err != nil {
					return err
				}
				cross[k-1+l-1] = u
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		c := appendKaryRound(t, round, cross)
		var cInv fr.Element
		cInv.Inverse(&c)

		// cPowsA folds a and H, cPowsB folds b and G with mirrored powers
		cPowsA := powers(c, k)
		cPowsB := make([]fr.Element, k)
		cPowsB[0] = cPowsA[k-1]
		for i := 1; i < k; i++ {
			cPowsB[i].Mul(&cPowsB[i-1], &cInv)
		}

		aNext := make([]fr.Element, m)
		bNext := make([]fr.Element, m)
		var tmp fr.Element
		for j := 0; j < m; j++ {
			for i := 0; i < k; i++ {
				tmp.Mul(&aS[i][j], &cPowsA[i])
				aNext[j].Add(&aNext[j], &tmp)
				tmp.Mul(&bS[i][j], &cPowsB[i])
				bNext[j].Add(&bNext[j], &tmp)
			}
		}

		gNext, err := foldPoints(gS, cPowsB)
		if err != nil {
			return nil, err
		}
		hNext, err := foldPoints(hS, cPowsA)
		if err != nil {
			return nil, err
		}

		aCur, bCur, gCur, hCur = aNext, bNext, gNext, hNext
		rounds = append(rounds, cross)
	}

	return &Proof{K: k, Rounds: rounds, AFinal: aCur, BFinal: bCur}, nil
}

// karyCrossTerm builds the shift-l cross-term commitment
//
//	sum_i <a_i, G_{i+l}> + <b_{i+l}, H_i> + <a_i, b_{i+l}>*Q
//
// or, for neg, the same with the block roles swapped.
func karyCrossTerm(aS, bS [][]fr.Element, gS, hS [][]bn254.G1Affine, q bn254.G1Affine, l int, neg bool) (bn254.G1Affine, error) {
	k := len(aS)
	m := len(aS[0])
	scalars := make([]fr.Element, 0, 2*(k-l)*m+1)
	points := make([]bn254.G1Affine, 0, 2*(k-l)*m+1)
	var ip fr.Element
	for i := 0; i < k-l; i++ {
		if neg {
			scalars = append(scalars, aS[i+l]...)
			points = append(points, gS[i]...)
			scalars = append(scalars, bS[i]...)
			points = append(points, hS[i+l]...)
			v := innerProduct(aS[i+l], bS[i])
			ip.Add(&ip, &v)
		} else {
			scalars = append(scalars, aS[i]...)
			points = append(points, gS[i+l]...)
			scalars = append(scalars, bS[i+l]...)
			points = append(points, hS[i]...)
			v := innerProduct(aS[i], bS[i+l])
			ip.Add(&ip, &v)
		}
	}
	scalars = append(scalars, ip)
	points = append(points, q)
	return msmFiltered(points, scalars)
}

// foldPoints collapses k generator blocks into one, weighting block i by
// coeffs[i].
func foldPoints(blocks [][]bn254.G1Affine, coeffs []fr.Element) ([]bn254.G1Affine, error) {
	k := len(blocks)
	m := len(blocks[0])
	out := make([]bn254.G1Affine, m)

	var eg errgroup.Group
	nbTasks := runtime.NumCPU()
	chunk := (m + nbTasks - 1) / nbTasks
	for start := 0; start < m; start += chunk {
		start := start
		end := min(start+chunk, m)
		eg.Go(func() error {
			scalars := make([]fr.Element, k)
			points := make([]bn254.G1Affine, k)
			for j := start; j < end; j++ {
				for i := 0; i < k; i++ {
					scalars[i] = coeffs[i]
					points[i] = blocks[i][j]
				}
				p, err := msmFiltered(points, scalars)
				if err != nil {
					return err
				}
				out[j] = p
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Scalars is the verifier-side reconstruction of a folding argument: the
// effective exponent of every original generator, of Q, of the commitment P,
// and of each cross-term point, ready to drop into a single multiscalar
// multiplication.
type Scalars struct {
	G      []fr.Element
	H      []fr.Element
	Q      fr.Element
	P      fr.Element
	Rounds []fr.Element
}

// VerificationScalars replays the folding rounds on the transcript and
// reconstructs the verification exponents for an argument over n initial
// generators.
func (p *Proof) VerificationScalars(n int, t *transcript.Transcript) (*Scalars, error) {
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
	if len(p.AFinal) != m || len(p.BFinal) != m {
		return nil, ErrVerification
	}

	appendKaryHeader(t, n, k)

	challenges := make([]fr.Element, d)
	for r := 0; r < d; r++ {
		if len(p.Rounds[r]) != 2*k-2 {
			return nil, ErrVerification
		}
		challenges[r] = appendKaryRound(t, r, p.Rounds[r])
	}
	challengesInv := fr.BatchInvert(challenges)

	// suffix[r] multiplies everything produced after round r; the full
	// product is the exponent of P.
	suffix := make([]fr.Element, d)
	var sP fr.Element
	sP.SetOne()
	for r := d - 1; r >= 0; r-- {
		suffix[r] = sP
		ck1 := scalarPow(challenges[r], uint64(k-1))
		sP.Mul(&sP, &ck1)
	}

	sG := append([]fr.Element(nil), p.AFinal...)
	for r := d - 1; r >= 0; r-- {
		sG = tensorExpand(sG, powers(challengesInv[r], k), lengths[r])
	}
	for i := range sG {
		sG[i].Mul(&sG[i], &sP)
	}

	sH := append([]fr.Element(nil), p.BFinal...)
	for r := d - 1; r >= 0; r-- {
		sH = tensorExpand(sH, powers(challenges[r], k), lengths[r])
	}

	sRounds := make([]fr.Element, 0, d*(2*k-2))
	for r := 0; r < d; r++ {
		for l := 1; l < k; l++ {
			v := scalarPow(challenges[r], uint64(k-1-l))
			v.Mul(&v, &suffix[r])
			sRounds = append(sRounds, v)
		}
		for l := 1; l < k; l++ {
			v := scalarPow(challenges[r], uint64(k-1+l))
			v.Mul(&v, &suffix[r])
			sRounds = append(sRounds, v)
		}
	}

	return &Scalars{
		G:      sG,
		H:      sH,
		Q:      innerProduct(p.AFinal, p.BFinal),
		P:      sP,
		Rounds: sRounds,
	}, nil
}

// Verify checks the argument against commitment = <a,G> + <b,H> + <a,b>*Q as
// a standalone single-MSM equation.
func (p *Proof) Verify(t *transcript.Transcript, g, h []bn254.G1Affine, q, commitment bn254.G1Affine) error {
	n := len(g)
	if len(h) != n {
		return ErrInvalidGeneratorsLength
	}
	vs, err := p.VerificationScalars(n, t)
	if err != nil {
		return err
	}

	total := 2*n + 2 + len(vs.Rounds)
	scalars := make([]fr.Element, 0, total)
	points := make([]bn254.G1Affine, 0, total)
	scalars = append(scalars, vs.G...)
	points = append(points, g...)
	scalars = append(scalars, vs.H...)
	points = append(points, h...)
	scalars = append(scalars, vs.Q)
	points = append(points, q)
	var neg fr.Element
	neg.Neg(&vs.P)
	scalars = append(scalars, neg)
	points = append(points, commitment)
	i := 0
	for r := range p.Rounds {
		for idx := range p.Rounds[r] {
			neg.Neg(&vs.Rounds[i])
			i++
			scalars = append(scalars, neg)
			points = append(points, p.Rounds[r][idx])
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

func appendKaryHeader(t *transcript.Transcript, n, k int) {
	t.AppendMessage("protocol-name", []byte("bulletfold/kary"))
	t.AppendU64("n", uint64(n))
	t.AppendU64("k", uint64(k))
}

func appendKaryRound(t *transcript.Transcript, round int, cross []bn254.G1Affine) fr.Element {
	for idx := range cross {
		t.AppendU64("fold-round", uint64(round))
		t.AppendU64("fold-index", uint64(idx))
		t.AppendPoint("fold-cross", &cross[idx])
	}
	t.AppendU64("fold-challenge-round", uint64(round))
	return t.ChallengeScalar("fold-c")
}

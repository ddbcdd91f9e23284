package r1cs

import (
	"errors"
	"runtime"
	"time"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"

	"github.com/zkfold/bulletfold/fold"
	"github.com/zkfold/bulletfold/generators"
	"github.com/zkfold/bulletfold/logger"
	"github.com/zkfold/bulletfold/transcript"
)

// ErrMissingAssignment reports an Allocate call without an assignment
// callback on the prover side.
var ErrMissingAssignment = errors.New("r1cs: missing witness assignment")

// Prover accumulates a constraint system together with its witness and
// produces an aggregated proof. It implements ConstraintSystem; gadget code
// filled into it sees concrete witness values.
//
// A Prover is single-use: the witness is wiped during Prove.
type Prover struct {
	t  *transcript.Transcript
	pg generators.PedersenGens
	bg *generators.BulletproofGens

	constraints []LinearCombination
	aL, aR, aO  []fr.Element

	v         []fr.Element
	vBlinding fr.Element
	committed bool
	kOriginal int
}

// NewProver binds a prover to generator sets and a transcript. The caller
// owns the transcript and may absorb application framing before committing.
func NewProver(bg *generators.BulletproofGens, pg generators.PedersenGens, t *transcript.Transcript) *Prover {
	return &Prover{t: t, pg: pg, bg: bg}
}

func (p *Prover) evalLC(lc LinearCombination) fr.Element {
	var out, t, val fr.Element
	for _, term := range lc {
		switch term.Var.kind {
		case kindOne:
			val.SetOne()
		case kindCommitted:
			val = p.v[term.Var.index]
		case kindMultLeft:
			val = p.aL[term.Var.index]
		case kindMultRight:
			val = p.aR[term.Var.index]
		case kindMultOutput:
			val = p.aO[term.Var.index]
		}
		t.Mul(&term.Coeff, &val)
		out.Add(&out, &t)
	}
	return out
}

func (p *Prover) allocateValues(l, r, o fr.Element) (Variable, Variable, Variable) {
	i := len(p.aL)
	p.aL = append(p.aL, l)
	p.aR = append(p.aR, r)
	p.aO = append(p.aO, o)
	return Variable{kind: kindMultLeft, index: i},
		Variable{kind: kindMultRight, index: i},
		Variable{kind: kindMultOutput, index: i}
}

// Multiply evaluates both sides, adds a multiplication gate and ties its
// input wires to the given linear combinations.
func (p *Prover) Multiply(left, right LinearCombination) (Variable, Variable, Variable, error) {
	l := p.evalLC(left)
	r := p.evalLC(right)
	var o fr.Element
	o.Mul(&l, &r)
	lVar, rVar, oVar := p.allocateValues(l, r, o)
	p.Constrain(left.Sub(FromVariable(lVar)))
	p.Constrain(right.Sub(FromVariable(rVar)))
	return lVar, rVar, oVar, nil
}

// Allocate adds an unconstrained multiplication gate with the values
// supplied by the callback.
func (p *Prover) Allocate(assign func() (left, right, out fr.Element, err error)) (Variable, Variable, Variable, error) {
	if assign == nil {
		return Variable{}, Variable{}, Variable{}, ErrMissingAssignment
	}
	l, r, o, err := assign()
	if err != nil {
		return Variable{}, Variable{}, Variable{}, err
	}
	lVar, rVar, oVar := p.allocateValues(l, r, o)
	return lVar, rVar, oVar, nil
}

// Constrain asserts lc = 0 over the witness.
func (p *Prover) Constrain(lc LinearCombination) {
	p.constraints = append(p.constraints, lc)
}

// ChallengeScalar draws a Fiat-Shamir challenge from the proof transcript.
func (p *Prover) ChallengeScalar(label string) fr.Element {
	return p.t.ChallengeScalar(label)
}

// CommitVec commits to the padded witness vector and binds the commitment to
// the transcript. values must already be padded; realLen is the number of
// leading entries carrying data and determines the width of the consistency
// phase. A prover holds exactly one committed vector.
func (p *Prover) CommitVec(values []fr.Element, blinding fr.Element, realLen int) (bn254.G1Affine, []Variable, error) {
	if p.committed {
		return bn254.G1Affine{}, nil, ErrInputLength
	}
	n := len(values)
	if n == 0 || realLen < 1 || realLen > n {
		return bn254.G1Affine{}, nil, ErrInputLength
	}
	if p.bg.Capacity < n {
		return bn254.G1Affine{}, nil, ErrInvalidGeneratorsLength
	}

	points := append([]bn254.G1Affine{p.pg.BBlinding}, p.bg.G(n)...)
	scalars := append([]fr.Element{blinding}, values...)
	commitment, err := msm(points, scalars)
	if err != nil {
		return bn254.G1Affine{}, nil, err
	}
	p.t.AppendPoint("V", &commitment)

	p.v = append([]fr.Element(nil), values...)
	p.vBlinding = blinding
	p.kOriginal = realLen
	p.committed = true

	vars := make([]Variable, n)
	for i := range vars {
		vars[i] = Variable{kind: kindCommitted, index: i}
	}
	return commitment, vars, nil
}

// FinalizeInputs seals the input phase by absorbing the committed width.
// Challenges drawn by gadgets after this point are bound to the commitment.
func (p *Prover) FinalizeInputs() {
	p.t.AppendU64("m", uint64(len(p.v)))
}

// Prove runs the aggregated argument: the circuit phase, the consistency
// phase against the re-randomized commitment vectors c1Prime and c2Prime,
// their aggregation, and the two folding sub-arguments with arity foldK and
// foldDepth rounds. rPrime is the witness for the re-randomization relation.
func (p *Prover) Prove(c1Prime, c2Prime []bn254.G1Affine, rPrime fr.Element, foldK, foldDepth int) (*Proof, error) {
	log := logger.Logger().With().Str("protocol", "bulletfold").Logger()
	start := time.Now()

	// single-use: witness material is destroyed on every exit path
	defer func() {
		zeroScalars(p.v, p.aL, p.aR, p.aO)
		p.vBlinding.SetZero()
	}()

	n := len(p.aL)
	kTotal := len(p.v)
	kOrig := len(c1Prime)
	if !p.committed || n == 0 {
		return nil, ErrInputLength
	}
	if kOrig == 0 || len(c2Prime) != kOrig || kOrig != p.kOriginal {
		return nil, ErrInputLength
	}
	if kTotal < n || foldK < 2 || foldDepth < 1 {
		return nil, ErrInputLength
	}
	if p.bg.Capacity < kTotal {
		return nil, ErrInvalidGeneratorsLength
	}

	gVec := p.bg.G(kTotal)
	hVec := p.bg.H(kTotal)

	// proof randomness is bound to the transcript and the commitment
	// blinding, plus fresh entropy
	vbBytes := p.vBlinding.Bytes()
	rng, err := p.t.Rng("r1cs-blinding", vbBytes[:])
	if err != nil {
		return nil, err
	}
	defer rng.Wipe()

	iBlinding := rng.Scalar()
	oBlinding := rng.Scalar()
	sBlinding := rng.Scalar()
	sL := rng.Scalars(n)
	sR := rng.Scalars(n)
	defer zeroScalars(sL, sR)

	var aI, aO, s bn254.G1Affine
	var eg errgroup.Group
	eg.Go(func() error {
		points := append([]bn254.G1Affine{p.pg.BBlinding}, gVec[:n]...)
		points = append(points, hVec[:n]...)
		scalars := append([]fr.Element{iBlinding}, p.aL...)
		scalars = append(scalars, p.aR...)
		var err error
		aI, err = msm(points, scalars)
		return err
	})
	eg.Go(func() error {
		points := append([]bn254.G1Affine{p.pg.BBlinding}, gVec[:n]...)
		scalars := append([]fr.Element{oBlinding}, p.aO...)
		var err error
		aO, err = msm(points, scalars)
		return err
	})
	eg.Go(func() error {
		points := append([]bn254.G1Affine{p.pg.BBlinding}, gVec[:n]...)
		points = append(points, hVec[:n]...)
		scalars := append([]fr.Element{sBlinding}, sL...)
		scalars = append(scalars, sR...)
		var err error
		s, err = msm(points, scalars)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	p.t.AppendPoint("A_I", &aI)
	p.t.AppendPoint("A_O", &aO)
	p.t.AppendPoint("S", &s)
	y := p.t.ChallengeScalar("y")
	z := p.t.ChallengeScalar("z")

	wL, wR, wO, wV, _ := flattenedConstraints(p.constraints, z, n, kTotal)

	var yInv fr.Element
	yInv.Inverse(&y)
	yInvPow := powers(yInv, kTotal)
	yPow := powers(y, kTotal)

	lPoly := newVecPoly3(n)
	rPoly := newVecPoly3(n)
	var tmp fr.Element
	for i := 0; i < n; i++ {
		tmp.Mul(&yInvPow[i], &wR[i])
		lPoly.c1[i].Add(&p.aL[i], &tmp)
		lPoly.c2[i] = p.aO[i]
		lPoly.c3[i] = sL[i]
		rPoly.c0[i].Sub(&wO[i], &yPow[i])
		tmp.Mul(&yPow[i], &p.aR[i])
		rPoly.c1[i].Add(&tmp, &wL[i])
		rPoly.c3[i].Mul(&yPow[i], &sR[i])
	}

	tPoly := specialInnerProduct(&lPoly, &rPoly)
	// the quadratic coefficient is committed from the witness directly; its
	// public remainder is reconstructed by the verifier
	t2Direct := innerProduct(p.v, wV)

	tBlind := rng.Scalars(6)
	t1C := p.pg.Commit(tPoly.t1, tBlind[0])
	t2C := p.pg.Commit(t2Direct, tBlind[1])
	t3C := p.pg.Commit(tPoly.t3, tBlind[2])
	t4C := p.pg.Commit(tPoly.t4, tBlind[3])
	t5C := p.pg.Commit(tPoly.t5, tBlind[4])
	t6C := p.pg.Commit(tPoly.t6, tBlind[5])

	p.t.AppendPoint("T_1", &t1C)
	p.t.AppendPoint("T_3", &t3C)
	p.t.AppendPoint("T_4", &t4C)
	p.t.AppendPoint("T_5", &t5C)
	p.t.AppendPoint("T_6", &t6C)
	p.t.AppendPoint("T_2", &t2C)
	x := p.t.ChallengeScalar("x")

	tX := tPoly.eval(x)
	txBlindPoly := poly6{t1: tBlind[0], t2: tBlind[1], t3: tBlind[2], t4: tBlind[3], t5: tBlind[4], t6: tBlind[5]}
	tXBlinding := txBlindPoly.eval(x)
	var eBlinding fr.Element
	eBlinding.Mul(&sBlinding, &x)
	eBlinding.Add(&eBlinding, &oBlinding)
	eBlinding.Mul(&eBlinding, &x)
	eBlinding.Add(&eBlinding, &iBlinding)
	eBlinding.Mul(&eBlinding, &x)

	lVec := append(lPoly.eval(x), make([]fr.Element, kTotal-n)...)
	rVec := append(rPoly.eval(x), make([]fr.Element, kTotal-n)...)
	for i := n; i < kTotal; i++ {
		rVec[i].Neg(&yPow[i])
	}
	defer zeroScalars(lVec, rVec)

	p.t.AppendScalar("t_x", &tX)
	p.t.AppendScalar("t_x_blinding", &tXBlinding)
	p.t.AppendScalar("e_blinding", &eBlinding)

	// consistency phase: a blinded opening of the committed vector against
	// the re-randomized commitment chains
	sBlPrime := rng.Scalar()
	rnd := rng.Scalar()
	sLPrime := append(rng.Scalars(kOrig), make([]fr.Element, kTotal-kOrig)...)
	defer zeroScalars(sLPrime)

	sPrime, err := msm(
		append([]bn254.G1Affine{p.pg.BBlinding}, gVec[:kOrig]...),
		append([]fr.Element{sBlPrime}, sLPrime[:kOrig]...),
	)
	if err != nil {
		return nil, err
	}
	s1Prime, err := msm(
		append([]bn254.G1Affine{p.pg.B}, c1Prime...),
		append([]fr.Element{rnd}, sLPrime[:kOrig]...),
	)
	if err != nil {
		return nil, err
	}
	s2Prime, err := msm(
		append([]bn254.G1Affine{p.pg.BBlinding}, c2Prime...),
		append([]fr.Element{rnd}, sLPrime[:kOrig]...),
	)
	if err != nil {
		return nil, err
	}

	tc1 := innerProduct(sLPrime, wV)
	t1BlindPrime := rng.Scalar()
	t1PrimeC := p.pg.Commit(tc1, t1BlindPrime)

	p.t.AppendPoint("S_prime", &sPrime)
	p.t.AppendPoint("T_1_prime", &t1PrimeC)
	p.t.AppendPoint("S1_prime", &s1Prime)
	p.t.AppendPoint("S2_prime", &s2Prime)
	xPrime := p.t.ChallengeScalar("x_prime")

	tc := poly2{t0: t2Direct, t1: tc1}
	tcX := tc.eval(xPrime)
	tcBlindPoly := poly2{t0: tBlind[1], t1: t1BlindPrime}
	tcXBlinding := tcBlindPoly.eval(xPrime)
	var ecBlinding, rBlinding fr.Element
	ecBlinding.Mul(&sBlPrime, &xPrime)
	ecBlinding.Add(&ecBlinding, &p.vBlinding)
	rBlinding.Mul(&rnd, &xPrime)
	rBlinding.Add(&rBlinding, &rPrime)

	p.t.AppendScalar("tc_x", &tcX)
	p.t.AppendScalar("tc_x_blinding", &tcXBlinding)
	p.t.AppendScalar("ec_blinding", &ecBlinding)
	p.t.AppendScalar("r_blinding", &rBlinding)

	lcVec := make([]fr.Element, kTotal)
	for i := range lcVec {
		lcVec[i].Mul(&sLPrime[i], &xPrime)
		lcVec[i].Add(&lcVec[i], &p.v[i])
	}
	defer zeroScalars(lcVec)
	rcVec := wV

	// aggregation of the circuit and consistency openings into one folding
	// argument
	tCross := innerProduct(lVec, rcVec)
	tmp = innerProduct(lcVec, rVec)
	tCross.Add(&tCross, &tmp)
	p.t.AppendScalar("t_cross", &tCross)
	xIpp := p.t.ChallengeScalar("x_ipp")

	lAgg := make([]fr.Element, kTotal)
	rAgg := make([]fr.Element, kTotal)
	for i := 0; i < kTotal; i++ {
		lAgg[i].Mul(&lcVec[i], &xIpp)
		lAgg[i].Add(&lAgg[i], &lVec[i])
		rAgg[i].Mul(&rcVec[i], &xIpp)
		rAgg[i].Add(&rAgg[i], &rVec[i])
	}
	defer zeroScalars(lAgg, rAgg)

	w := p.t.ChallengeScalar("w")
	q := mulPoint(&p.pg.B, &w)
	hPrime := scaledChain(hVec, yInvPow)

	foldProof, err := fold.Prove(p.t, foldK, gVec, hPrime, q, lAgg, rAgg, foldDepth)
	if err != nil {
		return nil, err
	}

	chall := p.t.ChallengeScalar("ecp-batch")
	cAgg := make([]bn254.G1Affine, kOrig)
	for j := 0; j < kOrig; j++ {
		cAgg[j] = addScaled(&c1Prime[j], &c2Prime[j], &chall)
	}
	ecpProof, err := fold.ProveConsistency(p.t, foldK, gVec, cAgg, lcVec, foldDepth)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Dur("took", time.Since(start)).
		Int("gates", n).
		Int("witness", kTotal).
		Int("foldK", foldK).
		Int("foldDepth", foldDepth).
		Msg("prove done")

	return &Proof{
		AI: aI, AO: aO, S: s,
		T1: t1C, T2: t2C, T3: t3C, T4: t4C, T5: t5C, T6: t6C,
		SPrime: sPrime, T1Prime: t1PrimeC, S1Prime: s1Prime, S2Prime: s2Prime,
		TX: tX, TXBlinding: tXBlinding, EBlinding: eBlinding,
		TCX: tcX, TCXBlinding: tcXBlinding, ECBlinding: ecBlinding,
		TCross: tCross, RBlinding: rBlinding,
		Fold:        foldProof,
		Consistency: ecpProof,
	}, nil
}

// scaledChain returns points[i] scaled by coeffs[i].
func scaledChain(points []bn254.G1Affine, coeffs []fr.Element) []bn254.G1Affine {
	out := make([]bn254.G1Affine, len(points))
	var eg errgroup.Group
	nbTasks := runtime.NumCPU()
	chunk := (len(points) + nbTasks - 1) / nbTasks
	for start := 0; start < len(points); start += chunk {
		start := start
		end := min(start+chunk, len(points))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = mulPoint(&points[i], &coeffs[i])
			}
			return nil
		})
	}
	eg.Wait() //nolint:errcheck // workers cannot fail
	return out
}

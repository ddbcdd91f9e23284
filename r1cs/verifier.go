package r1cs

import (
	"time"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkfold/bulletfold/generators"
	"github.com/zkfold/bulletfold/logger"
	"github.com/zkfold/bulletfold/transcript"
)

// Verifier rebuilds the constraint set shape and checks an aggregated proof
// with one multiscalar multiplication. It implements ConstraintSystem;
// gadget code filled into it allocates wires and constraints but sees no
// witness values.
type Verifier struct {
	t  *transcript.Transcript
	pg generators.PedersenGens
	bg *generators.BulletproofGens

	constraints []LinearCombination
	numVars     int

	vCommit   bn254.G1Affine
	committed bool
	numInputs int
}

// NewVerifier binds a verifier to generator sets and a transcript. The
// transcript must carry the same application framing as the prover's.
func NewVerifier(bg *generators.BulletproofGens, pg generators.PedersenGens, t *transcript.Transcript) *Verifier {
	return &Verifier{t: t, pg: pg, bg: bg}
}

func (v *Verifier) allocateVars() (Variable, Variable, Variable) {
	i := v.numVars
	v.numVars++
	return Variable{kind: kindMultLeft, index: i},
		Variable{kind: kindMultRight, index: i},
		Variable{kind: kindMultOutput, index: i}
}

// Multiply allocates a multiplication gate and ties its input wires to the
// given linear combinations.
func (v *Verifier) Multiply(left, right LinearCombination) (Variable, Variable, Variable, error) {
	lVar, rVar, oVar := v.allocateVars()
	v.Constrain(left.Sub(FromVariable(lVar)))
	v.Constrain(right.Sub(FromVariable(rVar)))
	return lVar, rVar, oVar, nil
}

// Allocate allocates an unconstrained multiplication gate. The assignment
// callback is ignored on the verifier side.
func (v *Verifier) Allocate(func() (left, right, out fr.Element, err error)) (Variable, Variable, Variable, error) {
	lVar, rVar, oVar := v.allocateVars()
	return lVar, rVar, oVar, nil
}

// Constrain asserts lc = 0.
func (v *Verifier) Constrain(lc LinearCombination) {
	v.constraints = append(v.constraints, lc)
}

// ChallengeScalar draws a Fiat-Shamir challenge from the proof transcript.
func (v *Verifier) ChallengeScalar(label string) fr.Element {
	return v.t.ChallengeScalar(label)
}

// CommitVec absorbs the prover's vector commitment and allocates its n
// variables. A verifier holds exactly one committed vector.
func (v *Verifier) CommitVec(commitment bn254.G1Affine, n int) ([]Variable, error) {
	if v.committed || n <= 0 {
		return nil, ErrInputLength
	}
	v.t.AppendPoint("V", &commitment)
	v.vCommit = commitment
	v.committed = true
	v.numInputs = n
	vars := make([]Variable, n)
	for i := range vars {
		vars[i] = Variable{kind: kindCommitted, index: i}
	}
	return vars, nil
}

// FinalizeInputs seals the input phase by absorbing the committed width.
func (v *Verifier) FinalizeInputs() {
	v.t.AppendU64("m", uint64(v.numInputs))
}

// Verify checks the proof against the re-randomized commitment vectors
// c1Prime and c2Prime and the two aggregate input commitments c. The whole
// statement, both folding sub-arguments included, reduces to a single
// multiscalar multiplication that must land on the identity.
func (v *Verifier) Verify(proof *Proof, c1Prime, c2Prime, c []bn254.G1Affine) error {
	log := logger.Logger().With().Str("protocol", "bulletfold").Logger()
	start := time.Now()

	n := v.numVars
	paddedN := v.numInputs
	kOrig := len(c1Prime)
	if !v.committed || n == 0 || paddedN < n {
		return ErrInputLength
	}
	if kOrig == 0 || len(c2Prime) != kOrig || kOrig > paddedN || len(c) != 2 {
		return ErrInputLength
	}
	if proof.Fold == nil || proof.Consistency == nil {
		return ErrFormat
	}
	if v.bg.Capacity < paddedN {
		return ErrInvalidGeneratorsLength
	}

	t := v.t
	t.AppendPoint("A_I", &proof.AI)
	t.AppendPoint("A_O", &proof.AO)
	t.AppendPoint("S", &proof.S)
	y := t.ChallengeScalar("y")
	z := t.ChallengeScalar("z")

	t.AppendPoint("T_1", &proof.T1)
	t.AppendPoint("T_3", &proof.T3)
	t.AppendPoint("T_4", &proof.T4)
	t.AppendPoint("T_5", &proof.T5)
	t.AppendPoint("T_6", &proof.T6)
	t.AppendPoint("T_2", &proof.T2)
	x := t.ChallengeScalar("x")

	t.AppendScalar("t_x", &proof.TX)
	t.AppendScalar("t_x_blinding", &proof.TXBlinding)
	t.AppendScalar("e_blinding", &proof.EBlinding)

	t.AppendPoint("S_prime", &proof.SPrime)
	t.AppendPoint("T_1_prime", &proof.T1Prime)
	t.AppendPoint("S1_prime", &proof.S1Prime)
	t.AppendPoint("S2_prime", &proof.S2Prime)
	xPrime := t.ChallengeScalar("x_prime")

	t.AppendScalar("tc_x", &proof.TCX)
	t.AppendScalar("tc_x_blinding", &proof.TCXBlinding)
	t.AppendScalar("ec_blinding", &proof.ECBlinding)
	t.AppendScalar("r_blinding", &proof.RBlinding)

	t.AppendScalar("t_cross", &proof.TCross)
	xIpp := t.ChallengeScalar("x_ipp")
	w := t.ChallengeScalar("w")

	foldScalars, err := proof.Fold.VerificationScalars(paddedN, t)
	if err != nil {
		return err
	}
	chall := t.ChallengeScalar("ecp-batch")
	ecpScalars, err := proof.Consistency.VerificationScalars(paddedN, t)
	if err != nil {
		return err
	}

	wL, wR, wO, wV, wc := flattenedConstraints(v.constraints, z, n, paddedN)

	var yInv fr.Element
	yInv.Inverse(&y)
	yInvPow := powers(yInv, paddedN)

	sPCir := foldScalars.P
	sPEcp := ecpScalars.P

	ynegWR := make([]fr.Element, paddedN)
	for i := 0; i < n; i++ {
		ynegWR[i].Mul(&wR[i], &yInvPow[i])
	}
	delta := innerProduct(ynegWR[:n], wL)

	// a fresh batching factor ties the polynomial identities into the one
	// equation; reuse across the terms is weighted by its powers
	var r fr.Element
	if _, err := r.SetRandom(); err != nil {
		return err
	}
	var r2, r3, r4 fr.Element
	r2.Square(&r)
	r3.Mul(&r2, &r)
	r4.Mul(&r3, &r)

	xPow := powers(x, 7)

	var expectedIP, tmp fr.Element
	expectedIP.Mul(&xIpp, &proof.TCross)
	expectedIP.Add(&expectedIP, &proof.TX)
	tmp.Square(&xIpp)
	tmp.Mul(&tmp, &proof.TCX)
	expectedIP.Add(&expectedIP, &tmp)

	// scalar on the Pedersen base: the inner-product identity (through
	// Q = w*B), the t(x) opening and the tc(x') opening
	var bScalar fr.Element
	bScalar.Mul(&w, &foldScalars.Q)
	tmp.Mul(&w, &expectedIP)
	tmp.Mul(&tmp, &sPCir)
	bScalar.Sub(&bScalar, &tmp)
	var u fr.Element
	u.Add(&wc, &delta)
	u.Mul(&u, &xPow[2])
	u.Sub(&u, &proof.TX)
	u.Mul(&u, &r)
	bScalar.Add(&bScalar, &u)
	tmp.Mul(&r2, &proof.TCX)
	bScalar.Sub(&bScalar, &tmp)
	tmp.Mul(&sPEcp, &r3)
	tmp.Mul(&tmp, &proof.RBlinding)
	bScalar.Add(&bScalar, &tmp)

	// scalar on the blinding base: all blinding openings
	var bBlindScalar fr.Element
	bBlindScalar.Mul(&xIpp, &proof.ECBlinding)
	bBlindScalar.Add(&bBlindScalar, &proof.EBlinding)
	bBlindScalar.Mul(&bBlindScalar, &sPCir)
	tmp.Mul(&r2, &proof.TCXBlinding)
	bBlindScalar.Sub(&bBlindScalar, &tmp)
	tmp.Mul(&r, &proof.TXBlinding)
	bBlindScalar.Sub(&bBlindScalar, &tmp)
	u.Mul(&r4, &proof.ECBlinding)
	tmp.Mul(&r3, &chall)
	tmp.Mul(&tmp, &proof.RBlinding)
	u.Add(&u, &tmp)
	u.Mul(&u, &sPEcp)
	bBlindScalar.Add(&bBlindScalar, &u)

	foldRoundPoints := 0
	for _, round := range proof.Fold.Rounds {
		foldRoundPoints += len(round)
	}
	ecpRoundPairs := 0
	for _, round := range proof.Consistency.Rounds {
		ecpRoundPairs += len(round)
	}

	total := 7 + 2*paddedN + foldRoundPoints + 8 + 4 + 2*kOrig + 2*ecpRoundPairs
	scalars := make([]fr.Element, 0, total)
	points := make([]bn254.G1Affine, 0, total)
	push := func(s fr.Element, p bn254.G1Affine) {
		scalars = append(scalars, s)
		points = append(points, p)
	}
	negMul := func(a, b *fr.Element) fr.Element {
		var out fr.Element
		out.Mul(a, b)
		out.Neg(&out)
		return out
	}

	// circuit-phase commitments fold into the synthesized P of the
	// inner-product argument
	tmp.Mul(&xPow[1], &sPCir)
	tmp.Neg(&tmp)
	push(tmp, proof.AI)
	tmp.Mul(&xPow[2], &sPCir)
	tmp.Neg(&tmp)
	push(tmp, proof.AO)
	tmp.Mul(&xPow[3], &sPCir)
	tmp.Neg(&tmp)
	push(tmp, proof.S)

	var sV fr.Element
	sV = negMul(&xIpp, &sPCir)
	tmp.Mul(&r4, &sPEcp)
	sV.Sub(&sV, &tmp)
	push(sV, v.vCommit)

	var sSPrime fr.Element
	sSPrime.Mul(&xIpp, &sPCir)
	tmp.Mul(&r4, &sPEcp)
	sSPrime.Add(&sSPrime, &tmp)
	sSPrime.Mul(&sSPrime, &xPrime)
	sSPrime.Neg(&sSPrime)
	push(sSPrime, proof.SPrime)

	push(bScalar, v.pg.B)
	push(bBlindScalar, v.pg.BBlinding)

	for i := 0; i < paddedN; i++ {
		var gS fr.Element
		gS.Mul(&ynegWR[i], &xPow[1])
		gS.Mul(&gS, &sPCir)
		gS.Neg(&gS)
		gS.Add(&gS, &foldScalars.G[i])
		tmp.Mul(&ecpScalars.Z[i], &r4)
		gS.Add(&gS, &tmp)
		push(gS, v.bg.G(paddedN)[i])
	}

	for i := 0; i < paddedN; i++ {
		var hS fr.Element
		hS.Mul(&yInvPow[i], &foldScalars.H[i])
		var coeff fr.Element
		if i < n {
			coeff.Mul(&xPow[1], &wL[i])
			coeff.Add(&coeff, &wO[i])
		}
		coeff.Mul(&coeff, &yInvPow[i])
		var one fr.Element
		one.SetOne()
		coeff.Sub(&coeff, &one)
		coeff.Mul(&coeff, &sPCir)
		hS.Sub(&hS, &coeff)
		tmp.Mul(&yInvPow[i], &xIpp)
		tmp.Mul(&tmp, &sPCir)
		tmp.Mul(&tmp, &wV[i])
		hS.Sub(&hS, &tmp)
		push(hS, v.bg.H(paddedN)[i])
	}

	idx := 0
	for _, round := range proof.Fold.Rounds {
		for i := range round {
			var s fr.Element
			s.Neg(&foldScalars.Rounds[idx])
			idx++
			push(s, round[i])
		}
	}

	tmp.Mul(&r2, &xPrime)
	push(tmp, proof.T1Prime)
	push(r2, proof.T2)

	tPoints := []bn254.G1Affine{proof.T1, proof.T2, proof.T3, proof.T4, proof.T5, proof.T6}
	for i, pt := range tPoints {
		tmp.Mul(&r, &xPow[i+1])
		push(tmp, pt)
	}

	var s1 fr.Element
	s1.Mul(&r3, &xPrime)
	s1.Mul(&s1, &sPEcp)
	s1.Neg(&s1)
	push(s1, proof.S1Prime)
	s1.Mul(&s1, &chall)
	push(s1, proof.S2Prime)

	sC0 := negMul(&r3, &sPEcp)
	push(sC0, c[0])
	tmp.Mul(&sC0, &chall)
	push(tmp, c[1])

	for j := 0; j < kOrig; j++ {
		tmp.Mul(&ecpScalars.Z[j], &r3)
		push(tmp, c1Prime[j])
		tmp.Mul(&tmp, &chall)
		push(tmp, c2Prime[j])
	}

	idx = 0
	for _, round := range proof.Consistency.Rounds {
		for i := range round {
			var s fr.Element
			s.Mul(&ecpScalars.Rounds[idx], &r4)
			s.Neg(&s)
			push(s, round[i][0])
			s.Mul(&ecpScalars.Rounds[idx], &r3)
			s.Neg(&s)
			push(s, round[i][1])
			idx++
		}
	}

	res, err := msm(points, scalars)
	if err != nil {
		return err
	}
	if !res.IsInfinity() {
		return ErrVerification
	}

	log.Debug().
		Dur("took", time.Since(start)).
		Int("gates", n).
		Int("witness", paddedN).
		Int("msmSize", len(points)).
		Msg("verify done")
	return nil
}

package r1cs

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// msm computes the multiscalar multiplication, dropping pairs whose base is
// the point at infinity before handing off to MultiExp.
func msm(points []bn254.G1Affine, scalars []fr.Element) (bn254.G1Affine, error) {
	for i := range points {
		if points[i].IsInfinity() {
			fp := make([]bn254.G1Affine, 0, len(points))
			fs := make([]fr.Element, 0, len(scalars))
			for j := range points {
				if !points[j].IsInfinity() {
					fp = append(fp, points[j])
					fs = append(fs, scalars[j])
				}
			}
			points, scalars = fp, fs
			break
		}
	}
	if len(points) == 0 {
		return bn254.G1Affine{}, nil
	}
	var acc bn254.G1Jac
	if _, err := acc.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return bn254.G1Affine{}, err
	}
	var res bn254.G1Affine
	res.FromJacobian(&acc)
	return res, nil
}

// mulPoint returns s*p.
func mulPoint(p *bn254.G1Affine, s *fr.Element) bn254.G1Affine {
	var sBig big.Int
	s.BigInt(&sBig)
	var out bn254.G1Affine
	out.ScalarMultiplication(p, &sBig)
	return out
}

// addScaled returns p0 + s*p1.
func addScaled(p0, p1 *bn254.G1Affine, s *fr.Element) bn254.G1Affine {
	scaled := mulPoint(p1, s)
	var acc bn254.G1Jac
	acc.FromAffine(p0)
	acc.AddMixed(&scaled)
	var out bn254.G1Affine
	out.FromJacobian(&acc)
	return out
}

package r1cs

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// vecPoly3 is a degree-3 polynomial with vector coefficients. The circuit
// polynomials use a sparse shape: the left polynomial has no constant term
// and the right one no quadratic term.
type vecPoly3 struct {
	c0, c1, c2, c3 []fr.Element
}

func newVecPoly3(n int) vecPoly3 {
	return vecPoly3{
		c0: make([]fr.Element, n),
		c1: make([]fr.Element, n),
		c2: make([]fr.Element, n),
		c3: make([]fr.Element, n),
	}
}

func (p *vecPoly3) eval(x fr.Element) []fr.Element {
	out := make([]fr.Element, len(p.c0))
	var t fr.Element
	for i := range out {
		// Horner over the four coefficients
		t.Mul(&p.c3[i], &x)
		t.Add(&t, &p.c2[i])
		t.Mul(&t, &x)
		t.Add(&t, &p.c1[i])
		t.Mul(&t, &x)
		out[i].Add(&t, &p.c0[i])
	}
	return out
}

// poly2 is a degree-2 polynomial with scalar coefficients.
type poly2 struct {
	t0, t1, t2 fr.Element
}

func (p *poly2) eval(x fr.Element) fr.Element {
	var out fr.Element
	out.Mul(&p.t2, &x)
	out.Add(&out, &p.t1)
	out.Mul(&out, &x)
	out.Add(&out, &p.t0)
	return out
}

// poly6 is a degree-6 polynomial with scalar coefficients and no constant
// term.
type poly6 struct {
	t1, t2, t3, t4, t5, t6 fr.Element
}

func (p *poly6) eval(x fr.Element) fr.Element {
	var out fr.Element
	out.Mul(&p.t6, &x)
	out.Add(&out, &p.t5)
	out.Mul(&out, &x)
	out.Add(&out, &p.t4)
	out.Mul(&out, &x)
	out.Add(&out, &p.t3)
	out.Mul(&out, &x)
	out.Add(&out, &p.t2)
	out.Mul(&out, &x)
	out.Add(&out, &p.t1)
	out.Mul(&out, &x)
	return out
}

func innerProduct(a, b []fr.Element) fr.Element {
	if len(a) != len(b) {
		panic("r1cs: inner product length mismatch")
	}
	var out, t fr.Element
	for i := range a {
		t.Mul(&a[i], &b[i])
		out.Add(&out, &t)
	}
	return out
}

// specialInnerProduct multiplies the two sparse circuit polynomials,
// exploiting l.c0 = 0 and r.c2 = 0 so the product has no constant term.
func specialInnerProduct(l, r *vecPoly3) poly6 {
	var p poly6
	var t fr.Element

	p.t1 = innerProduct(l.c1, r.c0)

	p.t2 = innerProduct(l.c1, r.c1)
	t = innerProduct(l.c2, r.c0)
	p.t2.Add(&p.t2, &t)

	p.t3 = innerProduct(l.c2, r.c1)
	t = innerProduct(l.c3, r.c0)
	p.t3.Add(&p.t3, &t)

	p.t4 = innerProduct(l.c1, r.c3)
	t = innerProduct(l.c3, r.c1)
	p.t4.Add(&p.t4, &t)

	p.t5 = innerProduct(l.c2, r.c3)

	p.t6 = innerProduct(l.c3, r.c3)

	return p
}

// powers returns [1, x, x^2, ..., x^(n-1)].
func powers(x fr.Element, n int) []fr.Element {
	out := make([]fr.Element, n)
	if n == 0 {
		return out
	}
	out[0].SetOne()
	for i := 1; i < n; i++ {
		out[i].Mul(&out[i-1], &x)
	}
	return out
}

// zeroScalars overwrites secret scalar material before it is released.
func zeroScalars(vs ...[]fr.Element) {
	for _, v := range vs {
		for i := range v {
			v[i].SetZero()
		}
	}
}

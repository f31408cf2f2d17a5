package signal

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

var (
	errSmoothingPoints   = errors.New("smoothing spline needs at least three knots")
	errSmoothingSingular = errors.New("smoothing spline system is singular")
)

// maxEnvelopeDegree is the highest polynomial degree of an envelope piece.
const maxEnvelopeDegree = 3

// fitEnvelope evaluates a smooth curve through the control points (xs, ys)
// at 0, 1, ..., n-1. xs must be non-decreasing.
//
// The curve is the least-squares polynomial of degree min(3, distinct-1).
// When that polynomial leaves a residual sum of squares above the number of
// control points and there are enough distinct abscissae, a natural cubic
// smoothing spline whose residual equals the number of control points is
// used instead. Fewer than two control points give a constant curve of value
// degenerate.
func fitEnvelope(xs, ys []float64, n int, degenerate float64) []float64 {
	out := make([]float64, n)
	m := len(xs)
	k := min(maxEnvelopeDegree, m-1)
	if k < 1 {
		for i := range out {
			out[i] = degenerate
		}
		return out
	}

	dx, dy := dedupe(xs, ys)
	d := len(dx)
	scale := float64(max(n-1, 1))

	coef, err := polyFit(xs, ys, min(k, d-1), scale)
	if err == nil {
		var residual float64
		for i, x := range xs {
			r := ys[i] - polyEval(coef, x/scale)
			residual += r * r
		}
		if residual <= float64(m) || d <= k+1 {
			for i := range out {
				out[i] = polyEval(coef, float64(i)/scale)
			}
			return out
		}
	}

	knots := dy
	if smoothed, serr := smoothingSpline(dx, dy, float64(m)); serr == nil {
		knots = smoothed
	}

	var spline interp.NaturalCubic
	if serr := spline.Fit(dx, knots); serr != nil {
		if err != nil {
			// Neither fit is usable; fall back to the mean level.
			var mean float64
			for _, y := range ys {
				mean += y
			}
			mean /= float64(m)
			for i := range out {
				out[i] = mean
			}
			return out
		}
		for i := range out {
			out[i] = polyEval(coef, float64(i)/scale)
		}
		return out
	}
	for i := range out {
		out[i] = spline.Predict(float64(i))
	}
	return out
}

// smoothingSpline returns the knot values of the natural cubic spline that
// minimizes the integrated squared second derivative while keeping the
// residual sum of squares against ys at s (Reinsch). xs must be strictly
// increasing with at least three points.
func smoothingSpline(xs, ys []float64, s float64) ([]float64, error) {
	d := len(xs)
	if d < 3 {
		return nil, errSmoothingPoints
	}
	q := d - 2

	// Q maps knot values to second differences, R couples the second
	// derivatives at the interior knots.
	qm := mat.NewDense(d, q, nil)
	r := mat.NewSymDense(q, nil)
	for j := 1; j < d-1; j++ {
		h0, h1 := xs[j]-xs[j-1], xs[j+1]-xs[j]
		c := j - 1
		qm.Set(j-1, c, 1/h0)
		qm.Set(j, c, -1/h0-1/h1)
		qm.Set(j+1, c, 1/h1)
		r.SetSym(c, c, (h0+h1)/3)
		if c+1 < q {
			r.SetSym(c, c+1, h1/6)
		}
	}
	y := mat.NewVecDense(d, append([]float64(nil), ys...))
	var qtq mat.SymDense
	qtq.SymOuterK(1, qm.T())
	var qty mat.VecDense
	qty.MulVec(qm.T(), y)

	fit := func(alpha float64) ([]float64, float64, error) {
		var a mat.SymDense
		a.AddSym(r, scaledSym(&qtq, alpha))
		var chol mat.Cholesky
		if ok := chol.Factorize(&a); !ok {
			return nil, 0, errSmoothingSingular
		}
		var gamma mat.VecDense
		if err := chol.SolveVecTo(&gamma, &qty); err != nil {
			return nil, 0, err
		}
		var correction mat.VecDense
		correction.MulVec(qm, &gamma)
		values := make([]float64, d)
		var rss float64
		for i := range values {
			delta := alpha * correction.AtVec(i)
			values[i] = ys[i] - delta
			rss += delta * delta
		}
		return values, rss, nil
	}

	// The residual grows with the smoothing weight from 0 (interpolation)
	// to the residual of the straight line fit.
	lo, hi := 1.0, 1.0
	for i := 0; i < 64; i++ {
		_, rss, err := fit(hi)
		if err != nil {
			return nil, err
		}
		if rss >= s {
			break
		}
		lo, hi = hi, hi*10
	}
	for i := 0; i < 64; i++ {
		_, rss, err := fit(lo)
		if err != nil {
			return nil, err
		}
		if rss <= s {
			break
		}
		lo, hi = lo/10, lo
	}
	for i := 0; i < 200 && hi > lo*(1+1e-12); i++ {
		mid := math.Sqrt(lo * hi)
		_, rss, err := fit(mid)
		if err != nil {
			return nil, err
		}
		if rss > s {
			hi = mid
		} else {
			lo = mid
		}
	}
	values, _, err := fit(hi)
	return values, err
}

func scaledSym(a *mat.SymDense, f float64) *mat.SymDense {
	var out mat.SymDense
	out.ScaleSym(f, a)
	return &out
}

// dedupe drops control points that repeat the previous abscissa.
func dedupe(xs, ys []float64) (dx, dy []float64) {
	for i, x := range xs {
		if len(dx) > 0 && dx[len(dx)-1] == x {
			continue
		}
		dx = append(dx, x)
		dy = append(dy, ys[i])
	}
	return dx, dy
}

// polyFit returns the coefficients, lowest order first, of the least-squares
// polynomial of the given degree in x/scale.
func polyFit(xs, ys []float64, degree int, scale float64) ([]float64, error) {
	a := mat.NewDense(len(xs), degree+1, nil)
	for i, x := range xs {
		t, p := x/scale, 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, p)
			p *= t
		}
	}
	b := mat.NewVecDense(len(ys), append([]float64(nil), ys...))

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return append([]float64(nil), coef.RawVector().Data...), nil
}

func polyEval(coef []float64, t float64) float64 {
	var v float64
	for i := len(coef) - 1; i >= 0; i-- {
		v = v*t + coef[i]
	}
	return v
}

// Package latent holds the sparse variational posterior of a single latent
// function. The posterior over the inducing outputs u = f(z) is
//
//	q(u) = N(μ, S S^T)             (non-whitened), or
//	q(v) = N(μ, S S^T), u = L v    (whitened, L L^T = K(z, z)),
//
// with S lower triangular.
package latent

import (
	"errors"
	"fmt"
	"math"

	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/utils"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// DefaultJitter is added to the diagonal of K(z, z) before factorising it.
const DefaultJitter = 1e-6

var (
	ErrNotPositiveDefinite = errors.New("latent: prior covariance is not positive definite")
	ErrShape               = errors.New("latent: shape mismatch")
)

type Process struct {
	Kernel kern.Kernel
	whiten bool
	jitter float64
	qMu    *mat.VecDense
	qSqrt  *mat.TriDense
}

func NewProcess(kernel kern.Kernel, m int, whiten bool, jitter float64) *Process {
	p := &Process{
		Kernel: kernel,
		whiten: whiten,
		jitter: jitter,
	}
	p.Reset(m)
	return p
}

// Reset sets the posterior to zero mean and identity root over m inducing
// points. The kernel is not touched.
func (p *Process) Reset(m int) {
	p.qMu = mat.NewVecDense(m, nil)
	p.qSqrt = utils.EyeTri(m)
}

func (p *Process) NumInducing() int    { return p.qMu.Len() }
func (p *Process) Whiten() bool        { return p.whiten }
func (p *Process) Mean() *mat.VecDense { return p.qMu }
func (p *Process) Sqrt() *mat.TriDense { return p.qSqrt }

// Number of variational values: μ plus the lower triangle of S.
func (p *Process) NumFree() int {
	m := p.NumInducing()
	return m + m*(m+1)/2
}

// Pack appends μ followed by the lower triangle of S (row by row) to dst.
func (p *Process) Pack(dst []float64) []float64 {
	m := p.NumInducing()
	dst = append(dst, p.qMu.RawVector().Data[:m]...)
	for i := 0; i < m; i++ {
		for j := 0; j <= i; j++ {
			dst = append(dst, p.qSqrt.At(i, j))
		}
	}
	return dst
}

// Unpack is the inverse of Pack. It returns the number of values consumed.
func (p *Process) Unpack(x []float64) int {
	m := p.NumInducing()
	k := 0
	for i := 0; i < m; i++ {
		p.qMu.SetVec(i, x[k])
		k++
	}
	for i := 0; i < m; i++ {
		for j := 0; j <= i; j++ {
			p.qSqrt.SetTri(i, j, x[k])
			k++
		}
	}
	return k
}

// Cholesky factor of K(z, z) + jitter·I.
func (p *Process) priorChol(z []float64) (*mat.TriDense, error) {
	kmm := p.Kernel.KSym(z)
	for i := range z {
		kmm.SetSym(i, i, kmm.At(i, i)+p.jitter)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(kmm); !ok {
		return nil, ErrNotPositiveDefinite
	}
	var l mat.TriDense
	chol.LTo(&l)
	return &l, nil
}

func (p *Process) checkInducing(z []float64) error {
	if len(z) != p.NumInducing() {
		return fmt.Errorf("%d inducing inputs for %d variational means: %w",
			len(z), p.NumInducing(), ErrShape)
	}
	return nil
}

// KL returns KL[q(u) || p(u)]. In the whitened case the prior is N(0, I) and
// z is only used for shape checking.
func (p *Process) KL(z []float64) (float64, error) {
	if err := p.checkInducing(z); err != nil {
		return 0, err
	}
	m := p.NumInducing()
	logDetS := 0.0
	for i := 0; i < m; i++ {
		d := p.qSqrt.At(i, i)
		logDetS += math.Log(d * d)
	}
	if p.whiten {
		trace := 0.0
		for i := 0; i < m; i++ {
			for j := 0; j <= i; j++ {
				v := p.qSqrt.At(i, j)
				trace += v * v
			}
		}
		return 0.5 * (mat.Dot(p.qMu, p.qMu) + trace - float64(m) - logDetS), nil
	}

	lp, err := p.priorChol(z)
	if err != nil {
		return 0, err
	}
	tri := lp.RawTriangular()
	// L_p^{-1} μ
	alpha := mat.NewDense(m, 1, nil)
	alpha.SetCol(0, p.qMu.RawVector().Data[:m])
	blas64.Trsm(blas.Left, blas.NoTrans, 1, tri, alpha.RawMatrix())
	// L_p^{-1} S
	b := mat.DenseCopyOf(p.qSqrt)
	blas64.Trsm(blas.Left, blas.NoTrans, 1, tri, b.RawMatrix())

	logDetK := 0.0
	for i := 0; i < m; i++ {
		logDetK += 2 * math.Log(lp.At(i, i))
	}
	return 0.5 * (sumSquares(alpha) + sumSquares(b) - float64(m) + logDetK - logDetS), nil
}

// Conditional returns the marginal posterior mean and variance of the latent
// function at x:
//
//	A = L⁻¹ K(z, x)                 (whitened), or L⁻ᵀ L⁻¹ K(z, x),
//	mean = Aᵀ μ,
//	var  = k(x, x) - ‖L⁻¹ K(z, x)‖²_col + ‖Sᵀ A‖²_col.
//
// Only the diagonal of the predictive covariance is computed.
func (p *Process) Conditional(x, z []float64) (mean, variance []float64, err error) {
	if err := p.checkInducing(z); err != nil {
		return nil, nil, err
	}
	lm, err := p.priorChol(z)
	if err != nil {
		return nil, nil, err
	}
	tri := lm.RawTriangular()
	a := p.Kernel.K(z, x)
	blas64.Trsm(blas.Left, blas.NoTrans, 1, tri, a.RawMatrix())

	m := p.NumInducing()
	variance = p.Kernel.Kdiag(x)
	for i := 0; i < m; i++ {
		for j, v := range a.RawRowView(i) {
			variance[j] -= v * v
		}
	}
	if !p.whiten {
		blas64.Trsm(blas.Left, blas.Trans, 1, tri, a.RawMatrix())
	}

	var mv mat.VecDense
	mv.MulVec(a.T(), p.qMu)
	mean = make([]float64, len(x))
	for j := range mean {
		mean[j] = mv.AtVec(j)
	}

	var sta mat.Dense
	sta.Mul(p.qSqrt.T(), a)
	for i := 0; i < m; i++ {
		row := sta.RawRowView(i)
		for j, v := range row {
			variance[j] += v * v
		}
	}
	return mean, variance, nil
}

func sumSquares(a *mat.Dense) float64 {
	r, _ := a.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		for _, v := range a.RawRowView(i) {
			sum += v * v
		}
	}
	return sum
}

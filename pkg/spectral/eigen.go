package spectral

import "math"

func sqrtF64(x float64) float64 {
	return math.Sqrt(x)
}

func sqrtF32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// decomposeSmallestK returns the k algebraically smallest eigenvalues of
// the symmetric matrix L (ascending) with their eigenvectors as columns of
// the returned n x k matrix. It mirrors the specification's two-path
// design: a Lanczos tridiagonalization is attempted first (promoted to
// float64, as the spec requires); if it fails to produce an
// orthogonality-consistent basis, a full dense Jacobi eigendecomposition of
// L is used instead and the leading k eigenpairs are returned.
//
// There is no ecosystem symmetric-eigensolver library in this corpus, so
// this is implemented directly against math/float64 slices (see DESIGN.md).
func decomposeSmallestK(l [][]float64, k int) (vals []float64, vecs [][]float64, usedFallback bool) {
	n := len(l)
	if k > n {
		k = n
	}

	if vals, vecs, ok := lanczosSmallestK(l, k); ok {
		return vals, vecs, false
	}

	allVals, allVecs := jacobiEigen(l)
	// jacobiEigen returns ascending eigenvalues already.
	vals = allVals[:k]
	vecs = make([][]float64, n)
	for i := 0; i < n; i++ {
		vecs[i] = make([]float64, k)
		copy(vecs[i], allVecs[i][:k])
	}
	return vals, vecs, true
}

// lanczosSmallestK runs m = min(n, 2k+10) steps of Lanczos tridiagonalization
// with full reorthogonalization, diagonalizes the resulting tridiagonal
// matrix, and lifts the k smallest Ritz pairs back into the original basis.
// Returns ok=false if a residual check indicates the basis lost
// orthogonality (the Lanczos process is known to be numerically fragile
// without explicit reorthogonalization, which is what we do here; this
// check exists for the pathological cases where even that isn't enough).
func lanczosSmallestK(l [][]float64, k int) (vals []float64, vecs [][]float64, ok bool) {
	n := len(l)
	if n == 0 || k == 0 {
		return nil, nil, false
	}
	m := 2*k + 10
	if m > n {
		m = n
	}

	q := make([][]float64, m) // Lanczos basis vectors, q[i] has length n
	alpha := make([]float64, m)
	beta := make([]float64, m) // beta[i] connects q[i] and q[i+1]

	v := make([]float64, n)
	v[0] = 1.0 // deterministic starting vector
	normalize(v)
	q[0] = v

	var prev []float64
	betaPrev := 0.0

	for j := 0; j < m; j++ {
		w := matVec(l, q[j])
		if prev != nil {
			for i := range w {
				w[i] -= betaPrev * prev[i]
			}
		}
		a := dot(w, q[j])
		alpha[j] = a
		for i := range w {
			w[i] -= a * q[j][i]
		}

		// full reorthogonalization against all previous basis vectors
		for p := 0; p <= j; p++ {
			c := dot(w, q[p])
			for i := range w {
				w[i] -= c * q[p][i]
			}
		}

		b := norm(w)
		beta[j] = b
		if j+1 < m {
			if b < 1e-10 {
				m = j + 1
				break
			}
			for i := range w {
				w[i] /= b
			}
			q[j+1] = w
			prev = q[j]
			betaPrev = b
		}
	}

	// Build tridiagonal T (m x m) and diagonalize via tqli.
	d := make([]float64, m)
	e := make([]float64, m)
	copy(d, alpha[:m])
	for i := 1; i < m; i++ {
		e[i-1] = beta[i-1]
	}
	z := identity(m)
	if !tqli(d, e, z) {
		return nil, nil, false
	}

	order := argsortAscending(d)
	if k > len(order) {
		k = len(order)
	}

	vals = make([]float64, k)
	vecs = make([][]float64, n)
	for i := 0; i < n; i++ {
		vecs[i] = make([]float64, k)
	}
	for c := 0; c < k; c++ {
		idx := order[c]
		vals[c] = d[idx]
		// Ritz vector = Q * z[:,idx]
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < m; j++ {
				sum += q[j][i] * z[j][idx]
			}
			vecs[i][c] = sum
		}
	}

	// Residual check: ||L v - lambda v|| should be small for a trustworthy
	// Ritz pair; if not, fall back to the dense solver.
	for c := 0; c < k; c++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = vecs[i][c]
		}
		lv := matVec(l, col)
		var resid float64
		for i := 0; i < n; i++ {
			d := lv[i] - vals[c]*col[i]
			resid += d * d
		}
		if math.Sqrt(resid) > 1e-4*float64(n) {
			return nil, nil, false
		}
	}

	return vals, vecs, true
}

// jacobiEigen computes all eigenvalues/eigenvectors of the symmetric matrix
// a using the classic cyclic Jacobi rotation method. Returns eigenvalues
// ascending and eigenvectors as columns of an n x n matrix (vecs[i][c] is
// component i of eigenvector c).
func jacobiEigen(a [][]float64) (vals []float64, vecs [][]float64) {
	n := len(a)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
	}
	v := identity(n)

	const maxSweeps = 100
	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := offDiagonalNorm(m)
		if off < 1e-12 {
			break
		}
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(m[p][q]) < 1e-15 {
					continue
				}
				theta := (m[q][q] - m[p][p]) / (2 * m[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				mpp, mqq, mpq := m[p][p], m[q][q], m[p][q]
				m[p][p] = c*c*mpp - 2*s*c*mpq + s*s*mqq
				m[q][q] = s*s*mpp + 2*s*c*mpq + c*c*mqq
				m[p][q] = 0
				m[q][p] = 0
				for i := 0; i < n; i++ {
					if i != p && i != q {
						mip, miq := m[i][p], m[i][q]
						m[i][p] = c*mip - s*miq
						m[p][i] = m[i][p]
						m[i][q] = s*mip + c*miq
						m[q][i] = m[i][q]
					}
				}
				for i := 0; i < n; i++ {
					vip, viq := v[i][p], v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}

	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = m[i][i]
	}
	order := argsortAscending(diag)

	vals = make([]float64, n)
	vecs = make([][]float64, n)
	for i := range vecs {
		vecs[i] = make([]float64, n)
	}
	for c, idx := range order {
		vals[c] = diag[idx]
		for i := 0; i < n; i++ {
			vecs[i][c] = v[i][idx]
		}
	}
	return vals, vecs
}

// tqli diagonalizes a symmetric tridiagonal matrix given by diagonal d and
// off-diagonal e (length m, e[m-1] unused) using the implicit-shift QL
// algorithm, accumulating the rotations into z (must start as identity).
// Returns false if it fails to converge within a bounded number of
// iterations per eigenvalue.
func tqli(d, e []float64, z [][]float64) bool {
	n := len(d)
	for i := 1; i < n; i++ {
		e[i-1] = e[i]
	}
	e[n-1] = 0

	for l := 0; l < n; l++ {
		iter := 0
		for {
			m := l
			for ; m < n-1; m++ {
				dd := math.Abs(d[m]) + math.Abs(d[m+1])
				if math.Abs(e[m])+dd == dd {
					break
				}
			}
			if m == l {
				break
			}
			iter++
			if iter > 50 {
				return false
			}
			g := (d[l+1] - d[l]) / (2 * e[l])
			r := math.Hypot(g, 1)
			g = d[m] - d[l] + e[l]/(g+math.Copysign(r, g))
			s, c := 1.0, 1.0
			p := 0.0
			for i := m - 1; i >= l; i-- {
				f := s * e[i]
				b := c * e[i]
				r = math.Hypot(f, g)
				e[i+1] = r
				if r == 0 {
					d[i+1] -= p
					e[m] = 0
					break
				}
				s = f / r
				c = g / r
				g = d[i+1] - p
				r = (d[i]-g)*s + 2*c*b
				p = s * r
				d[i+1] = g + p
				g = c*r - b

				for k := 0; k < n; k++ {
					f = z[k][i+1]
					z[k][i+1] = s*z[k][i] + c*f
					z[k][i] = c*z[k][i] - s*f
				}
			}
			if r == 0 && m-1 >= l {
				continue
			}
			d[l] -= p
			e[l] = g
			e[m] = 0
		}
	}
	return true
}

func matVec(m [][]float64, v []float64) []float64 {
	n := len(m)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		row := m[i]
		for j := 0; j < n; j++ {
			sum += row[j] * v[j]
		}
		out[i] = sum
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

func normalize(a []float64) {
	n := norm(a)
	if n == 0 {
		return
	}
	for i := range a {
		a[i] /= n
	}
}

func identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

func offDiagonalNorm(m [][]float64) float64 {
	n := len(m)
	var sum float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += m[i][j] * m[i][j]
		}
	}
	return math.Sqrt(2 * sum)
}

// argsortAscending returns the permutation of indices that sorts vals
// ascending. Ties keep their original relative order (stable).
func argsortAscending(vals []float64) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	// simple stable insertion sort; eigenvalue counts are small (<= a few
	// thousand notes), so O(n^2) here is dominated by the O(n^3) Jacobi
	// sweep it often follows.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && vals[idx[j-1]] > vals[idx[j]]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
	return idx
}

// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// BuildLagMatrix builds the lagged design matrix for one series.
// series: the raw series of length T
// k: lag order
// Returns: (T-k) x k matrix where row t holds [series[t+k-1], ..., series[t]],
// i.e. column j is lag j+1 of the series. The k leading rows of the sample,
// which have insufficient history, are dropped.
func BuildLagMatrix(series []float64, k int) (*mat.Dense, error) {
	if k <= 0 {
		return nil, fmt.Errorf("lag order must be > 0, got %d", k)
	}
	T := len(series)
	if T <= k {
		return nil, fmt.Errorf("need at least k+1 observations: k = %d, T = %d", k, T)
	}

	X := mat.NewDense(T-k, k, nil)
	for t := 0; t < T-k; t++ {
		// lag j of observation t+k is series[t+k-j]
		for j := 1; j <= k; j++ {
			X.Set(t, j-1, series[t+k-j])
		}
	}
	return X, nil
}

// olsSolve computes OLS coefficients for y on X.
// First tries the normal equations B = (X'X)^(-1) X'y; if X'X is singular or
// badly conditioned, falls back to SVD-based minimum-norm least squares.
// Returns the coefficient vector and the residuals y - X*beta.
func olsSolve(X *mat.Dense, y []float64) ([]float64, []float64, error) {
	n, m := X.Dims()
	if len(y) != n {
		return nil, nil, fmt.Errorf("dimension mismatch: X has %d rows, y has %d", n, len(y))
	}

	yVec := mat.NewVecDense(n, y)
	beta := mat.NewVecDense(m, nil)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if errInv := xtxInv.Inverse(&xtx); errInv == nil {
		var xty mat.VecDense
		xty.MulVec(X.T(), yVec)
		beta.MulVec(&xtxInv, &xty)
	} else {
		// Fallback: X'X is singular or badly conditioned.
		var svd mat.SVD
		ok := svd.Factorize(X, mat.SVDThin)
		if !ok {
			return nil, nil, fmt.Errorf("OLS failed: X'X singular and SVD factorization failed: %v", errInv)
		}

		rank := svd.Rank(1e-12)
		if rank == 0 {
			// Numerically all-zero design: minimum-norm solution is beta = 0.
		} else {
			yMat := mat.NewDense(n, 1, nil)
			for t := 0; t < n; t++ {
				yMat.Set(t, 0, y[t])
			}
			var b mat.Dense
			svd.SolveTo(&b, yMat, rank)
			for i := 0; i < m; i++ {
				beta.SetVec(i, b.At(i, 0))
			}
		}
	}

	var yHat mat.VecDense
	yHat.MulVec(X, beta)

	resid := make([]float64, n)
	for t := 0; t < n; t++ {
		resid[t] = y[t] - yHat.AtVec(t)
	}

	coef := make([]float64, m)
	for i := 0; i < m; i++ {
		coef[i] = beta.AtVec(i)
	}
	return coef, resid, nil
}

// residualize partials the controls X out of y, returning the OLS residuals.
func residualize(y []float64, X *mat.Dense) ([]float64, error) {
	_, resid, err := olsSolve(X, y)
	return resid, err
}

// hacLongRunSum computes the Newey-West long-run sum of a score series:
// S = sum_t s_t^2 + 2 * sum_{j=1..bw} w_j * sum_t s_t s_{t-j}
// with Bartlett weights w_j = 1 - j/(bw+1). This is the building block for
// all HAC standard errors in the per-horizon regressions; the bandwidth
// grows with the horizon because the cumulated errors are MA(h) by
// construction.
func hacLongRunSum(s []float64, bw int) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if bw < 0 {
		bw = 0
	}
	if bw >= n {
		bw = n - 1
	}

	S := 0.0
	for t := 0; t < n; t++ {
		S += s[t] * s[t]
	}
	for j := 1; j <= bw; j++ {
		w := 1.0 - float64(j)/float64(bw+1)
		gamma := 0.0
		for t := j; t < n; t++ {
			gamma += s[t] * s[t-j]
		}
		S += 2.0 * w * gamma
	}
	return S
}

// scalarIVStats holds the coefficient and HAC standard error from a
// single-regressor regression on partialled data.
type scalarIVStats struct {
	Coef float64
	SE   float64
}

// scalarHACRegression regresses y on the single regressor z (both already
// partialled against the controls) and computes a Newey-West standard error
// with bandwidth bw.
func scalarHACRegression(y, z []float64, bw int) (scalarIVStats, error) {
	n := len(y)
	if n == 0 || n != len(z) {
		return scalarIVStats{}, fmt.Errorf("dimension mismatch: len(y)=%d, len(z)=%d", len(y), len(z))
	}

	zz := 0.0
	zy := 0.0
	for t := 0; t < n; t++ {
		zz += z[t] * z[t]
		zy += z[t] * y[t]
	}
	if zz <= 0 {
		return scalarIVStats{}, fmt.Errorf("degenerate regressor: sum of squares is %f", zz)
	}

	coef := zy / zz

	// HAC variance of the coefficient from the score series s_t = z_t * e_t
	scores := make([]float64, n)
	for t := 0; t < n; t++ {
		e := y[t] - coef*z[t]
		scores[t] = z[t] * e
	}
	S := hacLongRunSum(scores, bw)

	variance := S / (zz * zz)
	if variance < 0 {
		variance = 0
	}
	return scalarIVStats{Coef: coef, SE: math.Sqrt(variance)}, nil
}

// cumulate returns sum_{j=0..h} series[t+j] for t = 0..n-1. The caller is
// responsible for n+h not exceeding the series length.
func cumulate(series []float64, h, n int) []float64 {
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		s := 0.0
		for j := 0; j <= h; j++ {
			s += series[t+j]
		}
		out[t] = s
	}
	return out
}

// horizonSample holds the partialled series for one horizon.
type horizonSample struct {
	n int
	// degrees of freedom after controls and the single regressor
	dof float64
	// partialled cumulative inflation, cumulative gap, instrument
	cumPi, cumU, z []float64
	// partialled horizon-h levels for the impulse responses
	uLead, piLead []float64
}

// buildHorizonSample assembles and partials the horizon-h regression sample.
// The effective sample runs over t = k..T-1-h: the first k rows are lost to
// lag construction and the last h rows to the forward cumulation.
func buildHorizonSample(ds *Dataset, h, k int) (*horizonSample, error) {
	T := ds.Len()
	n := T - k - h
	m := 2*k + 1 // constant plus k lags each of inflation and the gap
	if n <= m+2 {
		return nil, fmt.Errorf("horizon %d too large for sample: %d usable rows, %d controls", h, n, m)
	}

	lagPi, err := BuildLagMatrix(ds.Inflation, k)
	if err != nil {
		return nil, err
	}
	lagU, err := BuildLagMatrix(ds.UnemploymentGap, k)
	if err != nil {
		return nil, err
	}

	// Controls: [1, pi lags, gap lags], rows t = k..k+n-1
	X := mat.NewDense(n, m, nil)
	for t := 0; t < n; t++ {
		X.Set(t, 0, 1.0)
		for j := 0; j < k; j++ {
			X.Set(t, 1+j, lagPi.At(t, j))
			X.Set(t, 1+k+j, lagU.At(t, j))
		}
	}

	cumPi := cumulate(ds.Inflation[k:], h, n)
	cumU := cumulate(ds.UnemploymentGap[k:], h, n)

	z := make([]float64, n)
	uLead := make([]float64, n)
	piLead := make([]float64, n)
	for t := 0; t < n; t++ {
		z[t] = ds.Instrument[k+t]
		uLead[t] = ds.UnemploymentGap[k+t+h]
		piLead[t] = ds.Inflation[k+t+h]
	}

	hs := &horizonSample{n: n, dof: float64(n - m - 1)}
	if hs.cumPi, err = residualize(cumPi, X); err != nil {
		return nil, fmt.Errorf("partialling cumulative inflation at h=%d: %w", h, err)
	}
	if hs.cumU, err = residualize(cumU, X); err != nil {
		return nil, fmt.Errorf("partialling cumulative gap at h=%d: %w", h, err)
	}
	if hs.z, err = residualize(z, X); err != nil {
		return nil, fmt.Errorf("partialling instrument at h=%d: %w", h, err)
	}
	if hs.uLead, err = residualize(uLead, X); err != nil {
		return nil, fmt.Errorf("partialling gap lead at h=%d: %w", h, err)
	}
	if hs.piLead, err = residualize(piLead, X); err != nil {
		return nil, fmt.Errorf("partialling inflation lead at h=%d: %w", h, err)
	}
	return hs, nil
}

// andersonRubinBand sweeps the candidate grid and returns the weak-instrument
// robust confidence band around the IV point estimate. A candidate b is in
// the confidence set when the instrument coefficient in the regression of
// (cumPi - b*cumU) on z is insignificant at the configured level under a
// Newey-West t test. The band is the hull of the accepted candidates,
// widened if necessary so it always contains the point estimate.
func andersonRubinBand(hs *horizonSample, point float64, grid GridSpec, tCrit float64, bw int) (Band, error) {
	lo := math.Inf(1)
	hi := math.Inf(-1)

	y := make([]float64, hs.n)
	for _, b := range grid.Values() {
		for t := 0; t < hs.n; t++ {
			y[t] = hs.cumPi[t] - b*hs.cumU[t]
		}
		st, err := scalarHACRegression(y, hs.z, bw)
		if err != nil {
			return Band{}, err
		}
		if st.SE <= 0 {
			continue
		}
		if math.Abs(st.Coef/st.SE) <= tCrit {
			if b < lo {
				lo = b
			}
			if b > hi {
				hi = b
			}
		}
	}

	if point < lo {
		lo = point
	}
	if point > hi {
		hi = point
	}
	return Band{Point: point, Lower: lo, Upper: hi}, nil
}

// PhillipsMultiplier runs the full local-projection IV estimation over
// horizons h = 0..opts.Horizon and returns the result table.
//
// For each horizon the conditional multiplier is the 2SLS coefficient from
// regressing cumulative inflation on the cumulative unemployment gap,
// instrumented by the monetary shock, with the lagged controls partialled
// out; its band comes from the Anderson-Rubin grid sweep. The unconditional
// multiplier is plain OLS on the same partialled sample with a HAC band.
// The impulse responses are local projections of the horizon-h levels on the
// instrument, with bands from a seeded wild bootstrap.
func PhillipsMultiplier(ds *Dataset, opts PMOptions) (*PMResult, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("dataset not provided")
	}
	if len(ds.Instrument) != ds.Len() {
		return nil, fmt.Errorf("derived series missing: call deriveSeries after load")
	}
	if opts.Lags <= 0 {
		return nil, fmt.Errorf("lags must be > 0")
	}
	if opts.Horizon < 0 {
		return nil, fmt.Errorf("horizon must be >= 0")
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return nil, fmt.Errorf("confidence level must be in (0,1), got %f", opts.Confidence)
	}
	if opts.Grid.Step <= 0 || opts.Grid.Min >= opts.Grid.Max {
		return nil, fmt.Errorf("invalid candidate grid: [%f, %f] step %f", opts.Grid.Min, opts.Grid.Max, opts.Grid.Step)
	}
	if opts.BootstrapReps <= 0 {
		opts.BootstrapReps = 500
	}

	H := opts.Horizon
	k := opts.Lags
	alpha := 1.0 - opts.Confidence

	rows := make([]PMRow, H+1)
	gapRegs := make([]lpRegression, H+1)
	piRegs := make([]lpRegression, H+1)

	for h := 0; h <= H; h++ {
		hs, err := buildHorizonSample(ds, h, k)
		if err != nil {
			return nil, err
		}

		bw := h + 1 // cumulated errors are MA(h) by construction
		tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: hs.dof}
		tCrit := tDist.Quantile(1.0 - alpha/2.0)

		// Conditional multiplier: 2SLS on partialled data reduces to the
		// ratio of instrument covariances.
		num := 0.0
		den := 0.0
		for t := 0; t < hs.n; t++ {
			num += hs.z[t] * hs.cumPi[t]
			den += hs.z[t] * hs.cumU[t]
		}
		if den == 0 {
			return nil, fmt.Errorf("instrument orthogonal to cumulative gap at h=%d", h)
		}
		point := num / den

		cond, err := andersonRubinBand(hs, point, opts.Grid, tCrit, bw)
		if err != nil {
			return nil, fmt.Errorf("Anderson-Rubin sweep at h=%d: %w", h, err)
		}

		// Unconditional multiplier: OLS of cumulative inflation on the
		// cumulative gap, HAC band.
		uncond, err := scalarHACRegression(hs.cumPi, hs.cumU, bw)
		if err != nil {
			return nil, fmt.Errorf("unconditional regression at h=%d: %w", h, err)
		}

		// First-stage strength: F = t^2 on the instrument in the regression
		// of the cumulative gap on z.
		first, err := scalarHACRegression(hs.cumU, hs.z, bw)
		if err != nil {
			return nil, fmt.Errorf("first-stage regression at h=%d: %w", h, err)
		}
		fStat := 0.0
		if first.SE > 0 {
			tf := first.Coef / first.SE
			fStat = tf * tf
		}
		if math.IsNaN(fStat) || math.IsInf(fStat, 0) {
			fStat = 0
		}

		// Impulse responses: point estimates now, bands from the bootstrap.
		gapStat, err := scalarHACRegression(hs.uLead, hs.z, bw)
		if err != nil {
			return nil, fmt.Errorf("gap projection at h=%d: %w", h, err)
		}
		piStat, err := scalarHACRegression(hs.piLead, hs.z, bw)
		if err != nil {
			return nil, fmt.Errorf("inflation projection at h=%d: %w", h, err)
		}

		gapResid := make([]float64, hs.n)
		piResid := make([]float64, hs.n)
		for t := 0; t < hs.n; t++ {
			gapResid[t] = hs.uLead[t] - gapStat.Coef*hs.z[t]
			piResid[t] = hs.piLead[t] - piStat.Coef*hs.z[t]
		}
		gapRegs[h] = lpRegression{z: hs.z, coef: gapStat.Coef, resid: gapResid}
		piRegs[h] = lpRegression{z: hs.z, coef: piStat.Coef, resid: piResid}

		rows[h] = PMRow{
			Horizon:     h,
			Conditional: cond,
			Unconditional: Band{
				Point: uncond.Coef,
				Lower: uncond.Coef - tCrit*uncond.SE,
				Upper: uncond.Coef + tCrit*uncond.SE,
			},
			FStat:        fStat,
			IRFGap:       Band{Point: gapStat.Coef},
			IRFInflation: Band{Point: piStat.Coef},
		}
	}

	if err := bootstrapIRFBands(rows, gapRegs, piRegs, opts); err != nil {
		return nil, err
	}

	return &PMResult{Rows: rows, Options: opts}, nil
}

// bootstrapQuantile returns the empirical q-quantile of samples (0 <= q <= 1)
// using linear interpolation between order statistics.
func bootstrapQuantile(samples []float64, q float64) float64 {
	n := len(samples)
	if n == 0 {
		return math.NaN()
	}

	tmp := make([]float64, n)
	copy(tmp, samples)
	sort.Float64s(tmp)

	if q <= 0 {
		return tmp[0]
	}
	if q >= 1 {
		return tmp[n-1]
	}

	pos := q * float64(n-1)
	idxBelow := int(math.Floor(pos))
	idxAbove := int(math.Ceil(pos))

	if idxAbove == idxBelow {
		return tmp[idxBelow]
	}

	weight := pos - float64(idxBelow)
	return tmp[idxBelow]*(1.0-weight) + tmp[idxAbove]*weight
}

// bootstrapIRFBands fills in the impulse-response bands using a wild
// (Rademacher) bootstrap: each replication flips the signs of the regression
// residuals, rebuilds the dependent series, and re-estimates the projection
// coefficient. Replications are spread over a worker pool with
// per-replication seeds so the result is independent of scheduling.
func bootstrapIRFBands(rows []PMRow, gapRegs, piRegs []lpRegression, opts PMOptions) error {
	H := len(rows) - 1
	reps := opts.BootstrapReps

	var masterSeed int64
	if opts.Seed != 0 {
		masterSeed = opts.Seed
	} else {
		masterSeed = time.Now().UnixNano()
	}
	masterRng := rand.New(rand.NewSource(masterSeed))

	seeds := make([]int64, reps)
	for i := 0; i < reps; i++ {
		seeds[i] = masterRng.Int63()
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > reps {
		numWorkers = reps
	}

	jobs := make(chan int)
	resultsCh := make(chan bootReplication, reps)

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	worker := func() {
		defer wg.Done()
		for b := range jobs {
			rng := rand.New(rand.NewSource(seeds[b]))

			rep := bootReplication{
				Rep:       b,
				Gap:       make([]float64, H+1),
				Inflation: make([]float64, H+1),
			}

			for h := 0; h <= H; h++ {
				gr := gapRegs[h]
				pr := piRegs[h]
				n := len(gr.z)

				// One Rademacher draw per observation, shared by both
				// projections so the joint resampling is coherent.
				gapNum, gapDen := 0.0, 0.0
				piNum := 0.0
				for t := 0; t < n; t++ {
					eta := 1.0
					if rng.Intn(2) == 0 {
						eta = -1.0
					}
					yGap := gr.coef*gr.z[t] + eta*gr.resid[t]
					yPi := pr.coef*pr.z[t] + eta*pr.resid[t]
					gapNum += gr.z[t] * yGap
					piNum += pr.z[t] * yPi
					gapDen += gr.z[t] * gr.z[t]
				}
				if gapDen > 0 {
					rep.Gap[h] = gapNum / gapDen
					rep.Inflation[h] = piNum / gapDen
				} else {
					rep.Gap[h] = math.NaN()
					rep.Inflation[h] = math.NaN()
				}
			}

			resultsCh <- rep
		}
	}

	for w := 0; w < numWorkers; w++ {
		go worker()
	}

	go func() {
		for b := 0; b < reps; b++ {
			jobs <- b
		}
		close(jobs)
	}()

	// Aggregate indexed by replication so channel arrival order is irrelevant.
	gapDraws := make([][]float64, H+1)
	piDraws := make([][]float64, H+1)
	for h := 0; h <= H; h++ {
		gapDraws[h] = make([]float64, reps)
		piDraws[h] = make([]float64, reps)
	}

	for i := 0; i < reps; i++ {
		rep := <-resultsCh
		for h := 0; h <= H; h++ {
			gapDraws[h][rep.Rep] = rep.Gap[h]
			piDraws[h][rep.Rep] = rep.Inflation[h]
		}
	}

	wg.Wait()
	close(resultsCh)

	alpha := 1.0 - opts.Confidence
	lowerQ := alpha / 2.0
	upperQ := 1.0 - alpha/2.0

	for h := 0; h <= H; h++ {
		gLo := bootstrapQuantile(gapDraws[h], lowerQ)
		gHi := bootstrapQuantile(gapDraws[h], upperQ)
		pLo := bootstrapQuantile(piDraws[h], lowerQ)
		pHi := bootstrapQuantile(piDraws[h], upperQ)

		// The quantile band always brackets the point estimate: the draws are
		// centred on it, but a short bootstrap run can still miss.
		rows[h].IRFGap.Lower = math.Min(gLo, rows[h].IRFGap.Point)
		rows[h].IRFGap.Upper = math.Max(gHi, rows[h].IRFGap.Point)
		rows[h].IRFInflation.Lower = math.Min(pLo, rows[h].IRFInflation.Point)
		rows[h].IRFInflation.Upper = math.Max(pHi, rows[h].IRFInflation.Point)
	}

	return nil
}

// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"bytes"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

// almostEqual compares floats with tolerance
func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// synthDataset builds a synthetic quarterly dataset with a strong instrument:
// the gap loads one-for-one on the shock, and inflation responds to the gap
// with slope -0.5. Useful for recovery and determinism tests.
func synthDataset(T int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))

	ds := &Dataset{
		Dates:             make([]Quarter, T),
		Inflation:         make([]float64, T),
		ExpectedInflation: make([]float64, T),
		UnemploymentGap:   make([]float64, T),
		ShockComponents:   mat.NewDense(T, 3, nil),
	}

	q := Quarter{Year: 1969, Q: 1}
	for t := 0; t < T; t++ {
		ds.Dates[t] = q
		q = q.Next()

		z := rng.NormFloat64()
		u := z + 0.3*rng.NormFloat64()
		pi := -0.5*u + 0.05*rng.NormFloat64()

		ds.UnemploymentGap[t] = u
		ds.Inflation[t] = pi
		ds.ExpectedInflation[t] = 0.8 * pi

		// The instrument is the row sum of the components.
		ds.ShockComponents.Set(t, 0, z/2)
		ds.ShockComponents.Set(t, 1, z/4)
		ds.ShockComponents.Set(t, 2, z/4)
	}

	ds.deriveSeries()
	return ds
}

func testOptions() PMOptions {
	return PMOptions{
		Lags:          2,
		Horizon:       4,
		Grid:          GridSpec{Min: -3, Max: 3, Step: 0.05},
		Confidence:    0.90,
		Seed:          42,
		BootstrapReps: 50,
	}
}

// ============================================================================
// LAG MATRIX TESTS
// ============================================================================

func TestBuildLagMatrix(t *testing.T) {
	series := []float64{10, 20, 30, 40, 50}
	k := 2

	X, err := BuildLagMatrix(series, k)
	if err != nil {
		t.Fatalf("BuildLagMatrix returned error: %v", err)
	}

	rows, cols := X.Dims()
	if rows != len(series)-k {
		t.Errorf("expected %d rows (k leading rows dropped), got %d", len(series)-k, rows)
	}
	if cols != k {
		t.Errorf("expected %d columns, got %d", k, cols)
	}

	// Row 0 describes observation t=2: lag_1 = series[1], lag_2 = series[0]
	want := [][]float64{
		{20, 10},
		{30, 20},
		{40, 30},
	}
	for i := range want {
		for j := range want[i] {
			if !almostEqual(X.At(i, j), want[i][j], 1e-12) {
				t.Errorf("X[%d][%d] = %v, want %v", i, j, X.At(i, j), want[i][j])
			}
		}
	}
}

func TestBuildLagMatrixErrors(t *testing.T) {
	if _, err := BuildLagMatrix([]float64{1, 2, 3}, 0); err == nil {
		t.Error("expected error for lag order 0")
	}
	if _, err := BuildLagMatrix([]float64{1, 2, 3}, -1); err == nil {
		t.Error("expected error for negative lag order")
	}
	if _, err := BuildLagMatrix([]float64{1, 2, 3}, 3); err == nil {
		t.Error("expected error when k >= series length")
	}
}

// ============================================================================
// REGRESSION PRIMITIVE TESTS
// ============================================================================

func TestOLSSolveExactFit(t *testing.T) {
	// y = 1 + 2x, no noise
	n := 10
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		X.Set(i, 0, 1.0)
		X.Set(i, 1, x)
		y[i] = 1.0 + 2.0*x
	}

	beta, resid, err := olsSolve(X, y)
	if err != nil {
		t.Fatalf("olsSolve returned error: %v", err)
	}
	if !almostEqual(beta[0], 1.0, 1e-9) || !almostEqual(beta[1], 2.0, 1e-9) {
		t.Errorf("beta = %v, want [1 2]", beta)
	}
	for i, r := range resid {
		if !almostEqual(r, 0, 1e-9) {
			t.Errorf("residual %d = %v, want 0", i, r)
		}
	}
}

func TestResidualizeOrthogonal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 50
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1.0)
		X.Set(i, 1, rng.NormFloat64())
		X.Set(i, 2, rng.NormFloat64())
		y[i] = rng.NormFloat64()
	}

	resid, err := residualize(y, X)
	if err != nil {
		t.Fatalf("residualize returned error: %v", err)
	}

	// OLS residuals are orthogonal to every column of X
	for j := 0; j < 3; j++ {
		dot := 0.0
		for i := 0; i < n; i++ {
			dot += resid[i] * X.At(i, j)
		}
		if !almostEqual(dot, 0, 1e-6) {
			t.Errorf("residuals not orthogonal to column %d: dot = %v", j, dot)
		}
	}
}

func TestHACLongRunSumNoLags(t *testing.T) {
	s := []float64{1, -2, 3, -4}
	want := 1.0 + 4.0 + 9.0 + 16.0
	got := hacLongRunSum(s, 0)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("hacLongRunSum(bw=0) = %v, want %v", got, want)
	}
}

func TestHACLongRunSumBartlett(t *testing.T) {
	s := []float64{1, 1, 1}
	// bw=1: sum s^2 = 3; first autocovariance sum = 2, weight 1/2
	want := 3.0 + 2.0*0.5*2.0
	got := hacLongRunSum(s, 1)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("hacLongRunSum(bw=1) = %v, want %v", got, want)
	}
}

func TestScalarHACRegressionRecoversCoef(t *testing.T) {
	n := 20
	z := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		z[i] = float64(i%5) - 2.0
		y[i] = 2.0 * z[i]
	}

	st, err := scalarHACRegression(y, z, 2)
	if err != nil {
		t.Fatalf("scalarHACRegression returned error: %v", err)
	}
	if !almostEqual(st.Coef, 2.0, 1e-9) {
		t.Errorf("coefficient = %v, want 2", st.Coef)
	}
	if !almostEqual(st.SE, 0, 1e-9) {
		t.Errorf("standard error = %v, want 0 for an exact fit", st.SE)
	}
}

func TestScalarHACRegressionDegenerate(t *testing.T) {
	z := []float64{0, 0, 0}
	y := []float64{1, 2, 3}
	if _, err := scalarHACRegression(y, z, 0); err == nil {
		t.Error("expected error for all-zero regressor")
	}
}

func TestCumulate(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	got := cumulate(series, 2, 3)
	want := []float64{6, 9, 12} // 1+2+3, 2+3+4, 3+4+5
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("cumulate[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGridValues(t *testing.T) {
	g := GridSpec{Min: -1, Max: 1, Step: 0.5}
	vals := g.Values()
	want := []float64{-1, -0.5, 0, 0.5, 1}
	if len(vals) != len(want) {
		t.Fatalf("grid has %d values, want %d", len(vals), len(want))
	}
	for i := range want {
		if !almostEqual(vals[i], want[i], 1e-12) {
			t.Errorf("grid[%d] = %v, want %v", i, vals[i], want[i])
		}
	}
}

// ============================================================================
// BOOTSTRAP QUANTILE TESTS
// ============================================================================

func TestBootstrapQuantile(t *testing.T) {
	samples := []float64{5, 1, 4, 2, 3}

	if got := bootstrapQuantile(samples, 0.5); !almostEqual(got, 3, 1e-12) {
		t.Errorf("median = %v, want 3", got)
	}
	if got := bootstrapQuantile(samples, 0); !almostEqual(got, 1, 1e-12) {
		t.Errorf("q=0 = %v, want 1", got)
	}
	if got := bootstrapQuantile(samples, 1); !almostEqual(got, 5, 1e-12) {
		t.Errorf("q=1 = %v, want 5", got)
	}
	if got := bootstrapQuantile([]float64{1, 2}, 0.5); !almostEqual(got, 1.5, 1e-12) {
		t.Errorf("interpolated median = %v, want 1.5", got)
	}
	if got := bootstrapQuantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("empty samples should give NaN, got %v", got)
	}
}

// ============================================================================
// PHILLIPS MULTIPLIER TESTS
// ============================================================================

func TestPhillipsMultiplierHorizons(t *testing.T) {
	ds := synthDataset(200, 1)
	opts := testOptions()

	res, err := PhillipsMultiplier(ds, opts)
	if err != nil {
		t.Fatalf("PhillipsMultiplier returned error: %v", err)
	}

	if len(res.Rows) != opts.Horizon+1 {
		t.Fatalf("result has %d rows, want %d", len(res.Rows), opts.Horizon+1)
	}
	for h, row := range res.Rows {
		if row.Horizon != h {
			t.Errorf("row %d has horizon %d; the horizon column must be gap-free", h, row.Horizon)
		}
	}
}

func TestPhillipsMultiplierBands(t *testing.T) {
	ds := synthDataset(200, 2)
	opts := testOptions()

	res, err := PhillipsMultiplier(ds, opts)
	if err != nil {
		t.Fatalf("PhillipsMultiplier returned error: %v", err)
	}

	check := func(h int, name string, b Band) {
		if b.Lower > b.Point || b.Point > b.Upper {
			t.Errorf("h=%d %s: want lower <= point <= upper, got [%v, %v, %v]",
				h, name, b.Lower, b.Point, b.Upper)
		}
	}
	for _, row := range res.Rows {
		check(row.Horizon, "conditional", row.Conditional)
		check(row.Horizon, "unconditional", row.Unconditional)
		check(row.Horizon, "irf gap", row.IRFGap)
		check(row.Horizon, "irf inflation", row.IRFInflation)
		if row.FStat < 0 {
			t.Errorf("h=%d: negative F statistic %v", row.Horizon, row.FStat)
		}
	}
}

func TestPhillipsMultiplierRecoversSlope(t *testing.T) {
	// Strong instrument, tight noise: the h=0 conditional multiplier is the
	// IV estimate of the -0.5 slope between inflation and the gap.
	ds := synthDataset(400, 3)
	opts := testOptions()

	res, err := PhillipsMultiplier(ds, opts)
	if err != nil {
		t.Fatalf("PhillipsMultiplier returned error: %v", err)
	}

	got := res.Rows[0].Conditional.Point
	if !almostEqual(got, -0.5, 0.1) {
		t.Errorf("h=0 conditional multiplier = %v, want -0.5 +- 0.1", got)
	}
}

func TestPhillipsMultiplierStrongFirstStage(t *testing.T) {
	ds := synthDataset(400, 4)
	opts := testOptions()

	res, err := PhillipsMultiplier(ds, opts)
	if err != nil {
		t.Fatalf("PhillipsMultiplier returned error: %v", err)
	}

	// The gap loads one-for-one on the instrument, so the h=0 first stage
	// must be far above the conventional weak-instrument threshold.
	if res.Rows[0].FStat < 10 {
		t.Errorf("h=0 first-stage F = %v, want > 10 for a strong instrument", res.Rows[0].FStat)
	}
}

func TestPhillipsMultiplierDeterminism(t *testing.T) {
	opts := testOptions()

	dir := t.TempDir()
	paths := [2]string{
		filepath.Join(dir, "run1.csv"),
		filepath.Join(dir, "run2.csv"),
	}

	for i, path := range paths {
		ds := synthDataset(200, 9)
		res, err := PhillipsMultiplier(ds, opts)
		if err != nil {
			t.Fatalf("run %d: PhillipsMultiplier returned error: %v", i+1, err)
		}
		if err := res.WriteCSV(path); err != nil {
			t.Fatalf("run %d: WriteCSV returned error: %v", i+1, err)
		}
	}

	a, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same seed and input must produce a byte-identical result table")
	}
}

func TestPhillipsMultiplierValidation(t *testing.T) {
	ds := synthDataset(100, 5)

	bad := []PMOptions{
		{Lags: 0, Horizon: 4, Grid: GridSpec{-3, 3, 0.1}, Confidence: 0.9},
		{Lags: 2, Horizon: -1, Grid: GridSpec{-3, 3, 0.1}, Confidence: 0.9},
		{Lags: 2, Horizon: 4, Grid: GridSpec{-3, 3, 0.1}, Confidence: 1.5},
		{Lags: 2, Horizon: 4, Grid: GridSpec{3, -3, 0.1}, Confidence: 0.9},
		{Lags: 2, Horizon: 4, Grid: GridSpec{-3, 3, 0}, Confidence: 0.9},
		{Lags: 2, Horizon: 200, Grid: GridSpec{-3, 3, 0.1}, Confidence: 0.9}, // horizon beyond sample
	}
	for i, opts := range bad {
		if _, err := PhillipsMultiplier(ds, opts); err == nil {
			t.Errorf("case %d: expected error for options %+v", i, opts)
		}
	}

	if _, err := PhillipsMultiplier(nil, testOptions()); err == nil {
		t.Error("expected error for nil dataset")
	}
}

func TestDeriveSeriesDeterministic(t *testing.T) {
	ds := synthDataset(50, 6)

	first := make([]float64, len(ds.Instrument))
	copy(first, ds.Instrument)
	firstSurprise := make([]float64, len(ds.InflationSurprise))
	copy(firstSurprise, ds.InflationSurprise)

	// Re-deriving from the same raw columns must reproduce the series exactly.
	ds.deriveSeries()
	for t2 := range first {
		if ds.Instrument[t2] != first[t2] {
			t.Fatalf("instrument not deterministic at %d", t2)
		}
		if ds.InflationSurprise[t2] != firstSurprise[t2] {
			t.Fatalf("inflation surprise not deterministic at %d", t2)
		}
	}
}

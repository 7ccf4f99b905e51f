// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Quarter identifies one quarterly period, e.g. 1969Q1.
type Quarter struct {
	Year int
	Q    int
}

// Next returns the quarter immediately after q.
func (q Quarter) Next() Quarter {
	if q.Q >= 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// Value converts the quarter to a fractional year (1969Q1 -> 1969.00).
func (q Quarter) Value() float64 {
	return float64(q.Year) + float64(q.Q-1)/4.0
}

func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.Year, q.Q)
}

// Dataset is the quarterly observation table. Raw columns come straight from
// the input file; derived columns are filled in by deriveSeries after load.
type Dataset struct {
	// Raw columns
	Dates             []Quarter
	Inflation         []float64
	ExpectedInflation []float64
	UnemploymentGap   []float64
	// T x 3 matrix of monetary shock components
	ShockComponents *mat.Dense

	// Derived columns
	// Instrument is the row sum of the three shock components
	Instrument []float64
	// InflationSurprise = Inflation - ExpectedInflation
	InflationSurprise []float64
	// Time is the fractional-year index (for plotting)
	Time []float64
}

// Len returns the number of quarterly observations.
func (d *Dataset) Len() int { return len(d.Dates) }

// GridSpec describes the sweep of candidate multiplier values used for the
// Anderson-Rubin confidence sets.
type GridSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// Values expands the grid into the list of candidate values, endpoints included.
func (g GridSpec) Values() []float64 {
	n := int((g.Max-g.Min)/g.Step+1e-9) + 1
	vals := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		vals = append(vals, g.Min+float64(i)*g.Step)
	}
	return vals
}

// PMOptions collects the estimation parameters.
type PMOptions struct {
	// Number of lags of inflation and the unemployment gap used as controls
	Lags int
	// Maximum forecast horizon H; the result table has rows h = 0..H
	Horizon int
	// Candidate multiplier values for the Anderson-Rubin sweep
	Grid GridSpec
	// Confidence level for all bands, e.g. 0.90
	Confidence float64
	// RNG seed for the bootstrap (if 0, a time-based seed is used)
	Seed int64
	// Number of wild-bootstrap replications for the impulse response bands
	BootstrapReps int
}

// Band holds a point estimate with its confidence bounds.
type Band struct {
	Point float64
	Lower float64
	Upper float64
}

// PMRow is one row of the result table, for a single horizon.
type PMRow struct {
	Horizon int

	// Conditional multiplier (IV, Anderson-Rubin band)
	Conditional Band
	// Unconditional multiplier (OLS, HAC band)
	Unconditional Band
	// First-stage F statistic on the instrument
	FStat float64

	// Impulse response of the unemployment gap to the monetary shock
	IRFGap Band
	// Impulse response of inflation to the monetary shock
	IRFInflation Band
}

// PMResult is the full result table, one row per horizon. Produced once by
// PhillipsMultiplier and never mutated afterwards.
type PMResult struct {
	Rows    []PMRow
	Options PMOptions
}

// lpRegression holds the pieces of one partialled local-projection regression
// that the bootstrap stage needs to re-draw bands: the partialled instrument,
// the point coefficient, and the regression residuals.
type lpRegression struct {
	z     []float64
	coef  float64
	resid []float64
}

// bootReplication carries the impulse-response draws from a single bootstrap
// replication back to the aggregator. Gap[h] and Inflation[h] are the
// re-drawn coefficients at horizon h.
type bootReplication struct {
	Rep       int
	Gap       []float64
	Inflation []float64
}

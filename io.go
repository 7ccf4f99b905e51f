// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

// Expected column schema of the input files. Matching is case-insensitive.
const (
	colDate              = "date"
	colInflation         = "inflation"
	colExpectedInflation = "expected_inflation"
	colUnemploymentGap   = "unemployment_gap"
	colShock1            = "shock_1"
	colShock2            = "shock_2"
	colShock3            = "shock_3"
)

var requiredColumns = []string{
	colDate,
	colInflation,
	colExpectedInflation,
	colUnemploymentGap,
	colShock1,
	colShock2,
	colShock3,
}

// LoadDataset reads the observation table from a spreadsheet (.xlsx) or CSV
// file, validates the quarterly index, and fills in the derived series.
func LoadDataset(path string) (*Dataset, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	case ".csv":
		rows, err = readCSVRows(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .xlsx or .csv)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	ds, err := datasetFromRows(rows, path)
	if err != nil {
		return nil, err
	}
	if err := validateQuarterlyIndex(ds.Dates); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.deriveSeries()
	return ds, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", path, len(rows)+1, err)
		}
		// Skip completely empty lines
		if len(record) == 1 && record[0] == "" {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}

	// Drop trailing all-empty rows that spreadsheets often carry.
	out := rows[:0]
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out, nil
}

// datasetFromRows turns a header row plus data rows into a Dataset.
func datasetFromRows(rows [][]string, path string) (*Dataset, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: need a header row and at least one data row", path)
	}

	// Map column name -> index, case-insensitive.
	colIdx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := colIdx[name]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, name)
		}
	}

	T := len(rows) - 1
	ds := &Dataset{
		Dates:             make([]Quarter, T),
		Inflation:         make([]float64, T),
		ExpectedInflation: make([]float64, T),
		UnemploymentGap:   make([]float64, T),
		ShockComponents:   mat.NewDense(T, 3, nil),
	}

	cell := func(row []string, name string) (string, error) {
		idx := colIdx[name]
		if idx >= len(row) {
			return "", fmt.Errorf("column %q missing", name)
		}
		return strings.TrimSpace(row[idx]), nil
	}
	numeric := func(row []string, name string) (float64, error) {
		s, err := cell(row, name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: parse %q: %w", name, s, err)
		}
		return v, nil
	}

	for t := 0; t < T; t++ {
		row := rows[t+1]
		rowErr := func(err error) error {
			return fmt.Errorf("%s row %d: %w", path, t+2, err)
		}

		dateStr, err := cell(row, colDate)
		if err != nil {
			return nil, rowErr(err)
		}
		q, err := ParseQuarter(dateStr)
		if err != nil {
			return nil, rowErr(err)
		}
		ds.Dates[t] = q

		if ds.Inflation[t], err = numeric(row, colInflation); err != nil {
			return nil, rowErr(err)
		}
		if ds.ExpectedInflation[t], err = numeric(row, colExpectedInflation); err != nil {
			return nil, rowErr(err)
		}
		if ds.UnemploymentGap[t], err = numeric(row, colUnemploymentGap); err != nil {
			return nil, rowErr(err)
		}
		for j, name := range []string{colShock1, colShock2, colShock3} {
			v, err := numeric(row, name)
			if err != nil {
				return nil, rowErr(err)
			}
			ds.ShockComponents.Set(t, j, v)
		}
	}

	return ds, nil
}

// ParseQuarter parses a quarterly date. Accepts "1969Q1" (and lowercase q),
// or a fractional year like "1969.25" as written out by spreadsheet exports.
func ParseQuarter(s string) (Quarter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quarter{}, fmt.Errorf("empty date")
	}

	upper := strings.ToUpper(s)
	if i := strings.IndexByte(upper, 'Q'); i > 0 {
		year, err := strconv.Atoi(upper[:i])
		if err != nil {
			return Quarter{}, fmt.Errorf("parse quarter %q: %w", s, err)
		}
		q, err := strconv.Atoi(upper[i+1:])
		if err != nil {
			return Quarter{}, fmt.Errorf("parse quarter %q: %w", s, err)
		}
		if q < 1 || q > 4 {
			return Quarter{}, fmt.Errorf("parse quarter %q: quarter must be 1-4", s)
		}
		return Quarter{Year: year, Q: q}, nil
	}

	// Fractional-year fallback: 1969.25 -> 1969Q2
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Quarter{}, fmt.Errorf("parse quarter %q: %w", s, err)
	}
	year := int(math.Floor(v))
	frac := v - float64(year)
	q := int(math.Round(frac*4)) + 1
	if q < 1 || q > 4 {
		return Quarter{}, fmt.Errorf("parse quarter %q: fraction does not land on a quarter", s)
	}
	return Quarter{Year: year, Q: q}, nil
}

// validateQuarterlyIndex checks that the time index is strictly increasing
// and gap-free at quarterly frequency.
func validateQuarterlyIndex(dates []Quarter) error {
	for t := 1; t < len(dates); t++ {
		want := dates[t-1].Next()
		if dates[t] != want {
			return fmt.Errorf("time index broken at row %d: have %s after %s, want %s",
				t+1, dates[t], dates[t-1], want)
		}
	}
	return nil
}

// deriveSeries fills in the instrument sum, the inflation surprise, and the
// fractional-year time index. Pure functions of the raw columns.
func (d *Dataset) deriveSeries() {
	T := d.Len()
	d.Instrument = make([]float64, T)
	d.InflationSurprise = make([]float64, T)
	d.Time = make([]float64, T)

	for t := 0; t < T; t++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			sum += d.ShockComponents.At(t, j)
		}
		d.Instrument[t] = sum
		d.InflationSurprise[t] = d.Inflation[t] - d.ExpectedInflation[t]
		d.Time[t] = d.Dates[t].Value()
	}
}

// WriteCSV writes the result table in wide format, one row per horizon.
func (r *PMResult) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Horizon",
		"PM", "PM_Lower", "PM_Upper",
		"PM_OLS", "PM_OLS_Lower", "PM_OLS_Upper",
		"FStat",
		"IRF_Gap", "IRF_Gap_Lower", "IRF_Gap_Upper",
		"IRF_Inflation", "IRF_Inflation_Lower", "IRF_Inflation_Upper",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range r.Rows {
		record := []string{
			fmt.Sprintf("%d", row.Horizon),
			fmt.Sprintf("%f", row.Conditional.Point),
			fmt.Sprintf("%f", row.Conditional.Lower),
			fmt.Sprintf("%f", row.Conditional.Upper),
			fmt.Sprintf("%f", row.Unconditional.Point),
			fmt.Sprintf("%f", row.Unconditional.Lower),
			fmt.Sprintf("%f", row.Unconditional.Upper),
			fmt.Sprintf("%f", row.FStat),
			fmt.Sprintf("%f", row.IRFGap.Point),
			fmt.Sprintf("%f", row.IRFGap.Lower),
			fmt.Sprintf("%f", row.IRFGap.Upper),
			fmt.Sprintf("%f", row.IRFInflation.Point),
			fmt.Sprintf("%f", row.IRFInflation.Lower),
			fmt.Sprintf("%f", row.IRFInflation.Upper),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// Summary prints the result table to stdout as a formatted table.
func (r *PMResult) Summary() {
	fmt.Println("        Phillips Multiplier Estimates        ")
	fmt.Printf("Lags: %d   Horizon: %d   Confidence: %.0f%%\n",
		r.Options.Lags, r.Options.Horizon, r.Options.Confidence*100)
	fmt.Println()

	fmt.Printf("%3s | %9s [%9s, %9s] | %9s | %9s | %9s | %9s\n",
		"h", "PM", "lower", "upper", "PM (OLS)", "F-stat", "IRF u", "IRF pi")
	fmt.Println(strings.Repeat("-", 92))

	for _, row := range r.Rows {
		fmt.Printf("%3d | %9.4f [%9.4f, %9.4f] | %9.4f | %9.3f | %9.4f | %9.4f\n",
			row.Horizon,
			row.Conditional.Point, row.Conditional.Lower, row.Conditional.Upper,
			row.Unconditional.Point,
			row.FStat,
			row.IRFGap.Point,
			row.IRFInflation.Point)
	}
	fmt.Println()
}

// PrintDataset prints a short description of the loaded sample.
func PrintDataset(ds *Dataset) {
	T := ds.Len()
	if T == 0 {
		fmt.Println("empty dataset")
		return
	}
	fmt.Printf("Sample: %s to %s (%d quarters)\n", ds.Dates[0], ds.Dates[T-1], T)
	fmt.Printf("Columns: %s\n", strings.Join(requiredColumns, ", "))
}

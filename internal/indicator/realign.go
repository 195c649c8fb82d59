package indicator

import "zenigh/internal/model"

// Realign gathers index i of every indicator's output series into one
// per-bar value map, producing n maps for a length-n input series.
// Single-output indicators contribute a scalar; multi-output indicators a
// nested record. Absent values (warm-up) appear as explicit nulls so
// downstream consumers can distinguish "not yet computed" from zero.
func Realign(results map[string]Result, n int) []model.IndicatorValues {
	perBar := make([]model.IndicatorValues, n)
	for i := range perBar {
		values := make(model.IndicatorValues, len(results))
		for key, result := range results {
			if result.Scalar() {
				values[key] = at(result["values"], i)
				continue
			}
			record := make(map[string]*float64, len(result))
			for name, series := range result {
				record[name] = at(series, i)
			}
			values[key] = record
		}
		perBar[i] = values
	}
	return perBar
}

func at(s Series, i int) *float64 {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

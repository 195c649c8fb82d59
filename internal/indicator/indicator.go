// Package indicator computes technical indicators over batched OHLCV series.
//
// A fixed registry maps function names to implementations of the Indicator
// interface; each implementation declares which input channels it consumes
// (close-only, high/low/close, or close+volume) and its default parameters.
// The math itself is delegated to go-talib. Raw outputs carry NaN for
// warm-up positions; the engine translates NaN to an explicit absent marker
// (nil) before results cross the package boundary, so callers only ever see
// "present" or "absent", never NaN.
package indicator

import (
	"fmt"
	"math"
)

// ChannelSet declares which input series an indicator consumes.
type ChannelSet int

const (
	// CloseOnly consumes the close series.
	CloseOnly ChannelSet = iota
	// HighLowClose consumes three aligned series of equal length.
	HighLowClose
	// CloseVolume consumes the close and volume series, equal length.
	CloseVolume
)

func (c ChannelSet) String() string {
	switch c {
	case CloseOnly:
		return "close"
	case HighLowClose:
		return "hlc"
	case CloseVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// Inputs holds the candidate input channels for a computation. Channels an
// indicator does not require are ignored; channels it does require must be
// non-empty and aligned with Close.
type Inputs struct {
	Close  []float64
	High   []float64
	Low    []float64
	Volume []float64
}

// Series is one sanitized output channel: nil marks a position where the
// windowed computation had insufficient history (warm-up) or produced a
// non-finite value.
type Series []*float64

// Result maps output names to sanitized series. Single-output indicators use
// the single name "values"; multi-output indicators use their channel names
// (e.g. MACD → macd, signal, histogram). Every series has the input length.
type Result map[string]Series

// Scalar reports whether r is a single-output result.
func (r Result) Scalar() bool {
	_, ok := r["values"]
	return ok && len(r) == 1
}

// Config selects an indicator function and overrides its default parameters.
// An empty Function falls back to the config's key.
type Config struct {
	Function string             `json:"function"`
	Params   map[string]float64 `json:"params,omitempty"`
}

// Indicator is implemented once per supported indicator and registered into
// the engine's immutable lookup table at startup.
type Indicator interface {
	// Kind returns the function name, e.g. "EMA".
	Kind() string
	// Channels returns the required input channel set.
	Channels() ChannelSet
	// Defaults returns the default parameter mapping.
	Defaults() map[string]float64
	// Compute runs the indicator over the inputs. Outputs are raw: equal
	// length to the input close series, NaN at warm-up positions.
	Compute(in Inputs, params map[string]float64) (map[string][]float64, error)
}

// ConfigError reports a misconfigured request: an unknown indicator, a
// missing required channel, or an empty input series.
type ConfigError struct {
	Key    string // indicator key the caller asked for
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("indicator %s: %s", e.Key, e.Reason)
}

// ComputeError reports a failure inside an indicator's compute function,
// e.g. an invalid parameter range.
type ComputeError struct {
	Key string
	Err error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("indicator %s: compute failed: %v", e.Key, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// intParam extracts a positive integer parameter.
func intParam(params map[string]float64, name string) (int, error) {
	v, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	n := int(v)
	if float64(n) != v || n < 1 {
		return 0, fmt.Errorf("parameter %q must be a positive integer, got %v", name, v)
	}
	return n, nil
}

// floatParam extracts a float parameter.
func floatParam(params map[string]float64, name string) (float64, error) {
	v, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	return v, nil
}

// markWarmup overwrites the first lookback positions with NaN. go-talib
// zero-fills its warm-up region, which would be indistinguishable from a
// computed zero downstream.
func markWarmup(out []float64, lookback int) []float64 {
	if lookback > len(out) {
		lookback = len(out)
	}
	for i := 0; i < lookback; i++ {
		out[i] = math.NaN()
	}
	return out
}

// nanSeries returns a length-n series that is entirely warm-up.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// sanitize translates a raw series into the absent-marker representation.
// NaN and infinities become nil; finite values are kept as-is.
func sanitize(raw []float64) Series {
	out := make(Series, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

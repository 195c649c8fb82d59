package indicator

import "github.com/markcheno/go-talib"

// Volume indicators: OBV.

// OBV is on-balance volume. It has no warm-up: the first position is the
// first bar's volume.
type OBV struct{}

func (OBV) Kind() string                 { return "OBV" }
func (OBV) Channels() ChannelSet         { return CloseVolume }
func (OBV) Defaults() map[string]float64 { return map[string]float64{} }

func (OBV) Compute(in Inputs, params map[string]float64) (map[string][]float64, error) {
	return map[string][]float64{"values": talib.Obv(in.Close, in.Volume)}, nil
}

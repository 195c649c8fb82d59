package indicator

import "zenigh/internal/model"

// InputsFromBars flattens bars into aligned channel slices. The volume
// channel is offered only when every bar carries a volume; a gap anywhere
// makes the whole channel unusable, and volume-dependent indicators then
// fail their own keys instead of seeing fabricated zeros.
func InputsFromBars(bars []model.Bar) Inputs {
	in := Inputs{
		Close: make([]float64, len(bars)),
		High:  make([]float64, len(bars)),
		Low:   make([]float64, len(bars)),
	}
	volume := make([]float64, len(bars))
	haveVolume := len(bars) > 0
	for i, bar := range bars {
		in.Close[i] = bar.Close
		in.High[i] = bar.High
		in.Low[i] = bar.Low
		if bar.Volume == nil {
			haveVolume = false
		} else {
			volume[i] = float64(*bar.Volume)
		}
	}
	if haveVolume {
		in.Volume = volume
	}
	return in
}

package provider

import (
	"context"
	"log/slog"
	"time"

	"zenigh/internal/model"
)

// FetchAll fetches every page of bars for one (start, end, timeframe) window
// and merges the per-symbol lists into a single accumulator, concatenated in
// page order. Pages are issued strictly sequentially because each request
// depends on the prior page's continuation token.
//
// Any page failure aborts the whole fetch; bars accumulated from earlier
// pages are discarded. There is no page-count ceiling: a provider that keeps
// returning a token keeps the loop running until the caller's context
// expires.
func FetchAll(ctx context.Context, p BarProvider, start, end time.Time, tf model.Timeframe) (map[string][]RawBar, error) {
	all := make(map[string][]RawBar)
	pageToken := ""
	pages := 0

	for {
		page, err := p.GetBars(ctx, PageRequest{
			Start:     start,
			End:       end,
			Timeframe: tf,
			PageToken: pageToken,
		})
		if err != nil {
			return nil, err
		}

		for symbol, bars := range page.Bars {
			all[symbol] = append(all[symbol], bars...)
		}

		pages++
		pageToken = page.NextPageToken
		if pageToken == "" {
			slog.Debug("fetch complete", "timeframe", string(tf), "pages", pages)
			return all, nil
		}
		slog.Debug("fetched page, continuing", "timeframe", string(tf), "page", pages)
	}
}

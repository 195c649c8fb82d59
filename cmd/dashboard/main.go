// Terminal dashboard over the stored market data: a bar table and an
// indicator table per symbol, refreshed from SQLite on an interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"zenigh/internal/model"
	sqlitestore "zenigh/internal/store/sqlite"
)

var (
	dbPath    = flag.String("db", "data/market.db", "sqlite database path")
	symbols   = flag.String("symbols", "SPY", "comma-separated symbols")
	timeframe = flag.String("tf", "5T", "timeframe")
	interval  = flag.Duration("interval", 5*time.Second, "refresh interval")
)

func main() {
	flag.Parse()

	tf := model.Timeframe(*timeframe)
	if !tf.Valid() {
		log.Fatalf("[dashboard] unknown timeframe %q", *timeframe)
	}
	symbolList := strings.Split(*symbols, ",")
	for i := range symbolList {
		symbolList[i] = strings.ToUpper(strings.TrimSpace(symbolList[i]))
	}

	store, err := sqlitestore.Open(sqlitestore.Config{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[dashboard] sqlite open failed: %v", err)
	}
	defer store.Close()

	app := tview.NewApplication()
	market := tview.NewTable().SetBorders(false).SetFixed(1, 0)
	indicators := tview.NewTable().SetBorders(false).SetFixed(1, 0)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(market, 0, 1, true).
		AddItem(indicators, 0, 1, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' || event.Key() == tcell.KeyEscape {
			app.Stop()
			return nil
		}
		return event
	})

	refresh := func() {
		drawMarket(market, store, symbolList, tf)
		drawIndicators(indicators, store, symbolList, tf)
	}
	refresh()

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			app.QueueUpdateDraw(refresh)
		}
	}()

	if err := app.SetRoot(layout, true).Run(); err != nil {
		log.Fatalf("[dashboard] %v", err)
	}
}

func header(table *tview.Table, cols []string) {
	for c, name := range cols {
		table.SetCell(0, c, tview.NewTableCell(name).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1))
	}
}

// drawMarket renders the latest bar per symbol.
func drawMarket(table *tview.Table, store *sqlitestore.Store, symbols []string, tf model.Timeframe) {
	table.Clear()
	header(table, []string{"symbol", "ts", "open", "high", "low", "close", "change", "volume", "vwap"})

	row := 1
	for _, symbol := range symbols {
		bars, err := store.ReadBars(context.Background(), symbol, tf)
		if err != nil || len(bars) == 0 {
			table.SetCell(row, 0, tview.NewTableCell(symbol))
			table.SetCell(row, 1, tview.NewTableCell("no data"))
			row++
			continue
		}
		last := bars[len(bars)-1]
		change := 0.0
		if len(bars) > 1 {
			change = last.Close - bars[len(bars)-2].Close
		}
		changeColor := tcell.ColorGreen
		if change < 0 {
			changeColor = tcell.ColorRed
		}

		table.SetCell(row, 0, tview.NewTableCell(symbol))
		table.SetCell(row, 1, tview.NewTableCell(last.Timestamp.UTC().Format("15:04:05")))
		table.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%.2f", last.Open)))
		table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%.2f", last.High)))
		table.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%.2f", last.Low)))
		table.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%.2f", last.Close)).SetTextColor(changeColor))
		table.SetCell(row, 6, tview.NewTableCell(fmt.Sprintf("%+.2f", change)).SetTextColor(changeColor))
		table.SetCell(row, 7, tview.NewTableCell(fmtVolume(last.Volume)))
		table.SetCell(row, 8, tview.NewTableCell(fmtFloat(last.VWAP)))
		row++
	}
}

// drawIndicators renders the latest snapshot values per symbol.
func drawIndicators(table *tview.Table, store *sqlitestore.Store, symbols []string, tf model.Timeframe) {
	table.Clear()
	header(table, []string{"symbol", "EMA 9", "SMA 20", "RSI 14", "MACD", "Signal", "Histogram"})

	row := 1
	for _, symbol := range symbols {
		snaps, err := store.ReadSnapshots(context.Background(), symbol, tf)
		if err != nil || len(snaps) == 0 {
			table.SetCell(row, 0, tview.NewTableCell(symbol))
			table.SetCell(row, 1, tview.NewTableCell("--"))
			row++
			continue
		}
		last := snaps[len(snaps)-1].Indicators

		table.SetCell(row, 0, tview.NewTableCell(symbol))
		table.SetCell(row, 1, tview.NewTableCell(fmtValue(last["EMA9"])))
		table.SetCell(row, 2, tview.NewTableCell(fmtValue(last["SMA20"])))
		table.SetCell(row, 3, tview.NewTableCell(fmtValue(last["RSI14"])))
		table.SetCell(row, 4, tview.NewTableCell(fmtRecord(last["MACD"], "macd")))
		table.SetCell(row, 5, tview.NewTableCell(fmtRecord(last["MACD"], "signal")))
		table.SetCell(row, 6, tview.NewTableCell(fmtRecord(last["MACD"], "histogram")))
		row++
	}
}

// fmtValue formats a scalar indicator value as read back from the store.
func fmtValue(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "--"
	}
	return fmt.Sprintf("%.2f", f)
}

// fmtRecord extracts one field of a multi-output indicator value.
func fmtRecord(v any, field string) string {
	record, ok := v.(map[string]any)
	if !ok {
		return "--"
	}
	return fmtValue(record[field])
}

func fmtVolume(v *int64) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%d", *v)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%.2f", *v)
}

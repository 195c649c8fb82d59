package alpaca

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zenigh/internal/model"
	"zenigh/internal/provider"
)

func testWindow() (time.Time, time.Time) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 3)
}

func TestGetBars_RequestShape(t *testing.T) {
	var gotQuery map[string]string
	var gotKey, gotSecret string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		gotKey = r.Header.Get("APCA-API-KEY-ID")
		gotSecret = r.Header.Get("APCA-API-SECRET-KEY")
		w.Write([]byte(`{"bars":{"SPY":[{"t":"2024-01-02T09:30:00Z","o":470.1,"h":470.5,"l":469.9,"c":470.3,"v":120000,"n":900,"vw":470.2}]}}`))
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL: srv.URL,
		APIKey:  "key-id", APISecret: "key-secret",
		Symbols: []string{"SPY", "QQQ"},
	})

	start, end := testWindow()
	page, err := c.GetBars(context.Background(), provider.PageRequest{
		Start: start, End: end, Timeframe: model.Timeframe5Min, PageToken: "tok-1",
	})
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}

	if gotKey != "key-id" || gotSecret != "key-secret" {
		t.Errorf("auth headers not set: key=%q secret=%q", gotKey, gotSecret)
	}
	want := map[string]string{
		"symbols":    "SPY,QQQ",
		"timeframe":  "5Min",
		"limit":      "10000",
		"adjustment": "raw",
		"feed":       "iex",
		"sort":       "asc",
		"page_token": "tok-1",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s: got %q, want %q", k, gotQuery[k], v)
		}
	}

	bars := page.Bars["SPY"]
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	b := bars[0]
	if b.Timestamp != "2024-01-02T09:30:00Z" || b.Close != 470.3 {
		t.Errorf("unexpected bar decode: %+v", b)
	}
	if b.Volume == nil || *b.Volume != 120000 {
		t.Errorf("expected volume 120000, got %v", b.Volume)
	}
	if b.VWAP == nil || *b.VWAP != 470.2 {
		t.Errorf("expected vwap 470.2, got %v", b.VWAP)
	}
}

func TestGetBars_OmittedFieldsStayNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Minimal bar: no v, n, vw.
		w.Write([]byte(`{"bars":{"SPY":[{"t":"2024-01-02T09:30:00Z","o":1,"h":2,"l":0.5,"c":1.5}]},"next_page_token":"more"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Symbols: []string{"SPY"}})
	start, end := testWindow()
	page, err := c.GetBars(context.Background(), provider.PageRequest{Start: start, End: end, Timeframe: model.Timeframe15Min})
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if page.NextPageToken != "more" {
		t.Errorf("expected continuation token, got %q", page.NextPageToken)
	}
	b := page.Bars["SPY"][0]
	if b.Volume != nil || b.TradeCount != nil || b.VWAP != nil {
		t.Errorf("omitted fields must stay nil, got v=%v n=%v vw=%v", b.Volume, b.TradeCount, b.VWAP)
	}
}

func TestGetBars_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Symbols: []string{"SPY"}})
	start, end := testWindow()
	_, err := c.GetBars(context.Background(), provider.PageRequest{Start: start, End: end, Timeframe: model.Timeframe5Min})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	var perr *provider.Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *provider.Error, got %T", err)
	}
	if perr.Status != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", perr.Status)
	}
}

func TestGetBars_UnknownTimeframe(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:0", Symbols: []string{"SPY"}})
	start, end := testWindow()
	_, err := c.GetBars(context.Background(), provider.PageRequest{Start: start, End: end, Timeframe: "1T"})
	if !errors.Is(err, model.ErrUnknownTimeframe) {
		t.Fatalf("expected ErrUnknownTimeframe, got %v", err)
	}
}

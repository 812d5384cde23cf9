package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockCast/internal/domain/models"
)

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"TCS.NS","gmtoffset":19800},
"timestamp":[1714536900,1714623300,1714709700,1714709800],
"indicators":{"quote":[{
"open":[100,101,null,103],
"high":[105,106,107,108],
"low":[99,100,101,102],
"close":[104,105,106,107],
"volume":[1000,1100,null,1300]}]}}],"error":null}}`

func TestFetchHistoryParsesChart(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	c := New(srv.URL, ".NS", time.Second, nil)
	bars, err := c.FetchHistory(context.Background(), "TCS", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/v8/finance/chart/TCS.NS" || gotInterval != "1d" {
		t.Fatalf("unexpected request %s interval=%s", gotPath, gotInterval)
	}
	// row 3 has a null open and is dropped; row 4 shares its session and is kept
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3: %+v", len(bars), bars)
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			t.Fatalf("bars not ascending: %v then %v", bars[i-1].Date, bars[i].Date)
		}
	}
	if bars[0].Symbol != "TCS" || bars[0].Close != 104 || bars[2].Close != 107 {
		t.Fatalf("unexpected bars %+v", bars)
	}
	if err := models.ValidateSeries(bars); err != nil {
		t.Fatalf("series invalid: %v", err)
	}
}

func TestFetchHistoryErrorsAreDataUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`, http.StatusNotFound)
		},
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		},
		"chart error": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Bad Request","description":"no data"}}}`))
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		c := New(srv.URL, ".NS", time.Second, nil)
		_, err := c.FetchHistory(context.Background(), "TCS", 30)
		srv.Close()
		if !errors.Is(err, models.ErrDataUnavailable) {
			t.Fatalf("%s: expected data unavailable, got %v", name, err)
		}
	}
}

func TestExchangeSuffixNotDuplicated(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()
	c := New(srv.URL, ".NS", time.Second, nil)
	_, _ = c.FetchHistory(context.Background(), "TCS.BO", 30)
	if !strings.HasSuffix(gotPath, "/TCS.BO") {
		t.Fatalf("path %s should keep explicit exchange", gotPath)
	}
}

package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	xhttp "StockCast/pkg/http"
	applogger "StockCast/pkg/logger"
)

// Client fetches daily bars from the Yahoo Finance chart API.
type Client struct {
	baseURL string
	suffix  string
	http    *xhttp.Client
	l       *applogger.Logger
	now     func() time.Time
}

// New builds a client. suffix (".NS" for NSE) is appended to symbols without an exchange.
func New(baseURL, suffix string, timeout time.Duration, l *applogger.Logger, opts ...xhttp.ClientOption) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	opts = append([]xhttp.ClientOption{
		xhttp.WithTimeout(timeout),
		xhttp.WithUserAgent("Mozilla/5.0 (compatible; StockCast/1.0)"),
	}, opts...)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		suffix:  suffix,
		http:    xhttp.NewClient(opts...),
		l:       l,
		now:     time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory returns daily bars for the last lookbackDays calendar days, oldest first.
// Rows with a missing field are dropped. Every failure wraps models.ErrDataUnavailable.
func (c *Client) FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error) {
	ticker := symbol
	if c.suffix != "" && !strings.Contains(symbol, ".") {
		ticker = symbol + c.suffix
	}
	now := c.now().UTC()
	from := now.AddDate(0, 0, -lookbackDays)

	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker),
		Headers: map[string]string{"Accept": "application/json"},
		QueryParams: map[string][]string{
			"interval": {"1d"},
			"period1":  {strconv.FormatInt(from.Unix(), 10)},
			"period2":  {strconv.FormatInt(now.Unix(), 10)},
			"events":   {"history"},
		},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == 404 {
			return nil, fmt.Errorf("yahoo %s: unknown symbol: %w", ticker, models.ErrDataUnavailable)
		}
		c.l.Warn("yahoo chart request failed", applogger.String("ticker", ticker), applogger.Error(err))
		return nil, fmt.Errorf("yahoo %s: %v: %w", ticker, err, models.ErrDataUnavailable)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s: %w", ticker, e.Code, e.Description, models.ErrDataUnavailable)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: empty chart: %w", ticker, models.ErrDataUnavailable)
	}

	bars := decodeBars(symbol, resp)
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: no complete bars: %w", ticker, models.ErrDataUnavailable)
	}
	c.l.Debug("yahoo history ok", applogger.String("ticker", ticker), applogger.Int("bars", len(bars)))
	return bars, nil
}

func decodeBars(symbol string, resp chartResponse) []models.PriceBar {
	res := resp.Chart.Result[0]
	q := res.Indicators.Quote[0]
	at := func(xs []*float64, i int) (float64, bool) {
		if i >= len(xs) || xs[i] == nil {
			return 0, false
		}
		return *xs[i], true
	}

	byDate := make(map[time.Time]models.PriceBar, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, ok1 := at(q.Open, i)
		h, ok2 := at(q.High, i)
		l, ok3 := at(q.Low, i)
		cl, ok4 := at(q.Close, i)
		if !(ok1 && ok2 && ok3 && ok4) {
			continue
		}
		v, _ := at(q.Volume, i)
		local := time.Unix(ts+res.Meta.GMTOffset, 0).UTC()
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		// a later row for the same session (the live bar) replaces the earlier one
		byDate[date] = models.PriceBar{Symbol: symbol, Date: date, Open: o, High: h, Low: l, Close: cl, Volume: v}
	}

	out := make([]models.PriceBar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

var _ domrepo.HistoryProvider = (*Client)(nil)

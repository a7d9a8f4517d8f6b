package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/carteira/internal/frame"
	"github.com/rustyeddy/carteira/internal/market"
)

// ErrNotFound is returned by fetchChart when the API does not know the
// symbol. Download turns it into an empty frame.
var ErrNotFound = errors.New("yahoo: symbol not found")

// chartResponse mirrors the parts of /v8/finance/chart we read. Prices are
// pointers because the API sends null for bars it has no quote for.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
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
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// Download fetches daily bars for req.Symbol. The returned frame has two
// level column labels (field, symbol) in Open, High, Low, Close, Volume
// order. An unknown symbol or an empty window gives an empty frame.
func (c *Client) Download(ctx context.Context, req market.Request) (*frame.Frame, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("yahoo: missing base url")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	out := frame.New(
		frame.Label{frame.Open, symbol},
		frame.Label{frame.High, symbol},
		frame.Label{frame.Low, symbol},
		frame.Label{frame.Close, symbol},
		frame.Label{frame.Volume, symbol},
	)

	res, err := c.fetchChart(ctx, symbol, req.Start, req.End)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Timestamp) == 0 {
		return out, nil
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: response has timestamps but no quotes", symbol)
	}
	q := res.Indicators.Quote[0]

	var adj []*float64
	if req.AutoAdjust {
		if len(res.Indicators.AdjClose) == 0 {
			return nil, fmt.Errorf("yahoo %s: auto adjust requested but response has no adjclose", symbol)
		}
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	loc := exchangeLocation(res.Meta.ExchangeTimezoneName, res.Meta.GMTOffset)
	start := dateOf(req.Start, time.UTC)
	end := dateOf(req.End, time.UTC)

	for i, ts := range res.Timestamp {
		o, h, l, cl := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if o == nil && h == nil && l == nil && cl == nil {
			continue // holidays and halts come back as null bars
		}

		d := dateOf(time.Unix(ts, 0), loc)
		if d.Before(start) || !d.Before(end) {
			continue
		}

		vals := [4]float64{val(o), val(h), val(l), val(cl)}
		if req.AutoAdjust {
			a := at(adj, i)
			if a != nil && cl != nil && *cl != 0 {
				ratio := *a / *cl
				for k := range vals {
					vals[k] *= ratio
				}
			}
		}

		if err := out.Append(d, vals[0], vals[1], vals[2], vals[3], val(at(q.Volume, i))); err != nil {
			return nil, err
		}
	}

	out.SortByIndex()
	return out, nil
}

func (c *Client) fetchChart(ctx context.Context, symbol string, start, end time.Time) (*chartResult, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v8/finance/chart/" + url.PathEscape(symbol)

	q := u.Query()
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("includePrePost", "false")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("yahoo read body %s: %w", symbol, err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)

	// Unknown symbols come back as 404 with a structured error.
	if decodeErr == nil && chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("yahoo api error %s: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: http %d: %s", symbol, resp.StatusCode, snippet(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yahoo decode %s: %w", symbol, decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, nil
	}
	return &chart.Chart.Result[0], nil
}

// exchangeLocation resolves the exchange time zone, falling back to the
// fixed offset the API also reports.
func exchangeLocation(name string, offset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
		return time.FixedZone(name, offset)
	}
	return time.FixedZone("UTC", offset)
}

// dateOf truncates t to its calendar date in loc, returned as UTC midnight.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(s []*float64, i int) *float64 {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

func val(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}

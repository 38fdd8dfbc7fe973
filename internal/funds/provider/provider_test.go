package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/fundwatch/internal/funds/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:      srv.URL + "/funds",
		Timeout:      2 * time.Second,
		RetryMax:     0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	})
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestListFunds_SnakeCase(t *testing.T) {
	c := newTestClient(t, respond(http.StatusOK, `{"funds":[
		{"fund_cd":"A1","fund_name":"Alpha","base_price":10234.5,"base_price_date":"2024-01-05",
		 "price_change_1d":0.1,"price_change_2d":-0.2,"price_change_3d":0.3,"price_change_4d":0.4,"price_change_5d":0.5}
	]}`))

	snap := c.ListFunds(context.Background())
	require.False(t, snap.Fallback)
	require.Len(t, snap.Funds, 1)

	f := snap.Funds[0]
	assert.Equal(t, "A1", f.Code)
	assert.Equal(t, "Alpha", f.Name)
	assert.True(t, decimal.RequireFromString("10234.5").Equal(f.BasePrice))
	assert.Equal(t, "2024-01-05", f.BasePriceDate)
	assert.Equal(t, domain.PriceChanges{Day1: 0.1, Day2: -0.2, Day3: 0.3, Day4: 0.4, Day5: 0.5}, f.PriceChanges)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestListFunds_CamelCaseDriftAndDefaults(t *testing.T) {
	c := newTestClient(t, respond(http.StatusOK, `{"funds":[
		{"fundCode":"B2","fundName":"Beta","basePrice":"500","basePriceDate":"2024-01-05","priceChanges":{"day1":1.5,"day3":-1}},
		{"fund_cd":"C3"},
		{"fund_name":"no code"},
		{"fund_cd":"D4","base_price":"not a number"}
	]}`))

	snap := c.ListFunds(context.Background())
	require.False(t, snap.Fallback)
	require.Len(t, snap.Funds, 2)

	b := snap.Funds[0]
	assert.Equal(t, "B2", b.Code)
	assert.Equal(t, "Beta", b.Name)
	assert.True(t, decimal.NewFromInt(500).Equal(b.BasePrice))
	assert.Equal(t, domain.PriceChanges{Day1: 1.5, Day3: -1}, b.PriceChanges)

	c3 := snap.Funds[1]
	assert.Equal(t, "C3", c3.Code)
	assert.Equal(t, "C3", c3.Name, "missing name defaults to the code")
	assert.True(t, c3.BasePrice.IsZero())
	assert.Equal(t, domain.PriceChanges{}, c3.PriceChanges)
}

func TestListFunds_FallsBackToStatic(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"server error", respond(http.StatusInternalServerError, `oops`)},
		{"not found", respond(http.StatusNotFound, `{}`)},
		{"not json", respond(http.StatusOK, `<html>`)},
		{"missing funds key", respond(http.StatusOK, `{"items":[]}`)},
		{"all records rejected", respond(http.StatusOK, `{"funds":[{"fund_name":"x"}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := newTestClient(t, tt.h).ListFunds(context.Background())
			assert.True(t, snap.Fallback)
			assert.Len(t, snap.Funds, 8)
		})
	}
}

func TestListFunds_EmptyListIsKept(t *testing.T) {
	snap := newTestClient(t, respond(http.StatusOK, `{"funds":[]}`)).ListFunds(context.Background())
	assert.False(t, snap.Fallback)
	assert.Empty(t, snap.Funds)
}

func TestListFunds_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"funds":[{"fund_cd":"A1","fund_name":"Alpha"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second, RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	snap := c.ListFunds(context.Background())

	assert.False(t, snap.Fallback)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListFunds_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	snap := New(Config{BaseURL: url, Timeout: time.Second}).ListFunds(context.Background())
	assert.True(t, snap.Fallback)
}

func TestGetFund_FromAPI(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/funds/X9", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"fund_cd":"X9","fund_name":"Xi","base_price":1000,"price_change_1d_amount":12,
			"net_assets":99.5,
			"returns":{"one_month":1,"one_year":2},
			"risk":{"sharpe_ratio":0.5},
			"fees":{"purchase_fee":"none","management_fee":0.1,"management_fee_breakdown":{"trustee":0.01}},
			"info":{"benchmark":"Index"},
			"performance_data":{"dates":["2024-01-01"],"prices":[1000],"benchmark":[990]}
		}`))
	})

	d, err := c.GetFund(context.Background(), "X9")
	require.NoError(t, err)
	assert.Equal(t, "X9", d.Code)
	assert.True(t, decimal.NewFromInt(12).Equal(d.Day1Amount))
	assert.Equal(t, 99.5, d.NetAssets)
	assert.Equal(t, domain.Returns{OneMonth: 1, OneYear: 2}, d.Returns)
	assert.Equal(t, 0.5, d.Risk.SharpeRatio)
	assert.Equal(t, "none", d.Fees.PurchaseFee)
	assert.Equal(t, 0.01, d.Fees.ManagementFeeBreakdown.Trustee)
	assert.Equal(t, "Index", d.Info.Benchmark)
	assert.Equal(t, []float64{990}, d.Performance.Benchmark)
}

func TestGetFund_FallsBackToStaticDetail(t *testing.T) {
	c := newTestClient(t, respond(http.StatusBadGateway, ``))

	d, err := c.GetFund(context.Background(), "03311081")
	require.NoError(t, err)
	assert.Equal(t, "eMAXIS Slim 米国株式(S&P500)", d.Name)
	assert.True(t, decimal.NewFromInt(82).Equal(d.Day1Amount))
	assert.Equal(t, 12458.6, d.NetAssets)
	assert.Equal(t, 0.0968, d.Fees.ManagementFee)
	assert.Len(t, d.Performance.Dates, PerformanceWeeks)
	assert.Equal(t, "2023-04-12", d.Performance.Dates[PerformanceWeeks-1])
	assert.Equal(t, "2022-04-20", d.Performance.Dates[0])
}

func TestGetFund_UnknownCode(t *testing.T) {
	c := newTestClient(t, respond(http.StatusNotFound, ``))

	_, err := c.GetFund(context.Background(), "99999999")
	assert.ErrorIs(t, err, domain.ErrFundNotFound)

	// listed in the static fund list but without a bundled detail
	_, err = c.GetFund(context.Background(), "03311178")
	assert.ErrorIs(t, err, domain.ErrFundNotFound)

	_, err = c.GetFund(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidFundCode)
}

func TestStaticFunds(t *testing.T) {
	funds := StaticFunds()
	require.Len(t, funds, 8)
	assert.Equal(t, "03311081", funds[0].Code)
	assert.True(t, decimal.NewFromInt(18326).Equal(funds[0].BasePrice))
	assert.Equal(t, -0.34, funds[0].PriceChanges.Day5)

	// callers get their own copy
	funds[0].Name = "changed"
	assert.NotEqual(t, "changed", StaticFunds()[0].Name)
}

func TestPerformanceSeries_Deterministic(t *testing.T) {
	base := decimal.NewFromInt(18326)
	a := PerformanceSeries("03311081", base, "2023-04-12", 0.02, 0.95)
	b := PerformanceSeries("03311081", base, "2023-04-12", 0.02, 0.95)
	c := PerformanceSeries("03311189", base, "2023-04-12", 0.02, 0.95)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Prices, c.Prices)
	assert.Len(t, a.Prices, PerformanceWeeks)
	assert.Len(t, a.Benchmark, PerformanceWeeks)
	for _, p := range a.Prices {
		assert.Greater(t, p, 0.0)
	}
}

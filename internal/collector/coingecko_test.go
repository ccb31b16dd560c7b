package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCoinGeckoFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != simplePricePath {
			t.Fatalf("路径应为 %s, 实际 %s", simplePricePath, r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "tether" {
			t.Fatalf("ids 参数不正确: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tether":{"usd":1.001,"usd_24h_change":0.05,"usd_24h_vol":51000000000,"usd_market_cap":120000000000}}`))
	}))
	defer srv.Close()

	source := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: time.Second, RequestsPerMin: 60}, zerolog.Nop())

	quote, err := source.FetchQuote(context.Background(), "usdt")
	if err != nil {
		t.Fatalf("FetchQuote 应成功: %v", err)
	}
	if quote.Price != 1.001 {
		t.Fatalf("价格不正确: %v", quote.Price)
	}
	if quote.Volume24h != 51000000000 {
		t.Fatalf("成交量不正确: %v", quote.Volume24h)
	}
}

func TestCoinGeckoZeroPriceDefaultsToPeg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dai":{"usd":0}}`))
	}))
	defer srv.Close()

	source := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: time.Second, RequestsPerMin: 60}, zerolog.Nop())

	quote, err := source.FetchQuote(context.Background(), "dai")
	if err != nil {
		t.Fatalf("FetchQuote 应成功: %v", err)
	}
	if quote.Price != 1.0 {
		t.Fatalf("零价格应回退为 1.0, 实际 %v", quote.Price)
	}
}

func TestCoinGeckoAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	source := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: time.Second, RequestsPerMin: 60}, zerolog.Nop())

	if _, err := source.FetchQuote(context.Background(), "usdt"); err == nil {
		t.Fatal("非 200 响应应报错")
	}
}

func TestCoinGeckoUnknownAsset(t *testing.T) {
	source := NewCoinGecko(CoinGeckoOptions{BaseURL: "http://127.0.0.1:0", Timeout: time.Second, RequestsPerMin: 60}, zerolog.Nop())

	if _, err := source.FetchQuote(context.Background(), "doge"); err == nil {
		t.Fatal("未映射资产应报错")
	}
}

package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func quoteBody(fields string) string {
	return fmt.Sprintf(`{"quoteSummary":{"result":[{"price":{%s}}],"error":null}}`, fields)
}

func newServerClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(WithBaseURL(srv.URL))
	c.sleep = func(time.Duration) {}
	return c, srv
}

func TestStockInfoFlattensRawValues(t *testing.T) {
	c, srv := newServerClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteBody(`"shortName":"Apple Inc.","marketCap":{"raw":3.4e12,"fmt":"3.4T"},"currentPrice":{"raw":230.1,"fmt":"230.10"}`))
	})
	defer srv.Close()

	info, err := c.StockInfo(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, _ := info.String("shortName"); name != "Apple Inc." {
		t.Fatalf("unexpected shortName %v", info["shortName"])
	}
	if mc, ok := info.Float("marketCap"); !ok || mc != 3.4e12 {
		t.Fatalf("unexpected marketCap %v", info["marketCap"])
	}
}

func TestStockInfoRetriesUntilMeaningful(t *testing.T) {
	calls := 0
	c, srv := newServerClient(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			fmt.Fprint(w, quoteBody(`"quoteType":"EQUITY"`))
			return
		}
		fmt.Fprint(w, quoteBody(`"currentPrice":{"raw":101.5}`))
	})
	defer srv.Close()

	info, err := c.StockInfo(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if _, ok := info.Float("currentPrice"); !ok {
		t.Fatalf("expected currentPrice in %v", info)
	}
}

func TestStockInfoFinalAttemptAcceptsAnything(t *testing.T) {
	calls := 0
	c, srv := newServerClient(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, quoteBody(`"quoteType":"EQUITY"`))
	})
	defer srv.Close()

	info, err := c.StockInfo(context.Background(), "XXXX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != maxRetries+1 {
		t.Fatalf("expected %d calls, got %d", maxRetries+1, calls)
	}
	if qt, _ := info.String("quoteType"); qt != "EQUITY" {
		t.Fatalf("unexpected payload %v", info)
	}
}

func TestStockInfoEmptyAfterRetries(t *testing.T) {
	c, srv := newServerClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteSummary":{"result":[],"error":null}}`)
	})
	defer srv.Close()

	if _, err := c.StockInfo(context.Background(), "NONE"); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestKeyMetricsWhitelist(t *testing.T) {
	c, srv := newServerClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteBody(`"currentPrice":{"raw":50},"trailingPE":{"raw":22.5},"regularMarketVolume":{"raw":123456},"sector":"Technology"`))
	})
	defer srv.Close()

	metrics, err := c.KeyMetrics(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := metrics["trailingPE"]; !ok {
		t.Fatalf("expected trailingPE in metrics")
	}
	if _, ok := metrics["regularMarketVolume"]; ok {
		t.Fatalf("regularMarketVolume should be filtered out")
	}
	if _, ok := metrics["sector"]; !ok {
		t.Fatalf("expected sector in metrics")
	}
}

func TestNewsCapped(t *testing.T) {
	c, srv := newServerClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"news":[`)
		for i := 0; i < 15; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"title":"headline %d","publisher":"wire","link":"https://example.com/%d","providerPublishTime":1700000000,"type":"STORY"}`, i, i)
		}
		fmt.Fprint(w, `]}`)
	})
	defer srv.Close()

	items, err := c.News(context.Background(), "AAPL", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(items))
	}

	items, err = c.News(context.Background(), "AAPL", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	if items[0].Title != "headline 0" || items[0].Publisher != "wire" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
}

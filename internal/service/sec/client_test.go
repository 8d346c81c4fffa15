package sec

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const tickersJSON = `{
	"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."},
	"1":{"cik_str":789019,"ticker":"MSFT","title":"MICROSOFT CORP"}
}`

const submissionsJSON = `{
	"name":"Apple Inc.",
	"cik":"320193",
	"sic":"3571",
	"sicDescription":"Electronic Computers",
	"fiscalYearEnd":"0930",
	"stateOfIncorporation":"CA",
	"tickers":["AAPL"],
	"exchanges":["Nasdaq"],
	"filings":{"recent":{
		"accessionNumber":["0000320193-24-000123","0000320193-24-000100","0000320193-23-000106"],
		"filingDate":["2024-11-01","2024-08-02","2023-11-03"],
		"form":["10-K","10-Q","10-K"],
		"primaryDocument":["aapl-20240928.htm","aapl-20240629.htm","aapl-20230930.htm"],
		"primaryDocDescription":["10-K","10-Q","10-K"]
	}}
}`

type countingServer struct {
	srv     *httptest.Server
	tickers int
	docs    int
}

func newEdgarServer(t *testing.T) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/company_tickers.json":
			cs.tickers++
			fmt.Fprint(w, tickersJSON)
		case r.URL.Path == "/submissions/CIK0000320193.json":
			fmt.Fprint(w, submissionsJSON)
		case strings.HasPrefix(r.URL.Path, "/Archives/edgar/data/"):
			cs.docs++
			fmt.Fprintf(w, "document at %s", r.URL.Path)
		default:
			http.NotFound(w, r)
		}
	}))
	return cs
}

func newEdgarClient(srv *httptest.Server) *Client {
	return NewClient("FinSight test admin@example.com",
		WithBaseURLs(srv.URL, srv.URL))
}

func TestCIKPadsAndMemoizes(t *testing.T) {
	es := newEdgarServer(t)
	defer es.srv.Close()
	c := newEdgarClient(es.srv)

	cik, err := c.CIK(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cik != "0000320193" {
		t.Fatalf("expected zero-padded CIK, got %q", cik)
	}

	if _, err := c.CIK(context.Background(), "AAPL"); err != nil {
		t.Fatalf("unexpected error on second lookup: %v", err)
	}
	if es.tickers != 1 {
		t.Fatalf("expected 1 ticker fetch, got %d", es.tickers)
	}
}

func TestCIKUnknownTicker(t *testing.T) {
	es := newEdgarServer(t)
	defer es.srv.Close()
	c := newEdgarClient(es.srv)

	if _, err := c.CIK(context.Background(), "ZZZZ"); err == nil {
		t.Fatalf("expected error for unknown ticker")
	}
}

func TestCompanyInfo(t *testing.T) {
	es := newEdgarServer(t)
	defer es.srv.Close()
	c := newEdgarClient(es.srv)

	info, err := c.CompanyInfo(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "Apple Inc." || info.SICDescription != "Electronic Computers" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Ticker != "AAPL" || info.State != "CA" || info.FiscalYearEnd != "0930" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestFilingsFiltersByForm(t *testing.T) {
	es := newEdgarServer(t)
	defer es.srv.Close()
	c := newEdgarClient(es.srv)

	filings, err := c.Filings(context.Background(), "AAPL", "10-K", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filings) != 2 {
		t.Fatalf("expected 2 10-K filings, got %d", len(filings))
	}
	if filings[0].FilingDate != "2024-11-01" || filings[1].FilingDate != "2023-11-03" {
		t.Fatalf("unexpected filings %+v", filings)
	}

	filings, err = c.Filings(context.Background(), "AAPL", "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filings) != 2 || filings[1].Form != "10-Q" {
		t.Fatalf("expected first two filings of any form, got %+v", filings)
	}
}

func TestFilingDocumentURL(t *testing.T) {
	es := newEdgarServer(t)
	defer es.srv.Close()
	c := newEdgarClient(es.srv)

	filings, err := c.Filings(context.Background(), "AAPL", "10-K", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, err := c.FilingDocument(context.Background(), "AAPL", filings[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "document at /Archives/edgar/data/320193/000032019324000123/aapl-20240928.htm"
	if string(body) != want {
		t.Fatalf("unexpected document body %q", body)
	}
	if es.docs != 1 {
		t.Fatalf("expected 1 document fetch, got %d", es.docs)
	}
}

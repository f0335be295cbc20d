package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ledger/internal/ledger"
	"ledger/internal/metrics"
	"ledger/internal/render"
	"ledger/internal/storage"
	"ledger/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	ctrl *ledger.Controller
	kv   *memory.Slot
}

// newTestServer boots a ledger seeded with Salary (id-1) and Coffee (id-2).
func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	kv := memory.New(0)
	view := render.NewSnapshot()
	seq := 0
	ctrl := ledger.New(storage.NewTransactionStore(kv, nil), view, ledger.ContextConfirmer{},
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
		ledger.WithLocation(time.UTC),
	)
	ctrl.Bootstrap(context.Background())

	srv, err := NewServer(":0", ctrl, view, opts...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, ctrl: ctrl, kv: kv}
}

func (ts *testServer) do(method, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"<!doctype html>", "Expense Tracker", "Salary", "Coffee", "₹24,950.00", "+₹25,000.00", "-₹50.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Index(body, "Coffee") > strings.Index(body, "Salary") {
		t.Error("newest transaction should be listed first")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(http.MethodGet, path, nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
		focus   string
	}{
		{"empty name", url.Values{"name": {"  "}, "amount": {"10"}}, ledger.MsgEmptyName, `id="name"`},
		{"bad amount", url.Values{"name": {"Lunch"}, "amount": {"abc"}}, ledger.MsgInvalidAmount, `id="amount"`},
		{"zero amount", url.Values{"name": {"Lunch"}, "amount": {"0"}}, ledger.MsgZeroAmount, `id="amount"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			before := ts.kv.Writes()

			rr := ts.do(http.MethodPost, "/transactions", tt.form, true)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rr.Code)
			}
			body := rr.Body.String()
			if !strings.Contains(body, tt.message) {
				t.Errorf("body missing %q", tt.message)
			}
			if strings.Contains(body, "<!doctype html>") {
				t.Error("htmx request should receive the fragment only")
			}
			if !focused(body, tt.focus) {
				t.Errorf("expected autofocus on %s", tt.focus)
			}
			if n := len(ts.ctrl.Transactions()); n != 2 {
				t.Errorf("collection size = %d, want 2", n)
			}
			if ts.kv.Writes() != before {
				t.Error("rejected entry must not write")
			}
		})
	}
}

// focused reports whether the input tag starting at marker carries autofocus.
func focused(body, marker string) bool {
	i := strings.Index(body, marker)
	if i < 0 {
		return false
	}
	end := strings.Index(body[i:], ">")
	return strings.Contains(body[i:i+end], "autofocus")
}

func TestCreateTransactionEchoesInputOnError(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/transactions", url.Values{"name": {"Lunch"}, "amount": {"abc"}, "type": {"expense"}}, true)
	body := rr.Body.String()
	if !strings.Contains(body, `value="Lunch"`) {
		t.Error("name should be kept after a rejected entry")
	}
	if !strings.Contains(body, `value="expense" checked`) {
		t.Error("selected type should be kept after a rejected entry")
	}
}

func TestCreateTransactionSuccess(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/transactions", url.Values{"name": {"Lunch"}, "amount": {"12.5"}, "type": {"expense"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"transaction:added"`, `"form:reset"`, `"Transaction added"`} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %s: %s", want, trigger)
		}
	}

	body := rr.Body.String()
	for _, want := range []string{"Lunch", "-₹12.50", "₹24,937.50"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if !strings.Contains(body, `id="name" name="name" type="text" value=""`) {
		t.Error("form should be reset after a successful entry")
	}
	if !focused(body, `id="name"`) {
		t.Error("name input should regain focus")
	}
	if got := ts.ctrl.Totals().Balance; got != 24937.5 {
		t.Errorf("balance = %v, want 24937.5", got)
	}
}

func TestCreateTransactionEscapesName(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodPost, "/transactions", url.Values{"name": {`<b>"x"</b>`}, "amount": {"1"}}, true)
	body := rr.Body.String()
	if strings.Contains(body, "<b>") {
		t.Error("name must be escaped")
	}
	if !strings.Contains(body, "&lt;b&gt;&quot;x&quot;&lt;/b&gt;") {
		t.Error("escaped name missing from list")
	}
}

func TestCreateTransactionJSON(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"name":"Gift","amount":100,"type":"income"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := ts.ctrl.Totals().Income; got != 25100 {
		t.Errorf("income = %v, want 25100", got)
	}
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/transactions/delete", url.Values{"id": {"id-2"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if n := len(ts.ctrl.Transactions()); n != 2 {
		t.Fatalf("unconfirmed delete removed a transaction")
	}
	if rr.Header().Get("HX-Trigger") != "" {
		t.Error("declined delete should not trigger events")
	}

	rr = ts.do(http.MethodPost, "/transactions/delete", url.Values{"id": {"id-2"}, "confirmed": {"true"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"transaction:deleted":{"id":"id-2"}`) {
		t.Errorf("missing delete trigger: %s", rr.Header().Get("HX-Trigger"))
	}
	if strings.Contains(rr.Body.String(), "Coffee") {
		t.Error("deleted transaction still rendered")
	}
	if got := ts.ctrl.Totals().Balance; got != 25000 {
		t.Errorf("balance = %v, want 25000", got)
	}

	writes := ts.kv.Writes()
	rr = ts.do(http.MethodPost, "/transactions/delete", url.Values{"id": {"unknown"}, "confirmed": {"true"}}, true)
	if rr.Code != http.StatusOK || len(ts.ctrl.Transactions()) != 1 || ts.kv.Writes() != writes {
		t.Error("deleting an unknown id should be a no-op")
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"info"`) {
		t.Errorf("expected info notification, got %s", rr.Header().Get("HX-Trigger"))
	}

	rr = ts.do(http.MethodPost, "/transactions/delete", url.Values{"confirmed": {"true"}}, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("delete without id: expected 400, got %d", rr.Code)
	}
}

func TestDeleteTransactionWithPathLikeID(t *testing.T) {
	kv := memory.New(0)
	blob := `[{"id":"a/b","name":"Rent","amount":900,"type":"expense","timestamp":1},` +
		`{"id":"c","name":"Pay","amount":1000,"type":"income","timestamp":2}]`
	if err := kv.Set(context.Background(), storage.TransactionsKey, blob); err != nil {
		t.Fatal(err)
	}
	view := render.NewSnapshot()
	ctrl := ledger.New(storage.NewTransactionStore(kv, nil), view, ledger.ContextConfirmer{},
		ledger.WithLocation(time.UTC))
	ctrl.Bootstrap(context.Background())
	srv, err := NewServer(":0", ctrl, view)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	ts := &testServer{Server: srv, ctrl: ctrl, kv: kv}

	page := ts.do(http.MethodGet, "/", nil, false).Body.String()
	if !strings.Contains(page, `&#34;id&#34;:&#34;a/b&#34;`) {
		t.Fatalf("delete button not bound to id a/b:\n%s", page)
	}

	rr := ts.do(http.MethodPost, "/transactions/delete", url.Values{"id": {"a/b"}, "confirmed": {"true"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	txs := ts.ctrl.Transactions()
	if len(txs) != 1 || txs[0].ID != "c" {
		t.Fatalf("remaining = %+v, want only c", txs)
	}
}

func TestCreateKeepsControlCharactersInName(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/transactions", url.Values{"name": {"\x01"}, "amount": {"5"}, "type": {"expense"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if n := len(ts.ctrl.Transactions()); n != 3 {
		t.Fatalf("expected 3 transactions, got %d", n)
	}
}

func TestClearAll(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/transactions/clear", url.Values{"confirmed": {"true"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"ledger:cleared":{"count":2}`) {
		t.Errorf("missing clear trigger: %s", rr.Header().Get("HX-Trigger"))
	}
	body := rr.Body.String()
	if !strings.Contains(body, "No transactions yet.") {
		t.Error("empty hint missing")
	}
	if !strings.Contains(body, "₹0.00") {
		t.Error("totals should be zero")
	}

	writes := ts.kv.Writes()
	rr = ts.do(http.MethodPost, "/transactions/clear", url.Values{"confirmed": {"true"}}, true)
	if rr.Header().Get("HX-Trigger") != "" || ts.kv.Writes() != writes {
		t.Error("clearing an empty ledger must not write or trigger")
	}
}

func TestReadyzFailure(t *testing.T) {
	ts := newTestServer(t, WithReadiness(func(context.Context) error { return errors.New("db down") }))
	rr := ts.do(http.MethodGet, "/readyz", nil, false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, WithRateLimit(1, time.Minute))
	form := url.Values{"name": {"A"}, "amount": {"1"}}

	if rr := ts.do(http.MethodPost, "/transactions", form, true); rr.Code != http.StatusOK {
		t.Fatalf("first request status=%d", rr.Code)
	}
	rr := ts.do(http.MethodPost, "/transactions", form, true)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	if rr := ts.do(http.MethodGet, "/transactions", nil, false); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, WithMetrics(metrics.NewCollector("ledger")))
	ts.do(http.MethodPost, "/transactions", url.Values{"name": {""}, "amount": {"1"}}, true)

	rr := ts.do(http.MethodGet, "/metrics", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`ledger_validation_errors_total{field="name"} 1`,
		`ledger_http_requests_total{method="POST",route="/transactions",status="422"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/static/app.css", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Error("static assets should be cacheable")
	}
}

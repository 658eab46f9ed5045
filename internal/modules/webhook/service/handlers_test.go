package service

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	asterdex "aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/config"
	journalservice "aster_bot/internal/modules/journal/service"
	trading "aster_bot/internal/modules/trading/service"
	"aster_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const (
	testSecret = "hook-secret"
	testAPIKey = "read-key"
)

type fixture struct {
	mux      *http.ServeMux
	exchange *exchangeStub
}

type exchangeStub struct {
	mu          sync.Mutex
	positionAmt string
	orders      int
	orderStatus int
	orderBody   string
}

func (e *exchangeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/fapi/v3/positionRisk":
		e.mu.Lock()
		amt := e.positionAmt
		e.mu.Unlock()
		_, _ = w.Write([]byte(`[{"symbol":"BTCUSDT","positionAmt":"` + amt +
			`","entryPrice":"50000","markPrice":"50100","unRealizedProfit":"10","liquidationPrice":"40000","leverage":"10","marginType":"cross","positionSide":"BOTH"}]`))
	case "/fapi/v3/order":
		e.mu.Lock()
		e.orders++
		n := e.orders
		status, body := e.orderStatus, e.orderBody
		e.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		q := r.URL.Query()
		qty := q.Get("quantity")
		if qty == "" {
			qty = "0"
		}
		_, _ = w.Write([]byte(`{"orderId":` + strconv.Itoa(n) + `,"symbol":"BTCUSDT","side":"` + q.Get("side") +
			`","type":"` + q.Get("type") + `","status":"FILLED","origQty":"` + qty +
			`","price":"0","executedQty":"0","avgPrice":"50100"}`))
	case "/fapi/v3/balance":
		_, _ = w.Write([]byte(`[{"asset":"USDT","balance":"1000","availableBalance":"900","crossWalletBalance":"1000","crossUnPnl":"0"}]`))
	case "/fapi/v3/openOrders", "/fapi/v3/allOrders":
		_, _ = w.Write([]byte(`[]`))
	case "/fapi/v3/leverage":
		q := r.URL.Query()
		lev, _ := strconv.Atoi(q.Get("leverage"))
		_, _ = w.Write([]byte(`{"symbol":"` + q.Get("symbol") + `","leverage":` + strconv.Itoa(lev) + `,"maxNotionalValue":"1000000"}`))
	case "/fapi/v3/marginType":
		_, _ = w.Write([]byte(`{"code":200,"msg":"success"}`))
	default:
		http.NotFound(w, r)
	}
}

func testKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func newFixture(t *testing.T, positionAmt string, opts ...func(*config.Config)) *fixture {
	t.Helper()
	stub := &exchangeStub{positionAmt: positionAmt}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	key, addr := testKey(t)
	signer, err := asterdex.NewSigner(addr, addr, hex.EncodeToString(crypto.FromECDSA(key)))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	cfg := &config.Config{}
	cfg.Aster.BaseURL = srv.URL
	cfg.HTTP.RequestTimeout = 5 * time.Second
	cfg.HTTP.MaxAttempts = 1
	cfg.HTTP.RetryBaseDelay = time.Millisecond
	cfg.HTTP.RecvWindow = 5000
	cfg.BalanceCacheTTL = 5 * time.Second
	cfg.WebhookSecret = testSecret
	cfg.APIKey = testAPIKey
	for _, opt := range opts {
		opt(cfg)
	}

	client := asterdex.NewClient(cfg, signer)
	positions := trading.NewPositions(client, nil)
	account := trading.NewAccount(cfg, client)
	tr := trading.NewTrading(client, positions, nil, nil)

	var journal *journalservice.Journal
	h := NewHandler(cfg, tr, positions, account, client, journal)
	mux := http.NewServeMux()
	h.Register(mux)
	return &fixture{mux: mux, exchange: stub}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestStrategyWebhookRejectsMissingSecret(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodPost, "/webhook/tradingview-strategy",
		`{"order_action":"buy","symbol":"BTCUSDT","contracts":"1"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if f.exchange.orders != 0 {
		t.Fatal("no order may be placed before the secret check")
	}
}

func TestStrategyWebhookBodySecretTakesPrecedence(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodPost, "/webhook/tradingview-strategy",
		`{"order_action":"buy","symbol":"BTCUSDT","contracts":"1","webhook_secret":"`+testSecret+`"}`,
		map[string]string{"X-Webhook-Secret": "wrong"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body secret wins), body %s", rec.Code, rec.Body.String())
	}
}

func TestStrategyWebhookHeaderSecret(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodPost, "/webhook/tradingview-strategy",
		`{"order_action":"sell","symbol":"BTCUSDT","contracts":"2"}`,
		map[string]string{"X-Webhook-Secret": testSecret})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	out := decodeMap(t, rec)
	if out["action_taken"] != "OPEN" {
		t.Fatalf("action_taken = %v, want OPEN", out["action_taken"])
	}
	if out["success"] != true {
		t.Fatalf("success = %v, want true", out["success"])
	}
}

func TestStrategyWebhookFlipReportsBothLegs(t *testing.T) {
	f := newFixture(t, "2")
	rec := f.do(t, http.MethodPost, "/webhook/tradingview-strategy",
		`{"order_action":"sell","symbol":"BTCUSDT","contracts":"5","webhook_secret":"`+testSecret+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decodeMap(t, rec)
	if out["action_taken"] != "FLIP" {
		t.Fatalf("action_taken = %v, want FLIP", out["action_taken"])
	}
	orders, ok := out["orders"].([]any)
	if !ok || len(orders) != 2 {
		t.Fatalf("orders = %v, want two legs", out["orders"])
	}
}

func TestStrategyWebhookValidation(t *testing.T) {
	f := newFixture(t, "0")
	cases := []string{
		`{"order_action":"hold","symbol":"BTCUSDT","contracts":"1","webhook_secret":"` + testSecret + `"}`,
		`{"order_action":"buy","contracts":"1","webhook_secret":"` + testSecret + `"}`,
		`{"order_action":"buy","symbol":"BTCUSDT","contracts":"0","webhook_secret":"` + testSecret + `"}`,
		`not json`,
	}
	for _, body := range cases {
		rec := f.do(t, http.MethodPost, "/webhook/tradingview-strategy", body,
			map[string]string{"X-Webhook-Secret": testSecret})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
		out := decodeMap(t, rec)
		if out["error"] != "VALIDATION_ERROR" {
			t.Fatalf("error = %v, want VALIDATION_ERROR", out["error"])
		}
	}
}

func TestActionWebhookExplicitClose(t *testing.T) {
	f := newFixture(t, "1.5")
	rec := f.do(t, http.MethodPost, "/webhook/tradingview",
		`{"action":"close","symbol":"BTCUSDT","webhook_secret":"`+testSecret+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decodeMap(t, rec)
	if out["action_taken"] != "CLOSE" {
		t.Fatalf("action_taken = %v, want CLOSE", out["action_taken"])
	}
}

func TestActionWebhookUnknownAction(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodPost, "/webhook/tradingview",
		`{"action":"liquidate","symbol":"BTCUSDT","webhook_secret":"`+testSecret+`"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestActionWebhookExchangeRejectionMapsTo502(t *testing.T) {
	f := newFixture(t, "0")
	f.exchange.orderStatus = http.StatusBadRequest
	f.exchange.orderBody = `{"code":-2019,"msg":"Margin is insufficient."}`

	rec := f.do(t, http.MethodPost, "/webhook/tradingview",
		`{"action":"open","symbol":"BTCUSDT","side":"BUY","quantity":"100","webhook_secret":"`+testSecret+`"}`, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502, body %s", rec.Code, rec.Body.String())
	}
	out := decodeMap(t, rec)
	if out["error"] != "EXCHANGE_REJECTION" {
		t.Fatalf("error = %v, want EXCHANGE_REJECTION", out["error"])
	}
	if out["exchange_code"] != float64(-2019) {
		t.Fatalf("exchange_code = %v, want -2019", out["exchange_code"])
	}
}

func TestReadSurfaceRequiresAPIKey(t *testing.T) {
	f := newFixture(t, "1")
	paths := []string{"/positions", "/positions/BTCUSDT", "/account/balance", "/orders/open"}
	for _, p := range paths {
		rec := f.do(t, http.MethodGet, p, "", nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s without key: status = %d, want 403", p, rec.Code)
		}
	}
}

func TestPositionsListWithAPIKey(t *testing.T) {
	f := newFixture(t, "1")
	rec := f.do(t, http.MethodGet, "/positions", "", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0]["symbol"] != "BTCUSDT" {
		t.Fatalf("positions = %v", out)
	}
}

func TestPositionsListFiltersFlat(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodGet, "/positions", "", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("flat positions must be filtered, got %v", out)
	}
}

func TestPositionBySymbolNotFound(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodGet, "/positions/BTCUSDT", "", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestLeverageUpdateValidation(t *testing.T) {
	f := newFixture(t, "1")
	rec := f.do(t, http.MethodPost, "/positions/BTCUSDT/leverage",
		`{"leverage":200}`, map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/positions/BTCUSDT/leverage",
		`{"leverage":20}`, map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestMarginTypeUpdate(t *testing.T) {
	f := newFixture(t, "1")
	rec := f.do(t, http.MethodPost, "/positions/BTCUSDT/margin-type",
		`{"margin_type":"isolated"}`, map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/positions/BTCUSDT/margin-type",
		`{"margin_type":"portfolio"}`, map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAccountBalanceRead(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodGet, "/account/balance", "", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0]["asset"] != "USDT" {
		t.Fatalf("balances = %v", out)
	}
}

func TestOrdersRequireSymbol(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.do(t, http.MethodGet, "/orders", "", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/orders?symbol=BTCUSDT", "", map[string]string{"X-API-Key": testAPIKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSecretNotConfiguredAllowsAll(t *testing.T) {
	f := newFixture(t, "0", func(cfg *config.Config) {
		cfg.WebhookSecret = ""
		cfg.APIKey = ""
	})

	rec := f.do(t, http.MethodPost, "/webhook/tradingview-strategy",
		`{"order_action":"buy","symbol":"BTCUSDT","contracts":"1"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no-secret config must accept unauthenticated webhooks, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/positions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no-key config must serve reads without X-API-Key, got %d", rec.Code)
	}
}

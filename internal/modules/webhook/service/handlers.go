package service

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"aster_bot/internal/apperr"
	"aster_bot/internal/models"
	asterdex "aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/config"
	journalservice "aster_bot/internal/modules/journal/service"
	"aster_bot/internal/modules/metrics"
	trading "aster_bot/internal/modules/trading/service"
	"aster_bot/pkg/logger"
	"aster_bot/pkg/tracing"
)

const maxBodyBytes = 1 << 20

// Handler is the public HTTP surface: the two webhook endpoints plus the
// API-key protected read/config endpoints.
type Handler struct {
	cfg       *config.Config
	trading   *trading.Trading
	positions *trading.Positions
	account   *trading.Account
	client    *asterdex.Client
	journal   *journalservice.Journal
}

func NewHandler(cfg *config.Config, t *trading.Trading, p *trading.Positions, a *trading.Account, c *asterdex.Client, j *journalservice.Journal) *Handler {
	return &Handler{cfg: cfg, trading: t, positions: p, account: a, client: c, journal: j}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/tradingview", h.handleAction)
	mux.HandleFunc("POST /webhook/tradingview-strategy", h.handleStrategy)

	mux.HandleFunc("GET /positions", h.withAPIKey(h.handlePositions))
	mux.HandleFunc("GET /positions/{symbol}", h.withAPIKey(h.handlePosition))
	mux.HandleFunc("POST /positions/{symbol}/leverage", h.withAPIKey(h.handleLeverage))
	mux.HandleFunc("POST /positions/{symbol}/margin-type", h.withAPIKey(h.handleMarginType))
	mux.HandleFunc("GET /account/balance", h.withAPIKey(h.handleBalance))
	mux.HandleFunc("GET /account/info", h.withAPIKey(h.handleAccountInfo))
	mux.HandleFunc("GET /orders", h.withAPIKey(h.handleOrders))
	mux.HandleFunc("GET /orders/open", h.withAPIKey(h.handleOpenOrders))
	mux.HandleFunc("GET /executions", h.withAPIKey(h.handleExecutions))
}

// ---- webhook endpoints ----

type execResponse struct {
	Success      bool                 `json:"success"`
	Action       string               `json:"action_taken"`
	Orders       []models.OrderView   `json:"orders"`
	Position     *models.PositionView `json:"position,omitempty"`
	Partial      bool                 `json:"partial,omitempty"`
	OpenLegError *errBody             `json:"open_leg_error,omitempty"`
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	span, ctx := tracing.StartSpanFromContext(r.Context(), "webhook.action")
	defer span.Finish()

	var p actionPayload
	if err := decodeBody(r, &p); err != nil {
		h.fail(w, "tradingview", err)
		return
	}
	if !h.secretOK(r, p.WebhookSecret) {
		metrics.WebhookRequests.WithLabelValues("tradingview", "unauthorized").Inc()
		writeErr(w, apperr.New(apperr.KindAuthentication, "invalid webhook secret"))
		return
	}

	action, err := p.action()
	if err != nil {
		h.fail(w, "tradingview", err)
		return
	}

	var res *trading.Result
	switch action {
	case models.ActionOpen:
		res, err = h.trading.Open(ctx, "tradingview", trading.OpenParams{
			Symbol:    p.Symbol,
			Side:      models.Side(strings.ToUpper(p.Side)),
			Quantity:  p.Quantity,
			OrderType: p.orderType(),
			Price:     p.Price,
		})
	case models.ActionIncrease:
		res, err = h.trading.Increase(ctx, "tradingview", p.Symbol, p.Quantity)
	case models.ActionDecrease:
		res, err = h.trading.Decrease(ctx, "tradingview", p.Symbol, p.Quantity)
	case models.ActionClose:
		res, err = h.trading.Close(ctx, "tradingview", p.Symbol)
	}
	if err != nil {
		h.fail(w, "tradingview", err)
		return
	}

	metrics.WebhookRequests.WithLabelValues("tradingview", "ok").Inc()
	writeJSON(w, http.StatusOK, execResult(res))
}

func (h *Handler) handleStrategy(w http.ResponseWriter, r *http.Request) {
	span, ctx := tracing.StartSpanFromContext(r.Context(), "webhook.strategy")
	defer span.Finish()

	var p strategyPayload
	if err := decodeBody(r, &p); err != nil {
		h.fail(w, "strategy", err)
		return
	}
	if !h.secretOK(r, p.WebhookSecret) {
		metrics.WebhookRequests.WithLabelValues("strategy", "unauthorized").Inc()
		writeErr(w, apperr.New(apperr.KindAuthentication, "invalid webhook secret"))
		return
	}

	sig, err := p.signal()
	if err != nil {
		h.fail(w, "strategy", err)
		return
	}

	res, err := h.trading.ExecuteSignal(ctx, "strategy", sig)
	if err != nil {
		h.fail(w, "strategy", err)
		return
	}

	metrics.WebhookRequests.WithLabelValues("strategy", "ok").Inc()
	writeJSON(w, http.StatusOK, execResult(res))
}

func execResult(res *trading.Result) execResponse {
	out := execResponse{
		Success:  !res.Partial,
		Action:   string(res.Action),
		Orders:   res.Orders,
		Position: res.Position,
		Partial:  res.Partial,
	}
	if res.Orders == nil {
		out.Orders = []models.OrderView{}
	}
	if res.OpenLegError != nil {
		body := errToBody(res.OpenLegError)
		out.OpenLegError = &body
	}
	return out
}

func (h *Handler) fail(w http.ResponseWriter, endpoint string, err error) {
	metrics.WebhookRequests.WithLabelValues(endpoint, "error").Inc()
	logger.Error("webhook %s: %v", endpoint, err)
	writeErr(w, err)
}

// ---- read surface ----

func (h *Handler) handlePositions(w http.ResponseWriter, r *http.Request) {
	views, err := h.positions.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if views == nil {
		views = []models.PositionView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handlePosition(w http.ResponseWriter, r *http.Request) {
	view, err := h.positions.Get(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleLeverage(w http.ResponseWriter, r *http.Request) {
	var p leveragePayload
	if err := decodeBody(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	res, err := h.positions.UpdateLeverage(r.Context(), r.PathValue("symbol"), p.Leverage)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleMarginType(w http.ResponseWriter, r *http.Request) {
	var p marginTypePayload
	if err := decodeBody(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	symbol := r.PathValue("symbol")
	if err := h.positions.UpdateMarginType(r.Context(), symbol, p.MarginType); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":      strings.ToUpper(symbol),
		"margin_type": strings.ToUpper(p.MarginType),
	})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	useCache := r.URL.Query().Get("fresh") == ""
	balances, err := h.account.Balance(r.Context(), useCache)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) handleAccountInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.account.Info(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeErr(w, apperr.New(apperr.KindValidation, "symbol query parameter is required"))
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeErr(w, apperr.New(apperr.KindValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	orders, err := h.client.AllOrders(r.Context(), strings.ToUpper(symbol), 0, 0, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViews(orders))
}

func (h *Handler) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	orders, err := h.client.OpenOrders(r.Context(), symbol)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViews(orders))
}

func (h *Handler) handleExecutions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if entries == nil {
		entries = []journalservice.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func orderViews(orders []asterdex.Order) []models.OrderView {
	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, o.View())
	}
	return views
}

// ---- auth ----

// secretOK checks the shared webhook secret. The body field takes precedence
// over the X-Webhook-Secret header; with no secret configured every call
// passes.
func (h *Handler) secretOK(r *http.Request, bodySecret string) bool {
	if !h.cfg.WebhookSecretConfigured() {
		return true
	}
	presented := bodySecret
	if presented == "" {
		presented = r.Header.Get("X-Webhook-Secret")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.cfg.WebhookSecret)) == 1
}

func (h *Handler) withAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.APIKeyConfigured() {
			key := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.APIKey)) != 1 {
				writeJSON(w, http.StatusForbidden, errBody{
					Error:  "FORBIDDEN",
					Detail: "invalid or missing API key",
					Code:   http.StatusForbidden,
				})
				return
			}
		}
		next(w, r)
	}
}

// ---- JSON plumbing ----

type errBody struct {
	Error        string `json:"error"`
	Detail       string `json:"detail"`
	Code         int    `json:"code"`
	ExchangeCode int64  `json:"exchange_code,omitempty"`
	ExchangeMsg  string `json:"exchange_msg,omitempty"`
}

func errToBody(err error) errBody {
	kind := apperr.KindOf(err)
	body := errBody{
		Error:  string(kind),
		Detail: err.Error(),
		Code:   apperr.HTTPStatus(kind),
	}
	if e, ok := apperr.AsError(err); ok {
		body.Detail = e.Msg
		body.ExchangeCode = e.ExchangeCode
		body.ExchangeMsg = e.ExchangeMsg
	}
	return body
}

func writeErr(w http.ResponseWriter, err error) {
	body := errToBody(err)
	writeJSON(w, body.Code, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("response marshal: %v", err)
		return
	}
	_, _ = w.Write(data)
}

func decodeBody(r *http.Request, v any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "failed to read request body")
	}
	if len(raw) == 0 {
		return apperr.New(apperr.KindValidation, "request body is required")
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "invalid JSON payload")
	}
	return nil
}

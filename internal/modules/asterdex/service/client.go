package service

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aster_bot/internal/apperr"
	"aster_bot/internal/modules/config"
	"aster_bot/internal/modules/metrics"
	"aster_bot/pkg/logger"
	"aster_bot/pkg/tracing"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Exchange error codes that mean the signature or timestamp was rejected.
const (
	codeInvalidTimestamp = -1021
	codeInvalidSignature = -1022
)

// Client performs authenticated calls against the AsterDEX futures REST API.
// Signed calls get a fresh timestamp, recvWindow, nonce and signature on
// every attempt — re-sending a stale pair would be rejected as a replay.
type Client struct {
	baseURL     string
	signer      *Signer
	http        *http.Client
	maxAttempts int
	baseDelay   time.Duration
	recvWindow  int64

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg *config.Config, signer *Signer) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.Aster.BaseURL, "/"),
		signer:      signer,
		http:        &http.Client{Timeout: cfg.HTTP.RequestTimeout},
		maxAttempts: cfg.HTTP.MaxAttempts,
		baseDelay:   cfg.HTTP.RetryBaseDelay,
		recvWindow:  cfg.HTTP.RecvWindow,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// request runs the bounded retry loop: maxAttempts attempts total,
// exponential backoff, 429/5xx/transport errors retried, everything else
// surfaced on first occurrence.
func (c *Client) request(ctx context.Context, method, endpoint string, params Params, signed bool) ([]byte, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "asterdex "+endpoint)
	defer span.Finish()

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			logger.Info("retrying %s %s in %s, attempt %d/%d", method, endpoint, delay, attempt+1, c.maxAttempts)
			metrics.ExchangeRetries.WithLabelValues(endpoint).Inc()
			if err := c.sleep(ctx, delay); err != nil {
				return nil, apperr.Wrap(err, apperr.KindTransient, "cancelled while backing off")
			}
		}

		body, err := c.attempt(ctx, method, endpoint, params, signed)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !apperr.Retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, params Params, signed bool) ([]byte, error) {
	p := params
	if signed {
		sp := make(Params, len(params)+2)
		for k, v := range params {
			sp[k] = v
		}
		sp["timestamp"] = time.Now().UnixMilli()
		sp["recvWindow"] = c.recvWindow

		var err error
		p, err = c.signer.AuthParams(sp)
		if err != nil {
			return nil, err
		}
	}

	values := url.Values{}
	for k, v := range p {
		if v == nil {
			continue
		}
		sv, err := canonicalValue(v)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, "parameter "+k)
		}
		values.Set(k, sv)
	}

	u := c.baseURL + endpoint
	if enc := values.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ExchangeRequests.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, apperr.Wrap(errors.Wrapf(err, "%s %s", method, endpoint), apperr.KindTransient, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindTransient, "read response body")
	}

	metrics.ExchangeRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return classifyResponse(resp.StatusCode, raw)
}

type exchangeErrBody struct {
	Code *int64  `json:"code"`
	Msg  *string `json:"msg"`
}

func classifyResponse(status int, raw []byte) ([]byte, error) {
	switch {
	case status == http.StatusTooManyRequests:
		return nil, apperr.New(apperr.KindRateLimit, "rate limit exceeded")
	case status >= 500:
		return nil, apperr.New(apperr.KindTransient, "server error %d: %s", status, truncate(raw, 200))
	case status >= 400:
		code, msg := parseExchangeError(raw)
		if code == codeInvalidSignature || code == codeInvalidTimestamp {
			return nil, apperr.Exchange(apperr.KindAuthentication, code, msg)
		}
		return nil, apperr.Exchange(apperr.KindExchangeRejection, code, msg)
	}

	// AsterDEX sometimes ships an error envelope with HTTP 200. Codes 0 and
	// 200 are success envelopes and pass through.
	if len(raw) > 0 && raw[0] == '{' {
		var e exchangeErrBody
		if err := sonic.Unmarshal(raw, &e); err == nil &&
			e.Code != nil && e.Msg != nil && *e.Code != 0 && *e.Code != 200 {
			if *e.Code == codeInvalidSignature || *e.Code == codeInvalidTimestamp {
				return nil, apperr.Exchange(apperr.KindAuthentication, *e.Code, *e.Msg)
			}
			return nil, apperr.Exchange(apperr.KindExchangeRejection, *e.Code, *e.Msg)
		}
	}
	return raw, nil
}

func parseExchangeError(raw []byte) (int64, string) {
	var e exchangeErrBody
	if err := sonic.Unmarshal(raw, &e); err == nil && e.Code != nil && e.Msg != nil {
		return *e.Code, *e.Msg
	}
	return 0, truncate(raw, 200)
}

func truncate(raw []byte, n int) string {
	if len(raw) > n {
		return string(raw[:n]) + "..."
	}
	return string(raw)
}

func decodeInto[T any](raw []byte) (T, error) {
	var out T
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return out, apperr.Wrap(err, apperr.KindInternal, "decode exchange response")
	}
	return out, nil
}

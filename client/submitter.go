// Package client submits ground-check records to the portal and drives the
// retry, rate-limit and token-recovery state machine around each request.
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"matchain-gc/models"
	"matchain-gc/utils"
)

// tokenInvalidMarker is the portal's message for a consumed or stale token.
const tokenInvalidMarker = "Token invalid atau sudah terpakai"

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies current session material and refreshes it on demand.
// *session.Manager satisfies it.
type TokenSource interface {
	Current() models.SessionMaterial
	Refresh(ctx context.Context) (models.SessionMaterial, error)
}

// Recorder receives submission metrics; nil-safe *observability.Collector satisfies it.
type Recorder interface {
	RecordSubmission(outcome string)
	RecordRateLimitWait(d time.Duration)
}

// Config describes the endpoint and retry policy.
type Config struct {
	PostURL   string
	Origin    string
	Referer   string
	UserAgent string

	Timeout             time.Duration // per request, default 30s
	MaxTransportRetries int           // extra attempts after a transport failure
	RateLimitDefault    time.Duration // wait when 429 has no usable Retry-After
}

// Client is the SubmissionClient.
type Client struct {
	cfg     Config
	http    Doer
	tokens  TokenSource
	logger  *utils.Logger
	metrics Recorder
	sleep   utils.SleepFunc

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customises a Client.
type Option func(*Client)

// WithDoer replaces the HTTP transport.
func WithDoer(d Doer) Option { return func(c *Client) { c.http = d } }

// WithSleep replaces the sleep used for rate-limit waits.
func WithSleep(s utils.SleepFunc) Option { return func(c *Client) { c.sleep = s } }

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option { return func(c *Client) { c.metrics = r } }

// WithRand fixes the random source for time_on_page.
func WithRand(r *rand.Rand) Option { return func(c *Client) { c.rnd = r } }

// New creates a Client.
func New(cfg Config, tokens TokenSource, logger *utils.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimitDefault <= 0 {
		cfg.RateLimitDefault = 30 * time.Second
	}
	if cfg.MaxTransportRetries < 0 {
		cfg.MaxTransportRetries = 0
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		logger: logger,
		sleep:  utils.Sleep,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug("[client] Configured: %s", c.cfg)
	return c
}

// Submit sends one record and returns its final outcome. Rate-limit waits and
// a single token recovery do not consume the transport retry budget.
func (c *Client) Submit(ctx context.Context, rec *models.Record) models.Outcome {
	material := c.tokens.Current()
	timeOnPage := c.timeOnPage()
	transportFailures := 0
	refreshed := false

	for {
		if err := ctx.Err(); err != nil {
			return models.Outcome{Kind: models.OutcomeTransportFailure, Message: "Interrupted", Interrupted: true}
		}

		out := c.attempt(ctx, rec, material, timeOnPage)

		switch out.Kind {
		case models.OutcomeRateLimited:
			c.logger.Warn("[client] Rate limit (429) for %s, waiting %v", rec.CompanyID, out.Wait)
			if c.metrics != nil {
				c.metrics.RecordRateLimitWait(out.Wait)
			}
			if err := c.sleep(ctx, out.Wait); err != nil {
				return c.finish(models.Outcome{Kind: models.OutcomeTransportFailure, Message: "Interrupted", Interrupted: true, Responded: true})
			}
			continue

		case models.OutcomeAuthInvalid:
			if refreshed {
				c.logger.Error("[client] Token still rejected after refresh for %s", rec.CompanyID)
				return c.finish(out)
			}
			refreshed = true
			c.logger.Warn("[client] Token invalid, refreshing session...")
			fresh, err := c.tokens.Refresh(ctx)
			if err != nil {
				c.logger.Error("[client] Could not obtain a new session or token: %v", err)
				return c.finish(out)
			}
			material = fresh
			c.logger.Info("[client] Resending %s with the new token", rec.CompanyID)
			continue

		case models.OutcomeTransportFailure:
			// Undecodable replies reached the server; resending could double-submit.
			if out.Interrupted || out.Responded {
				return c.finish(out)
			}
			transportFailures++
			if transportFailures > c.cfg.MaxTransportRetries {
				return c.finish(out)
			}
			c.logger.Warn("[client] %s (attempt %d/%d), retrying",
				out.Message, transportFailures, c.cfg.MaxTransportRetries+1)
			continue
		}

		return c.finish(out)
	}
}

func (c *Client) finish(out models.Outcome) models.Outcome {
	if c.metrics != nil {
		c.metrics.RecordSubmission(out.Kind.String())
	}
	return out
}

// attempt performs a single exchange and classifies it.
func (c *Client) attempt(ctx context.Context, rec *models.Record, m models.SessionMaterial, timeOnPage int) models.Outcome {
	form := BuildForm(rec, m, timeOnPage)
	c.logger.Debug("[client] Sending perusahaan_id=%s, time_on_page=%d", rec.CompanyID, timeOnPage)

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.PostURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.Outcome{Kind: models.OutcomeTransportFailure, Message: "Error: " + err.Error()}
	}
	c.setHeaders(req)
	for _, ck := range m.Cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportFailure(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportFailure(ctx, err)
	}
	c.logger.Debug("[client] Status code: %d", resp.StatusCode)

	return Classify(resp.StatusCode, resp.Header, body, c.cfg.RateLimitDefault)
}

func (c *Client) transportFailure(ctx context.Context, err error) models.Outcome {
	if ctx.Err() != nil {
		return models.Outcome{Kind: models.OutcomeTransportFailure, Message: "Interrupted", Interrupted: true}
	}
	if isTimeout(err) {
		c.logger.Error("[client] Request timeout (%v), server not responding", c.cfg.Timeout)
		return models.Outcome{Kind: models.OutcomeTransportFailure, Message: "Timeout"}
	}
	c.logger.Error("[client] Request error: %v", err)
	return models.Outcome{Kind: models.OutcomeTransportFailure, Message: "Error: " + err.Error()}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Origin", c.cfg.Origin)
	req.Header.Set("Referer", c.cfg.Referer)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
}

// timeOnPage is a random value in [30, 120] the portal expects per record.
func (c *Client) timeOnPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return 30 + c.rnd.Intn(91)
}

// BuildForm encodes the submission body. Name and address are base64 encoded
// when their edit flag is "1".
func BuildForm(rec *models.Record, m models.SessionMaterial, timeOnPage int) url.Values {
	name := rec.BusinessName
	if rec.NameEditFlag == "1" {
		name = base64.StdEncoding.EncodeToString([]byte(name))
	}
	addr := rec.BusinessAddress
	if rec.AddressEditFlag == "1" {
		addr = base64.StdEncoding.EncodeToString([]byte(addr))
	}

	v := url.Values{}
	v.Set("perusahaan_id", rec.CompanyID)
	v.Set("latitude", rec.Latitude)
	v.Set("longitude", rec.Longitude)
	v.Set("hasilgc", rec.ResultCode)
	v.Set("gc_token", m.SubmissionToken)
	v.Set("edit_nama", rec.NameEditFlag)
	v.Set("edit_alamat", rec.AddressEditFlag)
	v.Set("nama_usaha", name)
	v.Set("alamat_usaha", addr)
	v.Set("time_on_page", strconv.Itoa(timeOnPage))
	v.Set("_token", m.CSRFToken)
	return v
}

type response struct {
	Status     string `json:"status"`
	Message    any    `json:"message"`
	NewGCToken string `json:"new_gc_token"`
}

func (r response) message(fallback string) string {
	switch m := r.Message.(type) {
	case nil:
		return fallback
	case string:
		if m == "" {
			return fallback
		}
		return m
	default:
		b, _ := json.Marshal(m)
		return string(b)
	}
}

// Classify maps one HTTP response onto an outcome.
func Classify(status int, header http.Header, body []byte, rateLimitDefault time.Duration) models.Outcome {
	switch {
	case status == http.StatusOK:
		var r response
		if err := json.Unmarshal(body, &r); err != nil {
			return models.Outcome{Kind: models.OutcomeTransportFailure, Message: "decode", Responded: true}
		}
		if r.Status == "success" && r.NewGCToken != "" {
			return models.Outcome{Kind: models.OutcomeSuccess, NewToken: r.NewGCToken, Message: r.message(""), Responded: true}
		}
		return models.Outcome{Kind: models.OutcomeBusinessRejected, Message: r.message("No message"), Responded: true}

	case status == http.StatusTooManyRequests:
		return models.Outcome{Kind: models.OutcomeRateLimited, Wait: RetryAfter(header, rateLimitDefault), Responded: true}

	case status == http.StatusBadRequest:
		var r response
		if err := json.Unmarshal(body, &r); err != nil {
			return models.Outcome{Kind: models.OutcomeServerError, HTTPStatus: status, Responded: true}
		}
		msg := r.message("")
		if strings.Contains(msg, tokenInvalidMarker) {
			return models.Outcome{Kind: models.OutcomeAuthInvalid, Message: msg, HTTPStatus: status, Responded: true}
		}
		return models.Outcome{Kind: models.OutcomeServerError, HTTPStatus: status, Message: msg, Responded: true}
	}

	out := models.Outcome{Kind: models.OutcomeServerError, HTTPStatus: status, Responded: true}
	var r response
	if json.Unmarshal(body, &r) == nil {
		out.Message = r.message("")
	}
	return out
}

// RetryAfter returns the header's seconds plus a one second buffer, or def
// when the header is absent or not an integer.
func RetryAfter(header http.Header, def time.Duration) time.Duration {
	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n+1) * time.Second
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// String is used in logs.
func (c Config) String() string {
	return fmt.Sprintf("post=%s timeout=%v retries=%d", c.PostURL, c.Timeout, c.MaxTransportRetries)
}

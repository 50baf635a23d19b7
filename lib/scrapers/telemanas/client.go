package telemanas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"telemanas-backend/lib/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/telemanas")

const DefaultBaseURL = "https://telemanas.mohfw.gov.in"

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var jsonHeaders = map[string]string{
	"Accept":           "application/json, text/plain, */*",
	"Accept-Language":  "en-US,en;q=0.9",
	"Referer":          DefaultBaseURL + "/",
	"X-Requested-With": "XMLHttpRequest",
}

type ClientOptions struct {
	// defaults to DefaultBaseURL
	BaseURL string
	// per request, defaults to 15s
	Timeout time.Duration
	// total attempt budget per request, defaults to 3, min 1
	MaxRetries int
	// base delay before the second attempt, doubled each retry,
	// defaults to 1s
	RetryDelay time.Duration
	// suppresses request logging/instrumentation
	Quiet bool
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Second * 15
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// Client talks to the dashboard's JSON endpoints while passing itself
// off as a browser.
type Client struct {
	BaseURL *url.URL
	Http    *resty.Client

	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	quiet      bool
}

func NewClient(opts ClientOptions) (*Client, error) {
	opts = opts.withDefaults()

	baseUrl, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", browserUserAgent)
	client.SetHeaders(jsonHeaders)
	client.SetTimeout(opts.Timeout)

	if !opts.Quiet {
		telemetry.InstrumentResty(client, "scrapers/telemanas/http")
	}

	return &Client{
		BaseURL:    baseUrl,
		Http:       client,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		quiet:      opts.Quiet,
	}, nil
}

type Request struct {
	// defaults to GET
	Method string
	// absolute, or a path resolved against the client's base url
	Url string
	// merged over the default browser header set
	Headers map[string]string
	Body    any
}

type Response struct {
	Ok         bool
	StatusCode int
	Headers    http.Header
	// decoded body, nil when the body isn't valid JSON
	Json any
	// raw body text, always populated
	Body string
}

// transport failures where another attempt is assumed futile: the host
// isn't there, actively rejects us, or is too slow to ever answer
// within the timeout
func isPermanentTransportError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Do issues a single logical request: up to maxRetries attempts with
// exponential backoff between them. 2xx and 4xx responses come back
// immediately, 5xx and transient transport failures are retried.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, "client:Do")
	defer span.End()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	res, err := backoff.RetryWithData(func() (*Response, error) {
		attempt++
		out, err := c.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		if isPermanentTransportError(err) {
			return nil, backoff.Permanent(err)
		}
		if !c.quiet {
			slog.WarnContext(
				ctx, "request attempt failed",
				"url", req.Url,
				"attempt", attempt,
				"max", c.maxRetries,
				"err", err,
			)
		}
		return nil, err
	}, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(c.maxRetries-1)),
		ctx,
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.Http.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	res, err := r.Execute(method, req.Url)
	if err != nil {
		return nil, err
	}

	out := &Response{
		StatusCode: res.StatusCode(),
		Headers:    res.Header(),
		Body:       res.String(),
	}

	// a body that fails to decode is not an error, the raw text stands in
	var decoded any
	if json.Unmarshal(res.Body(), &decoded) == nil {
		out.Json = decoded
	}

	status := res.StatusCode()
	switch {
	case status >= 200 && status < 300:
		out.Ok = true
		return out, nil
	case status >= 500:
		return nil, fmt.Errorf("upstream returned status %d", status)
	default:
		// client errors aren't transient, hand them back as-is
		return out, nil
	}
}

// pulls a string-ish field out of a decoded JSON body, falling back
// when the key is missing, empty or of an unexpected type
func jsonField(body any, key string, fallback string) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return fallback
	}
	switch v := obj[key].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fallback
}

// GetCallCount fetches the cumulative call counter.
func (c *Client) GetCallCount(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:GetCallCount")
	defer span.End()

	res, err := c.Do(ctx, Request{Url: "/getCallCount"})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if !res.Ok {
		err := fmt.Errorf("getCallCount returned status %d", res.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return jsonField(res.Json, "Total_Calls", "0"), nil
}

// GetTMCData fetches the cell/institute/center counters.
func (c *Client) GetTMCData(ctx context.Context) (TMCData, error) {
	ctx, span := tracer.Start(ctx, "client:GetTMCData")
	defer span.End()

	res, err := c.Do(ctx, Request{Url: "/getTMCcount"})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TMCData{}, err
	}
	if !res.Ok {
		err := fmt.Errorf("getTMCcount returned status %d", res.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TMCData{}, err
	}
	return TMCData{
		TeleManasCells:              jsonField(res.Json, "TMC", "0"),
		MentoringInstitutes:         jsonField(res.Json, "MI", "0"),
		RegionalCoordinatingCenters: jsonField(res.Json, "RCC", "0"),
	}, nil
}

// GetAllData issues both sub-requests concurrently and joins them.
// A failed sub-request degrades its fields to "0", it never takes the
// other one down with it, and the call as a whole never fails.
func (c *Client) GetAllData(ctx context.Context) Snapshot {
	ctx, span := tracer.Start(ctx, "client:GetAllData")
	defer span.End()

	snapshot := ZeroSnapshot()

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		count, err := c.GetCallCount(ctx)
		if err != nil {
			if !c.quiet {
				slog.WarnContext(ctx, "call count unavailable", "err", err)
			}
			return
		}
		snapshot.TotalCalls = count
	}()
	go func() {
		defer wg.Done()
		tmc, err := c.GetTMCData(ctx)
		if err != nil {
			if !c.quiet {
				slog.WarnContext(ctx, "tmc data unavailable", "err", err)
			}
			return
		}
		snapshot.TeleManasCells = tmc.TeleManasCells
		snapshot.MentoringInstitutes = tmc.MentoringInstitutes
		snapshot.RegionalCoordinatingCenters = tmc.RegionalCoordinatingCenters
	}()
	wg.Wait()

	return snapshot
}

// TestConnection reports whether the call count endpoint answers with
// a 2xx, swallowing every failure to false.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "client:TestConnection")
	defer span.End()

	res, err := c.Do(ctx, Request{Url: "/getCallCount"})
	if err != nil {
		span.RecordError(err)
		return false
	}
	return res.Ok
}

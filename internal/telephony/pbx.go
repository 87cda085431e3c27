package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crm-telephony/internal/cdr"
	"crm-telephony/pkg/logger"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// FetchError is returned for transport failures, non-2xx responses and JSON
// error bodies from the feed. It aborts a sync.
type FetchError struct {
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status > 0 && e.Err != nil:
		return fmt.Sprintf("pbx: status %d: %s: %v", e.Status, e.Message, e.Err)
	case e.Status > 0:
		return fmt.Sprintf("pbx: status %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("pbx: %s: %v", e.Message, e.Err)
	default:
		return "pbx: " + e.Message
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

type PBXOptions struct {
	BaseURL string
	APIKey  string
	Tenant  string

	// RecordingURLTemplate may contain {id} and {tenant}.
	RecordingURLTemplate string

	// SendDateRange adds start/end to feed requests. Off by default: the
	// vendor's dated and undated responses disagree.
	SendDateRange bool

	Timeout       time.Duration
	RatePerSecond float64

	HTTPClient *http.Client
}

// PBXClient talks to the PBX HTTP API.
type PBXClient struct {
	opts    PBXOptions
	client  *http.Client
	limiter *rate.Limiter
}

var _ FeedSource = (*PBXClient)(nil)

func NewPBXClient(opts PBXOptions) (*PBXClient, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, eris.New("pbx: base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, eris.Wrap(err, "pbx: invalid base url")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &PBXClient{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// FetchCDRs requests the CSV feed. JSON responses are vendor errors.
func (c *PBXClient) FetchCDRs(ctx context.Context, req FetchCDRRequest) (FetchCDRResult, error) {
	q := c.baseQuery()
	q.Set("info", "cdrs")
	q.Set("format", "csv")
	if ext := strings.TrimSpace(req.Extension); ext != "" {
		q.Set("phone", ext)
	}
	if c.opts.SendDateRange && !req.From.IsZero() && !req.To.IsZero() {
		q.Set("start", req.From.Format("2006-01-02"))
		q.Set("end", req.To.Format("2006-01-02"))
	}

	body, contentType, err := c.get(ctx, q)
	if err != nil {
		return FetchCDRResult{}, err
	}
	if isJSON(contentType) {
		return FetchCDRResult{}, &FetchError{Status: http.StatusOK, Message: errorMessage(body)}
	}

	raw := string(body)
	log := logger.From(ctx)
	if !cdr.HeaderMatches(cdr.Header(raw)) {
		log.Debug("pbx feed header differs from positional layout", "header", cdr.Header(raw))
	}
	log.Debug("pbx feed fetched", "bytes", len(body), "extension", req.Extension)
	return FetchCDRResult{CSV: raw, ContentType: contentType, Bytes: len(body)}, nil
}

// FetchRecording retrieves a recording by unique id. Unexpected shapes
// degrade to the constructed URL plus whatever body came back.
func (c *PBXClient) FetchRecording(ctx context.Context, uniqueID string) (Recording, error) {
	uniqueID = strings.TrimSpace(uniqueID)
	if uniqueID == "" {
		return Recording{}, &FetchError{Message: "unique id is required"}
	}
	q := c.baseQuery()
	q.Set("info", "recording")
	q.Set("id", uniqueID)

	rec := Recording{URL: cdr.RecordingURL(c.opts.RecordingURLTemplate, uniqueID, c.opts.Tenant)}
	body, contentType, err := c.get(ctx, q)
	if err != nil {
		return rec, err
	}
	rec.ContentType = contentType

	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.HasPrefix(mt, "audio/"):
		rec.Audio = body
	case isJSON(contentType):
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			rec.Body = string(body)
			return rec, nil
		}
		rec.Payload = payload
		for _, k := range []string{"url", "recording_url"} {
			if s, ok := payload[k].(string); ok && s != "" {
				rec.URL = s
				break
			}
		}
	default:
		rec.Body = string(body)
	}
	return rec, nil
}

func (c *PBXClient) baseQuery() url.Values {
	q := url.Values{}
	q.Set("key", c.opts.APIKey)
	q.Set("request-type", "INFO")
	q.Set("tenant", c.opts.Tenant)
	return q
}

func (c *PBXClient) get(ctx context.Context, q url.Values) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", &FetchError{Message: "rate limiter", Err: err}
	}

	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return nil, "", &FetchError{Message: "invalid base url", Err: err}
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", &FetchError{Message: "build request", Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", &FetchError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &FetchError{Status: resp.StatusCode, Message: "read body", Err: err}
	}
	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if isJSON(contentType) {
			msg = errorMessage(body)
		} else if s := strings.TrimSpace(string(body)); s != "" {
			msg = truncate(s, 200)
		}
		return nil, contentType, &FetchError{Status: resp.StatusCode, Message: msg}
	}
	return body, contentType, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// errorMessage extracts a message from a vendor JSON error body.
func errorMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err == nil {
		for _, k := range []string{"message", "error", "msg"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty error body"
	}
	return truncate(s, 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

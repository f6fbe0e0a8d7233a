package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.betfair.com/exchange/betting/rest/v1.0"
	defaultTimeout = 20 * time.Second
	maxErrorBody   = 2048
)

// Session is the authenticated handle obtained outside this package.
type Session struct {
	AppKey string
	Token  string
}

// Client talks to the exchange betting API over JSON/REST.
type Client struct {
	baseURL    string
	session    Session
	httpClient *http.Client
}

// Config provides optional overrides.
type Config struct {
	BaseURL    string
	Session    Session
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient builds a configured exchange client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		session:    cfg.Session,
		httpClient: httpClient,
	}
}

func (c *Client) Name() string {
	return "exchange"
}

// apiError is the decoded fault body. Code is the exchange error code, e.g.
// TOO_MUCH_DATA or TOO_MANY_REQUESTS.
type apiError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("exchange API %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("exchange API %d: %s", e.StatusCode, e.Body)
}

// errDecode wraps JSON decoding failures of a 2xx body.
var errDecode = errors.New("decode response")

// call posts body to the named operation and decodes the response into dst.
// There is no retry here: the caller owns the retry policy.
func (c *Client) call(ctx context.Context, operation string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	u := fmt.Sprintf("%s/%s/", c.baseURL, operation)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.session.AppKey != "" {
		req.Header.Set("X-Application", c.session.AppKey)
	}
	if c.session.Token != "" {
		req.Header.Set("X-Authentication", c.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: %v", errDecode, err)
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &apiError{
		StatusCode: resp.StatusCode,
		Code:       faultCode(raw),
		Body:       string(raw),
	}
}

type faultBody struct {
	Detail struct {
		APINGException struct {
			ErrorCode string `json:"errorCode"`
		} `json:"APINGException"`
	} `json:"detail"`
	ErrorCode string `json:"errorCode"`
}

func faultCode(raw []byte) string {
	var f faultBody
	if err := json.Unmarshal(raw, &f); err != nil {
		return ""
	}
	if code := f.Detail.APINGException.ErrorCode; code != "" {
		return code
	}
	return f.ErrorCode
}

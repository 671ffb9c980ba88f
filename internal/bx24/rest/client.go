// Package rest implements bx24.Client against the Bitrix24 REST gateway.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"bx24report/internal/bx24"
)

const (
	// APITimeout is the timeout for a single REST call.
	APITimeout = 30 * time.Second

	// TokenURL is the Bitrix24 OAuth token endpoint used for refreshes.
	TokenURL = "https://oauth.bitrix.info/oauth/token/"
)

var (
	// ErrNoAccessToken is returned when the auth descriptor carries no token.
	ErrNoAccessToken = errors.New("auth descriptor has no access token")

	// ErrNoEndpoint is returned when neither a domain nor a client endpoint is known.
	ErrNoEndpoint = errors.New("auth descriptor has no domain or client endpoint")
)

// Options configures a Client.
type Options struct {
	// HTTPClient is the base client the OAuth2 transport wraps.
	HTTPClient *http.Client

	// ClientID and ClientSecret enable token refresh when the auth
	// descriptor carries a refresh token.
	ClientID     string
	ClientSecret string

	// TokenURL overrides the refresh endpoint.
	TokenURL string

	// Timeout overrides APITimeout.
	Timeout time.Duration

	// Logger receives diagnostics. Defaults to discarding.
	Logger *log.Logger
}

// Client implements bx24.Client over HTTP.
type Client struct {
	auth     bx24.Auth
	endpoint string
	source   oauth2.TokenSource
	http     *http.Client
	timeout  time.Duration
	logger   *log.Logger
}

// envelope is the gateway's reply shape.
type envelope struct {
	Result           json.RawMessage `json:"result"`
	Total            *int            `json:"total"`
	Next             *int            `json:"next"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// New creates a REST client that relays the host-provided token as an
// OAuth2 bearer credential.
func New(ctx context.Context, auth bx24.Auth, opts Options) (*Client, error) {
	if auth.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	endpoint := auth.ClientEndpoint
	if endpoint == "" {
		if auth.Domain == "" {
			return nil, ErrNoEndpoint
		}
		endpoint = "https://" + auth.Domain + "/rest/"
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	token := &oauth2.Token{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		TokenType:    "Bearer",
	}
	if auth.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	}

	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	// Create token source that auto-refreshes when the app credentials are known
	var source oauth2.TokenSource
	if opts.ClientID != "" && opts.ClientSecret != "" && auth.RefreshToken != "" {
		tokenURL := opts.TokenURL
		if tokenURL == "" {
			tokenURL = TokenURL
		}
		conf := &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		// Config.TokenSource already reuses the token until it expires
		source = conf.TokenSource(ctx, token)
	} else {
		source = oauth2.ReuseTokenSource(token, oauth2.StaticTokenSource(token))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = APITimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Client{
		auth:     auth,
		endpoint: endpoint,
		source:   source,
		http:     oauth2.NewClient(ctx, source),
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Endpoint returns the REST base URL calls are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// CallMethod implements bx24.Client. The request runs on its own goroutine.
func (c *Client) CallMethod(method string, params bx24.Params, cb bx24.Callback) {
	go func() {
		res := c.call(method, params)
		if cb != nil {
			cb(res)
		}
	}()
}

func (c *Client) call(method string, params bx24.Params) bx24.Result {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	body, err := json.Marshal(params)
	if err != nil {
		return c.failed(method, bx24.CodeRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+method+".json", bytes.NewReader(body))
	if err != nil {
		return c.failed(method, bx24.CodeRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.failed(method, bx24.CodeRequestFailed, err)
	}
	defer googleapi.CloseBody(resp)

	if err := googleapi.CheckResponse(resp); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			if e := decodeError([]byte(apiErr.Body)); e != nil {
				c.logger.Printf("bx24: %s: %v", method, e)
				return bx24.ErrorResult(e)
			}
			return c.failed(method, bx24.CodeRequestFailed, fmt.Errorf("http status %d", apiErr.Code))
		}
		return c.failed(method, bx24.CodeRequestFailed, err)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return c.failed(method, bx24.CodeInvalidResponse, err)
	}
	if env.Error != "" {
		e := &bx24.Error{Code: env.Error, Description: env.ErrorDescription}
		c.logger.Printf("bx24: %s: %v", method, e)
		return bx24.ErrorResult(e)
	}

	data := unwrapList(env.Result)
	if env.Total != nil {
		return bx24.NewResult(data, *env.Total, true)
	}
	return bx24.NewResult(data, 0, false)
}

func (c *Client) failed(method, code string, err error) bx24.Result {
	c.logger.Printf("bx24: %s: %s: %v", method, code, err)
	return bx24.ErrorResult(&bx24.Error{Code: code, Description: err.Error()})
}

// GetAuth implements bx24.Client. The access token reflects the latest refresh.
func (c *Client) GetAuth() bx24.Auth {
	auth := c.auth
	if tok, err := c.source.Token(); err == nil {
		auth.AccessToken = tok.AccessToken
		if tok.RefreshToken != "" {
			auth.RefreshToken = tok.RefreshToken
		}
	} else {
		c.logger.Printf("bx24: token refresh failed: %v", err)
	}
	return auth
}

// Init implements bx24.Client. The token is already relayed, so the
// handshake completes immediately.
func (c *Client) Init(cb func()) {
	if cb != nil {
		cb()
	}
}

// decodeError extracts a gateway error descriptor from a reply body.
func decodeError(body []byte) *bx24.Error {
	var e bx24.Error
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return nil
	}
	return &e
}

// unwrapList returns the task array from a {"tasks": [...]} result, or the
// result unchanged.
func unwrapList(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var wrapper struct {
		Tasks json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil || wrapper.Tasks == nil {
		return raw
	}
	return wrapper.Tasks
}

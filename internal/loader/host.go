package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"google.golang.org/api/googleapi"

	"bx24report/internal/bx24"
	"bx24report/internal/bx24/rest"
)

const (
	// DefaultSDKURL is the vendor SDK resource.
	DefaultSDKURL = "//api.bitrix24.com/api/v1/"

	// LoadTimeout bounds fetching the SDK resource.
	LoadTimeout = 10 * time.Second

	// maxDescriptorSize caps how much of the SDK resource is read.
	maxDescriptorSize = 1 << 20
)

// HostConfig configures an HTTPHost.
type HostConfig struct {
	// SDKURL is fetched by Load. Scheme-relative URLs get https.
	SDKURL string

	// Headless marks a process with no host context.
	Headless bool

	// Auth carries ambient placement credentials, if the host passed any.
	Auth *bx24.Auth

	// HTTPClient fetches the SDK resource. Defaults to a client with LoadTimeout.
	HTTPClient *http.Client

	// REST configures clients built from ambient or loaded credentials.
	REST rest.Options

	// Logger receives diagnostics. Defaults to log.Default().
	Logger *log.Logger
}

// HTTPHost is a Host backed by the Bitrix24 REST gateway. The SDK resource
// it loads is a JSON host descriptor carrying the same fields as bx24.Auth;
// any other 2xx body means the resource loaded but no host is present.
type HTTPHost struct {
	sdkURL   string
	headless bool
	http     *http.Client
	restOpts rest.Options
	logger   *log.Logger

	mu     sync.Mutex
	client bx24.Client
	loads  int

	loadOnce sync.Once
	loadErr  error
}

// NewHTTPHost creates an HTTPHost. Ambient credentials, when given, must be
// usable.
func NewHTTPHost(ctx context.Context, cfg HostConfig) (*HTTPHost, error) {
	h := &HTTPHost{
		sdkURL:   normalizeURL(cfg.SDKURL),
		headless: cfg.Headless,
		http:     cfg.HTTPClient,
		restOpts: cfg.REST,
		logger:   cfg.Logger,
	}
	if h.http == nil {
		h.http = &http.Client{Timeout: LoadTimeout}
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	if h.restOpts.HTTPClient == nil {
		h.restOpts.HTTPClient = cfg.HTTPClient
	}

	if cfg.Auth != nil {
		c, err := rest.New(ctx, *cfg.Auth, h.restOpts)
		if err != nil {
			return nil, fmt.Errorf("ambient credentials: %w", err)
		}
		h.client = c
	}
	return h, nil
}

// Interactive implements Host.
func (h *HTTPHost) Interactive() bool {
	return !h.headless
}

// Client implements Host.
func (h *HTTPHost) Client() bx24.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

// Loads reports how many times the SDK resource was fetched. It is 0 or 1.
func (h *HTTPHost) Loads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads
}

// Load implements Host. The resource is fetched at most once per host;
// later calls, from any Loader, return the first outcome.
func (h *HTTPHost) Load(ctx context.Context) error {
	h.loadOnce.Do(func() {
		h.loadErr = h.fetch(ctx)
	})
	return h.loadErr
}

func (h *HTTPHost) fetch(ctx context.Context) error {
	h.mu.Lock()
	h.loads++
	h.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.sdkURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json, application/javascript")

	resp, err := h.http.Do(req)
	if err != nil {
		return err
	}
	defer googleapi.CloseBody(resp)

	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptorSize))
	if err != nil {
		return err
	}

	// Loaded, but not a host descriptor: we are outside the host.
	var auth bx24.Auth
	if err := json.Unmarshal(body, &auth); err != nil || auth.AccessToken == "" {
		return nil
	}

	c, err := rest.New(ctx, auth, h.restOpts)
	if err != nil {
		h.logger.Printf("warning: host descriptor unusable: %v", err)
		return nil
	}

	h.mu.Lock()
	h.client = c
	h.mu.Unlock()
	return nil
}

func normalizeURL(u string) string {
	if u == "" {
		u = DefaultSDKURL
	}
	if len(u) > 2 && u[:2] == "//" {
		return "https:" + u
	}
	return u
}

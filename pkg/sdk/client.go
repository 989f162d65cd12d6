package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Client talks to the CV management API on behalf of one session. Protected
// calls go through a SessionTransport; login, registration and role listing
// are sent without session handling.
type Client struct {
	baseURL   string
	store     *TokenStore
	public    *http.Client
	session   *http.Client
	refresher *refresher
	log       logrus.FieldLogger
}

// ClientOptions configures client construction.
type ClientOptions struct {
	HTTPClient  *http.Client
	Navigator   Navigator
	Logger      logrus.FieldLogger
	ExpiryGuard ExpiryGuard
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the HTTP client whose transport, timeout and
// cookie jar are used for every call.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithNavigator sets where a failed refresh redirects to the login page.
// Without one, no redirect happens.
func WithNavigator(nav Navigator) ClientOption {
	return func(opts *ClientOptions) {
		opts.Navigator = nav
	}
}

// WithLogger overrides the logrus logger.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(opts *ClientOptions) {
		opts.Logger = log
	}
}

// WithExpiryGuard overrides the clock and leeway used for local expiry checks.
func WithExpiryGuard(guard ExpiryGuard) ClientOption {
	return func(opts *ClientOptions) {
		opts.ExpiryGuard = guard
	}
}

// NewClient creates a client for the API at baseURL that reads and writes
// tokens through store. A nil store keeps tokens in memory only.
func NewClient(baseURL string, store *TokenStore, optFns ...ClientOption) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if store == nil {
		store = newTokenStore(NewMemoryStore())
	}

	base := opts.HTTPClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	log := opts.Logger.WithField("component", "session")

	public := *opts.HTTPClient
	public.Transport = base

	baseURL = strings.TrimRight(baseURL, "/")
	r := &refresher{
		baseURL: baseURL,
		http:    &public,
		store:   store,
		guard:   opts.ExpiryGuard,
		nav:     opts.Navigator,
		log:     log,
	}

	session := *opts.HTTPClient
	session.Transport = &SessionTransport{
		base:      base,
		store:     store,
		guard:     opts.ExpiryGuard,
		refresher: r,
	}

	return &Client{
		baseURL:   baseURL,
		store:     store,
		public:    &public,
		session:   &session,
		refresher: r,
		log:       log,
	}
}

// Store returns the token store backing the session.
func (c *Client) Store() *TokenStore { return c.store }

// HTTPClient returns an *http.Client whose requests carry the session token
// and survive one token expiry.
func (c *Client) HTTPClient() *http.Client { return c.session }

// Login authenticates with email and password and stores the issued pair.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	if err := c.call(ctx, c.public, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if result.Token == "" || result.RefreshToken == "" {
		return nil, fmt.Errorf("login: response is missing tokens")
	}
	if err := c.store.Set(result.Token, result.RefreshToken); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.log.WithField("user_id", result.ID).Info("logged in")
	return &result, nil
}

// Register creates an account. The server always grants the Employee role.
func (c *Client) Register(ctx context.Context, input RegisterInput) error {
	if err := c.call(ctx, c.public, http.MethodPost, "/auth/register", input, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Roles lists every role the server knows about.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.call(ctx, c.public, http.MethodGet, "/roles", nil, &roles); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// Refresh forces a token refresh, sharing any refresh already in flight.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refresher.refresh(ctx, c.store.Get().AccessToken)
	return err
}

// Logout tells the server the session is over so it can revoke both tokens,
// then clears local tokens. The server call is best effort; local tokens are
// cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	if creds := c.store.Get(); creds.AccessToken != "" {
		body, _ := json.Marshal(RefreshRequest{RefreshToken: creds.RefreshToken})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearer(creds.AccessToken))
			var resp *http.Response
			if resp, err = c.public.Do(req); err == nil {
				err = decodeEnvelope(resp, nil)
			}
		}
		if err != nil {
			c.log.WithError(err).Debug("server logout failed")
		}
	}

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.log.Info("logged out")
	return nil
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.GetJSON(ctx, "/profile", &user); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &user, nil
}

// Dashboards lists the dashboards the caller may open, highest priority first.
func (c *Client) Dashboards(ctx context.Context) ([]DashboardLink, error) {
	var links []DashboardLink
	if err := c.GetJSON(ctx, "/dashboards", &links); err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	return links, nil
}

// Dashboard loads the dashboard of scope (admin, pm, bulorlead or employee).
func (c *Client) Dashboard(ctx context.Context, scope string) (*Dashboard, error) {
	var d Dashboard
	if err := c.GetJSON(ctx, "/dashboards/"+scope, &d); err != nil {
		return nil, fmt.Errorf("get %s dashboard: %w", scope, err)
	}
	return &d, nil
}

// GetJSON performs an authenticated GET and decodes the envelope data into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.call(ctx, c.session, http.MethodGet, path, nil, out)
}

// PostJSON performs an authenticated POST of in and decodes the envelope data
// into out. Either may be nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, c.session, http.MethodPost, path, in, out)
}

// Do sends an arbitrary request through the session transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.session.Do(req)
}

func (c *Client) call(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

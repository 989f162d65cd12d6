package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

// ErrNotLoggedIn is returned when a command needs a session and none resolves.
var ErrNotLoggedIn = errors.New("not logged in; please run `cvctl auth login`")

// Provider yields the SDK client and session backed by the on-disk
// credential and scope stores. Everything is built at most once per process.
type Provider struct {
	serverURL  string
	dir        string
	route      string
	log        logrus.FieldLogger
	httpClient *http.Client

	nav *sdk.MemoryNavigator

	clientOnce sync.Once
	client     *sdk.Client
	scopes     *auth.ScopeStore
	clientErr  error

	sessionOnce sync.Once
	session     *sdk.Session
	sessionErr  error
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client used to reach the server.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// WithLogger sets the logger handed to the SDK.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Provider) { p.log = log }
}

// NewProvider constructs a Provider for serverURL storing state under dir.
// route is the page the CLI pretends to be on, which decides whether a failed
// refresh redirects to login.
func NewProvider(serverURL, dir, route string, opts ...Option) *Provider {
	p := &Provider{
		serverURL:  serverURL,
		dir:        dir,
		route:      route,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logrus.StandardLogger()
	}
	p.nav = sdk.NewMemoryNavigator(route)
	return p
}

// Navigator returns the navigator every redirect goes through.
func (p *Provider) Navigator() *sdk.MemoryNavigator { return p.nav }

// SDKClient returns the client bound to the credential file.
func (p *Provider) SDKClient() (*sdk.Client, error) {
	p.clientOnce.Do(func() {
		creds, err := auth.NewFileStoreAt(p.dir)
		if err != nil {
			p.clientErr = err
			return
		}
		scopes, err := auth.NewScopeStoreAt(p.dir)
		if err != nil {
			p.clientErr = err
			return
		}
		store, err := sdk.NewTokenStore(creds)
		if err != nil {
			p.clientErr = err
			return
		}
		p.scopes = scopes
		p.client = sdk.NewClient(p.serverURL, store,
			sdk.WithHTTPClient(p.httpClient),
			sdk.WithNavigator(p.nav),
			sdk.WithLogger(p.log),
		)

		// A session that ends anywhere also ends the remembered role.
		store.Subscribe(func(c sdk.Credentials) {
			if c.Empty() {
				if err := scopes.Delete(); err != nil {
					p.log.WithError(err).Warn("failed to delete scope file")
				}
			}
		})
	})
	return p.client, p.clientErr
}

// Session returns a resolved session. The remembered active role is restored
// when the user still holds it.
func (p *Provider) Session(ctx context.Context) (*sdk.Session, error) {
	p.sessionOnce.Do(func() {
		client, err := p.SDKClient()
		if err != nil {
			p.sessionErr = err
			return
		}
		p.session = sdk.NewSession(client)
		if err := p.session.Resolve(ctx); err != nil {
			p.sessionErr = err
			return
		}
		p.restoreRole()
	})
	return p.session, p.sessionErr
}

// RequireSession is Session, failing with ErrNotLoggedIn when nobody is signed in.
func (p *Provider) RequireSession(ctx context.Context) (*sdk.Session, error) {
	session, err := p.Session(ctx)
	if err != nil {
		if errors.Is(err, sdk.ErrRefreshFailed) || errors.Is(err, sdk.ErrSessionEnded) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	if session.User() == nil {
		return nil, ErrNotLoggedIn
	}
	return session, nil
}

// SaveScope remembers the session's active role, or forgets it when there is
// no scope.
func (p *Provider) SaveScope(session *sdk.Session) error {
	if p.scopes == nil {
		return nil
	}
	scope := session.Scope()
	if scope == nil {
		return p.scopes.Delete()
	}
	return p.scopes.Save(scope.Active().Name)
}

func (p *Provider) restoreRole() {
	scope := p.session.Scope()
	if scope == nil {
		return
	}
	saved, err := p.scopes.Load()
	if err != nil {
		p.log.WithError(err).Warn("ignoring unreadable scope file")
		return
	}
	if saved == "" || saved == scope.Active().Name {
		return
	}
	if !scope.Switch(saved) {
		p.log.WithField("role", saved).Debug("remembered role no longer held")
	}
}

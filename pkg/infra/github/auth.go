package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const (
	appTokenLifetime = 10 * time.Minute
	refreshCooldown  = 10 * time.Second
)

type accessToken struct {
	token     string
	expiresAt time.Time
}

// AppAuth manages the bot's identity credentials: a short-lived signed app
// identity token, and one access token per installation derived from it.
// Only the refresh path writes a given installation's token; readers take
// the read lock.
type AppAuth struct {
	appID       int64
	signKey     jwk.Key
	staticToken string
	baseURL     string
	httpClient  *http.Client
	cooldown    time.Duration

	mu     sync.RWMutex
	appJWT string
	tokens map[types.InstallationID]accessToken
}

// AuthOption is a functional option for AppAuth configuration
type AuthOption func(*AppAuth)

// WithAuthBaseURL overrides the API endpoint (used in tests)
func WithAuthBaseURL(baseURL string) AuthOption {
	return func(a *AppAuth) {
		a.baseURL = baseURL
	}
}

// WithAuthHTTPClient overrides the HTTP client
func WithAuthHTTPClient(client *http.Client) AuthOption {
	return func(a *AppAuth) {
		a.httpClient = client
	}
}

// WithCooldown overrides the wait after a credential refresh
func WithCooldown(d time.Duration) AuthOption {
	return func(a *AppAuth) {
		a.cooldown = d
	}
}

// WithStaticToken sets a legacy static access token. When no app credentials
// are configured, every call authenticates with this token and refresh is a
// no-op.
func WithStaticToken(token string) AuthOption {
	return func(a *AppAuth) {
		a.staticToken = token
	}
}

// NewAppAuth creates a credential manager. privateKey is the app's PEM
// encoded signing key; pass nil together with WithStaticToken for legacy
// static-token operation.
func NewAppAuth(appID int64, privateKey []byte, opts ...AuthOption) (*AppAuth, error) {
	auth := &AppAuth{
		appID:      appID,
		baseURL:    "https://api.github.com",
		httpClient: http.DefaultClient,
		cooldown:   refreshCooldown,
		tokens:     make(map[types.InstallationID]accessToken),
	}

	for _, opt := range opts {
		opt(auth)
	}

	if len(privateKey) > 0 {
		key, err := jwk.ParseKey(privateKey, jwk.WithPEM(true))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse app private key")
		}
		auth.signKey = key
	} else if auth.staticToken == "" {
		return nil, goerr.New("either an app private key or a static access token is required")
	}

	return auth, nil
}

// Bootstrap mints the app identity token and requests one access token per
// installation. A failure for one installation leaves it without a cached
// token; its calls fall back to the app identity header until a refresh
// succeeds.
func (a *AppAuth) Bootstrap(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	if a.signKey == nil {
		logger.Info("No app credentials configured, using static access token")
		return nil
	}

	if err := a.mintAppJWT(); err != nil {
		return err
	}

	installations, err := a.listInstallations(ctx)
	if err != nil {
		logger.Error("Failed to list installations, all calls fall back to app identity", "error", err)
		return nil
	}

	for _, id := range installations {
		if err := a.fetchToken(ctx, id); err != nil {
			logger.Warn("Failed to fetch installation token",
				"installation_id", id,
				"error", err,
			)
		}
	}

	logger.Info("Credential bootstrap complete",
		"installations", len(installations),
		"cached_tokens", len(a.tokens),
	)
	return nil
}

// AuthHeader returns the Authorization header value for an installation.
// With a cached installation token it is token-style; otherwise the app
// identity bearer header, whose use may fail and trigger the refresh path.
func (a *AppAuth) AuthHeader(installation types.InstallationID) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.signKey == nil {
		return "token " + a.staticToken
	}

	if installation != 0 {
		if cached, ok := a.tokens[installation]; ok {
			return "token " + cached.token
		}
	}

	return "Bearer " + a.appJWT
}

// Refresh re-mints the app identity token, replaces the installation's
// access token, and waits the cooldown before returning control to the
// retrying caller. Only the triggering task waits; concurrent tasks run
// their own refresh independently.
func (a *AppAuth) Refresh(ctx context.Context, installation types.InstallationID) error {
	logger := ctxlog.From(ctx)

	if a.signKey == nil {
		return nil
	}

	if err := a.mintAppJWT(); err != nil {
		return err
	}

	a.mu.Lock()
	delete(a.tokens, installation)
	a.mu.Unlock()

	if err := a.fetchToken(ctx, installation); err != nil {
		logger.Warn("Failed to refresh installation token, retry will use app identity",
			"installation_id", installation,
			"error", err,
		)
	}

	select {
	case <-time.After(a.cooldown):
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "cancelled during refresh cooldown")
	}

	return nil
}

// mintAppJWT signs a fresh app identity assertion: issuer is the app ID,
// issued-at now, expiry in 10 minutes.
func (a *AppAuth) mintAppJWT() error {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Issuer(strconv.FormatInt(a.appID, 10)).
		IssuedAt(now).
		Expiration(now.Add(appTokenLifetime)).
		Build()
	if err != nil {
		return goerr.Wrap(err, "failed to build app identity token")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, a.signKey))
	if err != nil {
		return goerr.Wrap(err, "failed to sign app identity token")
	}

	a.mu.Lock()
	a.appJWT = string(signed)
	a.mu.Unlock()

	return nil
}

func (a *AppAuth) listInstallations(ctx context.Context) ([]types.InstallationID, error) {
	var installations []struct {
		ID int64 `json:"id"`
	}
	if err := a.appRequest(ctx, http.MethodGet, "/app/installations", http.StatusOK, &installations); err != nil {
		return nil, err
	}

	ids := make([]types.InstallationID, 0, len(installations))
	for _, inst := range installations {
		ids = append(ids, types.InstallationID(inst.ID))
	}
	return ids, nil
}

func (a *AppAuth) fetchToken(ctx context.Context, installation types.InstallationID) error {
	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	path := fmt.Sprintf("/app/installations/%d/access_tokens", installation)
	if err := a.appRequest(ctx, http.MethodPost, path, http.StatusCreated, &resp); err != nil {
		return err
	}

	a.mu.Lock()
	a.tokens[installation] = accessToken{token: resp.Token, expiresAt: resp.ExpiresAt}
	a.mu.Unlock()

	return nil
}

// appRequest performs an app-scoped API call authenticated with the app
// identity bearer token.
func (a *AppAuth) appRequest(ctx context.Context, method, path string, wantStatus int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}

	a.mu.RLock()
	req.Header.Set("Authorization", "Bearer "+a.appJWT)
	a.mu.RUnlock()
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "request failed", goerr.V("path", path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return goerr.Wrap(err, "failed to read response body", goerr.V("path", path))
	}

	if resp.StatusCode != wantStatus {
		return goerr.New("unexpected response from GitHub API",
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return goerr.Wrap(err, "failed to decode response", goerr.V("path", path))
		}
	}

	return nil
}

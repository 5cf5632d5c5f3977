package mosapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
)

// CredentialLookup resolves one credential part (username or password)
// for a given entityId, typically backed by ports.SecretStore reading
// "mosapi_username_<entityId>" / "mosapi_password_<entityId>".
type CredentialLookup func(ctx context.Context, entityID string) (string, error)

// ClientConfig carries the resilience knobs an AuthenticatedClient uses.
// A single AuthenticatedClient is shared across every entity (TLD): the
// entityId is supplied per call, not fixed at construction, mirroring
// the GetJson(entityId, ...)/PostJson(entityId, ...) shape of the
// upstream API this client fronts.
type ClientConfig struct {
	UsernameLookup CredentialLookup
	PasswordLookup CredentialLookup

	// CircuitBreakerEnabled wraps every ExecuteRequest call (including
	// any re-login it performs) in a circuit breaker that opens after
	// MaxFailures consecutive failures. Direct Login/Logout calls are
	// not wrapped.
	CircuitBreakerEnabled bool
	MaxFailures           uint32
	BreakerTimeout        time.Duration

	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultClientConfig returns sane production defaults that env-driven
// config can override.
func DefaultClientConfig(usernameLookup, passwordLookup CredentialLookup) ClientConfig {
	return ClientConfig{
		UsernameLookup:        usernameLookup,
		PasswordLookup:        passwordLookup,
		CircuitBreakerEnabled: true,
		MaxFailures:           5,
		BreakerTimeout:        30 * time.Second,
		RetryMaxAttempts:      3,
		RetryInitialInterval:  200 * time.Millisecond,
		RetryMaxInterval:      5 * time.Second,
	}
}

// AuthenticatedClient owns the MoSAPI session lifecycle across every
// entity it is asked to act on: logging in, caching the session cookie
// per entityId, retrying once on session expiry, and logging out.
type AuthenticatedClient struct {
	transport *Transport
	cache     ports.SessionCache
	cfg       ClientConfig
	breaker   *gobreaker.CircuitBreaker
}

// NewAuthenticatedClient wires a Transport and SessionCache together
// under the given credential lookups.
func NewAuthenticatedClient(transport *Transport, cache ports.SessionCache, cfg ClientConfig) *AuthenticatedClient {
	c := &AuthenticatedClient{transport: transport, cache: cache, cfg: cfg}
	if cfg.CircuitBreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "mosapi",
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("mosapi circuit breaker %s: %s -> %s", name, from, to)
			},
		})
	}
	return c
}

func (c *AuthenticatedClient) basicAuthHeader(ctx context.Context, entityID string) (string, error) {
	username, err := c.lookupUsername(ctx, entityID)
	if err != nil {
		return "", newErr(KindInvalidCredentials, "resolve username", err)
	}
	password, err := c.lookupPassword(ctx, entityID)
	if err != nil {
		return "", newErr(KindInvalidCredentials, "resolve password", err)
	}
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + token, nil
}

func (c *AuthenticatedClient) lookupUsername(ctx context.Context, entityID string) (string, error) {
	if c.cfg.UsernameLookup == nil {
		return "", fmt.Errorf("no username lookup configured")
	}
	return c.cfg.UsernameLookup(ctx, entityID)
}

func (c *AuthenticatedClient) lookupPassword(ctx context.Context, entityID string) (string, error) {
	if c.cfg.PasswordLookup == nil {
		return "", fmt.Errorf("no password lookup configured")
	}
	return c.cfg.PasswordLookup(ctx, entityID)
}

// entityPath joins an entityId and a resource path with exactly one
// slash, accepting path with or without a leading slash.
func entityPath(entityID, path string) string {
	return entityID + "/" + strings.TrimPrefix(path, "/")
}

// Login performs the MoSAPI login handshake for entityID, storing the
// resulting session cookie in the SessionCache, and mapping every
// non-success status code to the matching Error kind.
func (c *AuthenticatedClient) Login(ctx context.Context, entityID string) error {
	authHeader, err := c.basicAuthHeader(ctx, entityID)
	if err != nil {
		return err
	}

	status, headers, _, err := c.transport.Do(ctx, http.MethodPost, entityPath(entityID, "login"), nil, nil,
		map[string]string{"Authorization": authHeader})
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		cookie, ok := parseSessionCookie(headers)
		if !ok {
			return newErr(KindGeneric, "Login succeeded but server did not return a Set-Cookie header", nil)
		}
		return c.cache.Put(ctx, entityID, cookie)
	case http.StatusUnauthorized:
		return newErr(KindInvalidCredentials, "invalid MoSAPI credentials", nil)
	case http.StatusForbidden:
		return newErr(KindIPNotAllowed, "source IP not allowlisted for MoSAPI", nil)
	case http.StatusTooManyRequests:
		return newErr(KindRateLimited, "rate limited during login", nil)
	default:
		return newErr(KindGeneric, fmt.Sprintf("Login failed with unexpected status code %d", status), nil)
	}
}

// Logout invalidates entityID's session on the server and always clears
// the local cache entry afterward, regardless of the server's response.
func (c *AuthenticatedClient) Logout(ctx context.Context, entityID string) error {
	cookie, ok, err := c.cache.Get(ctx, entityID)
	if err != nil {
		return err
	}
	defer c.cache.Clear(ctx, entityID)

	if !ok {
		return nil
	}

	headers := map[string]string{"Cookie": "id=" + cookie}
	status, _, body, err := c.transport.Do(ctx, http.MethodPost, entityPath(entityID, "logout"), nil, nil, headers)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		log.Printf("mosapi logout for %s: session already expired", entityID)
		return nil
	default:
		return envelopeError(status, body)
	}
}

// parseSessionCookie extracts the "id" cookie value from a Set-Cookie
// header by splitting each header value on ";" and matching the first
// fragment that starts with "id=".
func parseSessionCookie(headers http.Header) (string, bool) {
	for _, raw := range headers.Values("Set-Cookie") {
		for _, part := range strings.Split(raw, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "id=") {
				return strings.TrimPrefix(part, "id="), true
			}
		}
	}
	return "", false
}

// ExecuteRequest runs one outward MoSAPI call against entityID,
// attaching the cached session cookie if present. On a 401 (session
// expired or never established) it performs at most one re-login and
// retries exactly once.
func (c *AuthenticatedClient) ExecuteRequest(ctx context.Context, entityID, method, path string, query map[string]string, body []byte) (int, []byte, error) {
	do := func() (int, []byte, error) {
		return c.doOnce(ctx, entityID, method, path, query, body)
	}

	if c.breaker != nil {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			status, respBody, err := do()
			if err != nil {
				return nil, err
			}
			return struct {
				status int
				body   []byte
			}{status, respBody}, nil
		})
		if err != nil {
			return 0, nil, err
		}
		r := result.(struct {
			status int
			body   []byte
		})
		return r.status, r.body, nil
	}

	return do()
}

func (c *AuthenticatedClient) doOnce(ctx context.Context, entityID, method, path string, query map[string]string, body []byte) (int, []byte, error) {
	_, hasCookie, err := c.cache.Get(ctx, entityID)
	if err != nil {
		return 0, nil, err
	}

	var status int
	var respBody []byte
	if hasCookie {
		status, respBody, err = c.withRetry(ctx, entityID, method, path, query, body)
		if err != nil {
			return 0, nil, err
		}
		if status != http.StatusUnauthorized {
			return status, respBody, nil
		}
	}

	// No cookie was cached, or the cached one was rejected as expired:
	// log in once and retry.
	if loginErr := c.Login(ctx, entityID); loginErr != nil {
		if mErr, ok := loginErr.(*Error); ok && mErr.Kind == KindRateLimited {
			return 0, nil, newErr(KindRateLimited, "Try running after some time", loginErr)
		}
		return 0, nil, newErr(KindUnauthorized, "Automatic re-login failed", loginErr)
	}

	status, respBody, err = c.withRetry(ctx, entityID, method, path, query, body)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized {
		return 0, nil, newErr(KindUnauthorized, "Authentication failed even after re-login",
			newErr(KindInvalidCredentials, "still unauthorized after relogin", nil))
	}
	return status, respBody, nil
}

// withRetry wraps a single attempt in exponential backoff for transient
// transport failures and 5xx/429 statuses.
func (c *AuthenticatedClient) withRetry(ctx context.Context, entityID, method, path string, query map[string]string, body []byte) (int, []byte, error) {
	var status int
	var respBody []byte

	operation := func() error {
		cookie, ok, err := c.cache.Get(ctx, entityID)
		if err != nil {
			return backoff.Permanent(err)
		}
		headers := map[string]string{}
		if ok {
			headers["Cookie"] = "id=" + cookie
		}

		s, _, b, err := c.transport.Do(ctx, method, entityPath(entityID, path), query, body, headers)
		if err != nil {
			return err // transport errors are retryable
		}
		status, respBody = s, b

		if isRetryableStatus(s) {
			return fmt.Errorf("retryable status %d", s)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = orDefault(c.cfg.RetryInitialInterval, 200*time.Millisecond)
	bo.MaxInterval = orDefault(c.cfg.RetryMaxInterval, 5*time.Second)
	maxAttempts := c.cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts)), ctx))
	if err != nil && status == 0 {
		return 0, nil, newErr(KindTransport, "request failed after retries", err)
	}
	return status, respBody, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// envelopeError decodes a MoSAPI error body and maps it to an Error: a
// parsed envelope becomes NotFound for a 404 and a BadRequest kind via
// FromResultCode otherwise. When the body cannot be parsed it falls
// back to a NotFound/RateLimited/generic kind by status code.
func envelopeError(status int, body []byte) error {
	var envelope domain.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return statusOnlyError(status)
	}
	if status == http.StatusNotFound {
		return newErr(KindNotFound, envelope.Message, nil)
	}
	return FromResultCode(envelope.ResultCode, envelope.Message)
}

func statusOnlyError(status int) error {
	switch status {
	case http.StatusNotFound:
		return newErr(KindNotFound, "resource not found", nil)
	case http.StatusTooManyRequests:
		return newErr(KindRateLimited, "rate limited", nil)
	default:
		return newErr(KindGeneric, fmt.Sprintf("unexpected status %d", status), nil)
	}
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/session"
)

const (
	headerRequestID = "X-Request-ID"

	loginPath   = "/auth/login/"
	refreshPath = "/auth/refresh/"

	// refreshLeeway is how close to expiry an access token is refreshed
	// before it is sent.
	refreshLeeway = 30 * time.Second
)

// refreshTransport attaches the bearer token and recovers from 401s with a
// single refresh and replay.
type refreshTransport struct {
	base       http.RoundTripper
	refreshURL string
	tokens     session.TokenStore
	log        *zap.Logger
	expired    func()
	now        func() time.Time

	// mu serialises refreshes so concurrent 401s rotate the tokens once.
	mu sync.Mutex
}

func isAuthPath(p string) bool {
	return strings.HasSuffix(p, loginPath) || strings.HasSuffix(p, refreshPath)
}

func (t *refreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(headerRequestID) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(headerRequestID, uuid.NewString())
	}
	if isAuthPath(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	access := t.tokens.Tokens().Access
	refreshed := false
	if t.expiresSoon(access) {
		fresh, err := t.refresh(req.Context(), access)
		if err != nil {
			return nil, err
		}
		access = fresh
		refreshed = true
	}

	// A request refreshes at most once, so a 401 after a proactive refresh
	// is final.
	resp, err := t.base.RoundTrip(withBearer(req, access))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || refreshed {
		return resp, err
	}
	drain(resp)

	fresh, err := t.refresh(req.Context(), access)
	if err != nil {
		return nil, err
	}

	replay, err := rewind(req)
	if err != nil {
		return nil, err
	}

	// The replay's response is final, even another 401.
	return t.base.RoundTrip(withBearer(replay, fresh))
}

func (t *refreshTransport) expiresSoon(access string) bool {
	exp, ok := session.AccessExpiry(access)
	if !ok {
		return false
	}
	return t.now().Add(refreshLeeway).After(exp)
}

// refresh returns a new access token. used is the token that was rejected:
// when another caller already rotated it, the current token is returned
// without a network call.
func (t *refreshTransport) refresh(ctx context.Context, used string) (string, error) {
	access, err := t.refreshOnce(ctx, used)
	if errors.Is(err, ErrSessionExpired) && t.expired != nil {
		t.expired()
	}
	return access, err
}

func (t *refreshTransport) refreshOnce(ctx context.Context, used string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.tokens.Tokens()
	if current.Access != "" && current.Access != used {
		return current.Access, nil
	}
	if current.Refresh == "" {
		return "", t.expireLocked(errors.New("no refresh token"))
	}

	pair, err := t.requestTokens(ctx, current.Refresh)
	if err != nil {
		// A cancelled caller must not log the user out.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", t.expireLocked(err)
	}

	next := session.Tokens{Access: pair.Access, Refresh: pair.Refresh}
	if next.Refresh == "" {
		next.Refresh = current.Refresh
	}
	if err := t.tokens.SetTokens(next); err != nil {
		t.log.Warn("failed to persist refreshed tokens", zap.Error(err))
	}
	t.log.Debug("access token refreshed")
	return next.Access, nil
}

func (t *refreshTransport) expireLocked(cause error) error {
	t.log.Info("session expired", zap.Error(cause))
	if err := t.tokens.Clear(); err != nil {
		t.log.Warn("failed to clear session", zap.Error(err))
	}
	return ErrSessionExpired
}

func (t *refreshTransport) requestTokens(ctx context.Context, refresh string) (*model.TokenPair, error) {
	body, err := json.Marshal(model.RefreshRequest{Refresh: refresh})
	if err != nil {
		return nil, fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, uuid.NewString())

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	var pair model.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	if pair.Access == "" {
		return nil, errors.New("refresh response has no access token")
	}
	return &pair, nil
}

func withBearer(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	return r
}

// rewind returns a copy of req with a fresh body for replay.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	if body == nil {
		body = http.NoBody
	}
	r.Body = body
	return r, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

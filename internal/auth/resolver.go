// Package auth resolves the active credential. One mode-tagged resolver
// covers both flows: embedded (bearer token exchanged from the host init
// payload) and standalone (HTTP-only cookie session with an optional
// one-time temp-token confirmation step).
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"fingram/internal/core"
	"fingram/internal/log"
	"fingram/internal/storage"
	"fingram/internal/telegram"
)

// SessionTokenKey is the fixed storage key for the embedded session token.
const SessionTokenKey = "fingram_session_token"

// tempTokenParam is the URL query parameter carrying a one-time token.
const tempTokenParam = "token"

type Mode string

const (
	ModeEmbedded   Mode = "embedded"
	ModeStandalone Mode = "standalone"
)

// State is the externally visible auth state. PendingTempToken and
// IsAuthenticated are never both active: a pending token blocks
// authenticated rendering until confirmed or dismissed.
type State struct {
	Mode             Mode
	IsAuthenticated  bool
	IsLoading        bool
	Err              error
	PendingTempToken string
	SessionToken     string // bearer credential; empty in cookie mode
}

type Resolver struct {
	baseURL string
	client  *http.Client // shared with the cookie API client so the jar carries the session
	store   storage.Store
	env     telegram.Environment
	logger  *log.Logger

	mu        sync.Mutex
	launchURL *url.URL
	state     State
	gen       uint64
	subs      []func(State)
}

// NewResolver wires a resolver for the already-resolved environment.
// launchURL is the page-URL analogue; it may carry ?token=. client must have
// a cookie jar in standalone mode.
func NewResolver(baseURL string, env telegram.Environment, store storage.Store, client *http.Client, launchURL *url.URL, logger *log.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	mode := ModeStandalone
	if env.Embedded() {
		mode = ModeEmbedded
	}
	if launchURL == nil {
		launchURL = &url.URL{}
	}
	return &Resolver{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		store:     store,
		env:       env,
		logger:    logger.WithComponent("auth"),
		launchURL: launchURL,
		state:     State{Mode: mode, IsLoading: true},
	}
}

// State returns a snapshot of the current auth state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers a listener called after every state change.
func (r *Resolver) Subscribe(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// CurrentURL returns a copy of the launch URL, reflecting token stripping.
func (r *Resolver) CurrentURL() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *r.launchURL
	return &u
}

// Start performs the initial credential resolution for the tagged mode.
func (r *Resolver) Start(ctx context.Context) {
	r.mu.Lock()
	mode := r.state.Mode
	gen := r.gen
	r.mu.Unlock()

	if mode == ModeEmbedded {
		r.startEmbedded(ctx, gen)
		return
	}
	r.startStandalone(ctx, gen)
}

// startEmbedded adopts a stored token or exchanges the signed init payload.
func (r *Resolver) startEmbedded(ctx context.Context, gen uint64) {
	stored, ok, err := r.store.Get(ctx, SessionTokenKey)
	if err == nil && ok && stored != "null" {
		r.apply(gen, func(s *State) {
			s.SessionToken = stored
			s.IsAuthenticated = true
			s.IsLoading = false
			s.Err = nil
		})
		return
	}
	if err != nil {
		r.logger.Warn("stored credential lookup failed, falling back to exchange", "error", err)
	}

	raw := r.env.Init.Raw
	if raw == "" {
		r.apply(gen, func(s *State) {
			s.IsLoading = false
			s.Err = fmt.Errorf("%w: host init payload unavailable", core.ErrNotAuthenticated)
		})
		return
	}

	token, err := r.exchangeInitData(ctx, raw)
	if err != nil {
		r.logger.Warn("init data exchange failed", "error", err)
		r.apply(gen, func(s *State) {
			s.IsLoading = false
			s.Err = fmt.Errorf("not authenticated, generate a new access link from the bot: %w", err)
		})
		return
	}

	if err := r.store.Set(ctx, SessionTokenKey, token); err != nil {
		// Best effort: the session still works for this run.
		r.logger.Warn("failed to persist session token", "error", err)
	}
	r.apply(gen, func(s *State) {
		s.SessionToken = token
		s.IsAuthenticated = true
		s.IsLoading = false
		s.Err = nil
	})
}

// startStandalone inspects the launch URL for a one-time token, else checks
// the cookie session. Network failure is unauthenticated, never indeterminate.
func (r *Resolver) startStandalone(ctx context.Context, gen uint64) {
	r.mu.Lock()
	temp := r.launchURL.Query().Get(tempTokenParam)
	r.mu.Unlock()

	if temp != "" {
		// Do NOT auto-consume: surface for explicit confirmation.
		r.apply(gen, func(s *State) {
			s.PendingTempToken = temp
			s.IsAuthenticated = false
			s.IsLoading = false
			s.Err = nil
		})
		return
	}

	authenticated := r.checkSession(ctx)
	r.apply(gen, func(s *State) {
		s.IsAuthenticated = authenticated
		s.IsLoading = false
		s.Err = nil
	})
}

// ConfirmTempToken exchanges the pending one-time token. The token is single
// use: on failure it is cleared, never retried automatically.
func (r *Resolver) ConfirmTempToken(ctx context.Context) error {
	r.mu.Lock()
	temp := r.state.PendingTempToken
	if temp == "" {
		r.mu.Unlock()
		return errors.New("no pending temp token")
	}
	r.gen++
	gen := r.gen
	r.state.IsLoading = true
	r.notifyLocked()
	r.mu.Unlock()

	err := r.postJSON(ctx, "/vault/authenticate-temp-token", map[string]string{"token": temp}, nil)
	if err != nil {
		r.apply(gen, func(s *State) {
			s.PendingTempToken = ""
			s.IsLoading = false
			s.Err = fmt.Errorf("%w", core.ErrTempTokenExpired)
		})
		r.stripTempToken()
		return core.ErrTempTokenExpired
	}

	r.apply(gen, func(s *State) {
		s.PendingTempToken = ""
		s.IsAuthenticated = true
		s.IsLoading = false
		s.Err = nil
	})
	r.stripTempToken()
	return nil
}

// DismissTempToken discards the pending token and strips it from the URL
// without contacting the backend.
func (r *Resolver) DismissTempToken() {
	r.mu.Lock()
	r.gen++
	r.state.PendingTempToken = ""
	r.state.Err = nil
	r.notifyLocked()
	r.mu.Unlock()
	r.stripTempToken()
}

// AuthenticateWithVaultToken submits a long-lived vault access token for a
// cookie session. Pending temp-token state is left untouched.
func (r *Resolver) AuthenticateWithVaultToken(ctx context.Context, accessToken string) error {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state.IsLoading = true
	r.notifyLocked()
	r.mu.Unlock()

	err := r.postJSON(ctx, "/vault/authenticate", map[string]string{"accessToken": accessToken}, nil)
	if err != nil {
		r.apply(gen, func(s *State) {
			s.IsLoading = false
			s.Err = core.ErrInvalidVaultToken
		})
		return core.ErrInvalidVaultToken
	}

	r.apply(gen, func(s *State) {
		s.IsAuthenticated = true
		s.IsLoading = false
		s.Err = nil
	})
	return nil
}

// Logout invalidates the credential. The local effect always applies, even
// when the backend call or the storage removal fails. Idempotent.
func (r *Resolver) Logout(ctx context.Context) {
	r.mu.Lock()
	r.gen++
	mode := r.state.Mode
	r.mu.Unlock()

	if mode == ModeEmbedded {
		if err := r.store.Remove(ctx, SessionTokenKey); err != nil {
			r.logger.Warn("failed to remove stored session token", "error", err)
		}
	} else {
		if err := r.postJSON(ctx, "/vault/logout", nil, nil); err != nil {
			r.logger.Warn("server-side logout failed, clearing local session anyway", "error", err)
		}
	}

	r.mu.Lock()
	r.state.SessionToken = ""
	r.state.IsAuthenticated = false
	r.state.PendingTempToken = ""
	r.state.IsLoading = false
	r.state.Err = nil
	r.notifyLocked()
	r.mu.Unlock()
}

// RequestShareLink asks the backend for a fresh one-time token and returns a
// shareable URL built on the launch URL's origin.
func (r *Resolver) RequestShareLink(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := r.postJSON(ctx, "/vault/share-link", nil, &out); err != nil {
		return "", fmt.Errorf("request share link: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("request share link: empty token in response")
	}

	r.mu.Lock()
	origin := url.URL{Scheme: r.launchURL.Scheme, Host: r.launchURL.Host, Path: r.launchURL.Path}
	r.mu.Unlock()
	q := url.Values{}
	q.Set(tempTokenParam, out.Token)
	origin.RawQuery = q.Encode()
	return origin.String(), nil
}

// apply mutates state only when the triggering generation is still current,
// so a stale async resolution can never overwrite fresher state.
func (r *Resolver) apply(gen uint64, mutate func(*State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		r.logger.Debug("discarding stale auth resolution", "gen", gen, "current", r.gen)
		return
	}
	mutate(&r.state)
	r.notifyLocked()
}

func (r *Resolver) notifyLocked() {
	snapshot := r.state
	for _, fn := range r.subs {
		fn(snapshot)
	}
}

func (r *Resolver) stripTempToken() {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.launchURL.Query()
	q.Del(tempTokenParam)
	r.launchURL.RawQuery = q.Encode()
}

// exchangeInitData trades the raw signed payload for a bearer token.
func (r *Resolver) exchangeInitData(ctx context.Context, raw string) (string, error) {
	u := fmt.Sprintf("%s/miniapp/exchange?initData=%s", r.baseURL, url.QueryEscape(raw))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("exchange failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode exchange response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("no token in exchange response")
	}
	return out.Token, nil
}

// checkSession probes the cookie session. Anything but a 2xx, including a
// network failure, means unauthenticated.
func (r *Resolver) checkSession(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/vault/me", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// postJSON sends a cookie-credentialed POST. A non-2xx response surfaces the
// body verbatim as the error message.
func (r *Resolver) postJSON(ctx context.Context, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(text))
		if msg == "" {
			msg = fmt.Sprintf("error %d", resp.StatusCode)
		}
		return errors.New(msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"fingram/internal/core"
	"fingram/internal/telegram"
)

type memStore struct {
	mu    sync.Mutex
	items map[string]string
	fail  error
}

func newMemStore() *memStore { return &memStore{items: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", false, m.fail
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.items[key] = value
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.items, key)
	return nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string]string{}
	return nil
}

func embeddedEnv(raw string) telegram.Environment {
	return telegram.Environment{
		Mode: telegram.ModeEmbedded,
		Init: telegram.InitData{
			User: &telegram.User{ID: 7, FirstName: "Isaac"},
			Raw:  raw,
		},
	}
}

func launchURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestEmbeddedAdoptsStoredToken(t *testing.T) {
	exchangeCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/miniapp/exchange" {
			exchangeCalls++
		}
		w.Write([]byte(`{"token":"fresh"}`))
	}))
	defer srv.Close()

	store := newMemStore()
	store.items[SessionTokenKey] = "stored-token"

	r := NewResolver(srv.URL, embeddedEnv("raw-init"), store, srv.Client(), nil, nil)
	r.Start(context.Background())

	st := r.State()
	if !st.IsAuthenticated || st.SessionToken != "stored-token" {
		t.Fatalf("state = %+v, want stored token adopted", st)
	}
	if exchangeCalls != 0 {
		t.Errorf("exchange endpoint called %d times, want 0", exchangeCalls)
	}
}

func TestEmbeddedNullSentinelTriggersExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("initData") != "raw-init" {
			http.Error(w, "bad init data", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"token":"exchanged"}`))
	}))
	defer srv.Close()

	store := newMemStore()
	store.items[SessionTokenKey] = "null"

	r := NewResolver(srv.URL, embeddedEnv("raw-init"), store, srv.Client(), nil, nil)
	r.Start(context.Background())

	st := r.State()
	if !st.IsAuthenticated || st.SessionToken != "exchanged" {
		t.Fatalf("state = %+v, want exchanged token", st)
	}
	if store.items[SessionTokenKey] != "exchanged" {
		t.Error("exchanged token should be persisted")
	}
}

func TestEmbeddedExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid hash", http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, embeddedEnv("raw-init"), newMemStore(), srv.Client(), nil, nil)
	r.Start(context.Background())

	st := r.State()
	if st.IsAuthenticated {
		t.Error("failed exchange must stay unauthenticated")
	}
	if st.Err == nil {
		t.Error("failed exchange must surface an error")
	}
	if st.IsLoading {
		t.Error("loading must end after a failed exchange")
	}
}

func TestStandalonePendingTempTokenBlocksNetwork(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := telegram.Environment{Mode: telegram.ModeStandalone}
	u := launchURL(t, "https://app.example/?token=abc123&tab=budget")
	r := NewResolver(srv.URL, env, newMemStore(), srv.Client(), u, nil)
	r.Start(context.Background())

	st := r.State()
	if st.PendingTempToken != "abc123" {
		t.Fatalf("pending temp token = %q, want abc123", st.PendingTempToken)
	}
	if st.IsAuthenticated {
		t.Error("pending token must block authenticated state")
	}
	if len(calls) != 0 {
		t.Errorf("no network call may happen before confirmation, got %v", calls)
	}
}

func TestDismissTempTokenStripsURLWithoutNetwork(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	env := telegram.Environment{Mode: telegram.ModeStandalone}
	u := launchURL(t, "https://app.example/?token=abc123&tab=budget")
	r := NewResolver(srv.URL, env, newMemStore(), srv.Client(), u, nil)
	r.Start(context.Background())
	r.DismissTempToken()

	if calls != 0 {
		t.Errorf("dismiss must not contact the backend, got %d calls", calls)
	}
	st := r.State()
	if st.PendingTempToken != "" {
		t.Error("pending token should be cleared")
	}
	cur := r.CurrentURL()
	if cur.Query().Get("token") != "" {
		t.Errorf("token should be stripped from URL, got %q", cur.String())
	}
	if cur.Query().Get("tab") != "budget" {
		t.Error("unrelated query parameters must survive the strip")
	}
}

func TestConfirmTempTokenScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vault/authenticate-temp-token" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"vaultId":"v1"}`))
	}))
	defer srv.Close()

	env := telegram.Environment{Mode: telegram.ModeStandalone}
	u := launchURL(t, "https://app.example/?token=abc123")
	r := NewResolver(srv.URL, env, newMemStore(), srv.Client(), u, nil)
	r.Start(context.Background())

	if err := r.ConfirmTempToken(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	st := r.State()
	if !st.IsAuthenticated {
		t.Error("confirmation should authenticate")
	}
	if st.PendingTempToken != "" {
		t.Error("pending token should be cleared after confirmation")
	}
	if r.CurrentURL().Query().Get("token") != "" {
		t.Error("token should no longer appear in the URL")
	}
}

func TestConfirmTempTokenExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := telegram.Environment{Mode: telegram.ModeStandalone}
	u := launchURL(t, "https://app.example/?token=dead")
	r := NewResolver(srv.URL, env, newMemStore(), srv.Client(), u, nil)
	r.Start(context.Background())

	err := r.ConfirmTempToken(context.Background())
	if !errors.Is(err, core.ErrTempTokenExpired) {
		t.Fatalf("err = %v, want ErrTempTokenExpired", err)
	}
	st := r.State()
	if st.PendingTempToken != "" {
		t.Error("failed token is single use and must be cleared")
	}
	if st.IsAuthenticated {
		t.Error("failed confirmation must not authenticate")
	}
}

func TestStandaloneSessionCheck(t *testing.T) {
	t.Run("valid cookie session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()
		r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), srv.Client(), nil, nil)
		r.Start(context.Background())
		if !r.State().IsAuthenticated {
			t.Error("2xx session check should authenticate")
		}
	})
	t.Run("rejected session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no session", http.StatusUnauthorized)
		}))
		defer srv.Close()
		r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), srv.Client(), nil, nil)
		r.Start(context.Background())
		if r.State().IsAuthenticated {
			t.Error("401 session check must stay unauthenticated")
		}
	})
	t.Run("network failure fails closed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // connection refused from here on
		r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), http.DefaultClient, nil, nil)
		r.Start(context.Background())
		st := r.State()
		if st.IsAuthenticated || st.IsLoading {
			t.Errorf("network failure must resolve unauthenticated, got %+v", st)
		}
	})
}

func TestAuthenticateWithVaultToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vault/authenticate" {
			w.Write([]byte(`{"vaultId":"v1"}`))
			return
		}
		http.Error(w, "no session", http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), srv.Client(), nil, nil)
	r.Start(context.Background())

	if err := r.AuthenticateWithVaultToken(context.Background(), "vault-token"); err != nil {
		t.Fatal(err)
	}
	if !r.State().IsAuthenticated {
		t.Error("vault token authentication should mark authenticated")
	}
}

func TestAuthenticateWithVaultTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	u := launchURL(t, "https://app.example/?token=pending123")
	r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), srv.Client(), u, nil)
	r.Start(context.Background())

	err := r.AuthenticateWithVaultToken(context.Background(), "wrong")
	if !errors.Is(err, core.ErrInvalidVaultToken) {
		t.Fatalf("err = %v, want ErrInvalidVaultToken", err)
	}
	if r.State().PendingTempToken != "pending123" {
		t.Error("vault-token failure must not touch pending temp-token state")
	}
}

func TestLogoutIsIdempotentAndAlwaysLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vault/logout" {
			http.Error(w, "backend down", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), srv.Client(), nil, nil)
	r.Start(context.Background())
	if !r.State().IsAuthenticated {
		t.Fatal("precondition: session check should authenticate")
	}

	r.Logout(context.Background())
	r.Logout(context.Background())

	if r.State().IsAuthenticated {
		t.Error("logout must clear the local flag even when the server call fails")
	}
}

func TestEmbeddedLogoutRemovesStoredToken(t *testing.T) {
	store := newMemStore()
	store.items[SessionTokenKey] = "stored"

	r := NewResolver("http://unused.invalid", embeddedEnv("raw"), store, http.DefaultClient, nil, nil)
	r.Start(context.Background())
	r.Logout(context.Background())

	if _, ok := store.items[SessionTokenKey]; ok {
		t.Error("stored credential should be removed on logout")
	}
	st := r.State()
	if st.IsAuthenticated || st.SessionToken != "" {
		t.Errorf("state after logout = %+v", st)
	}
}

func TestStaleStartDiscardedAfterLogout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vault/me" {
			<-release
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), srv.Client(), nil, nil)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()
	time.Sleep(20 * time.Millisecond) // let Start reach the session check

	r.Logout(context.Background())
	close(release)
	<-done

	if r.State().IsAuthenticated {
		t.Error("session check resolved before logout must not overwrite the newer state")
	}
}

func TestRequestShareLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vault/share-link" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"token":"one-time"}`))
	}))
	defer srv.Close()

	u := launchURL(t, "https://app.example/vault")
	r := NewResolver(srv.URL, telegram.Environment{Mode: telegram.ModeStandalone}, newMemStore(), srv.Client(), u, nil)

	link, err := r.RequestShareLink(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := "https://app.example/vault?token=one-time"
	if link != want {
		t.Errorf("share link = %q, want %q", link, want)
	}
}

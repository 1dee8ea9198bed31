package api

import (
	"testing"

	"fingram/internal/auth"
	"fingram/internal/telegram"
)

func testSelector() (*Selector, *CookieClient, *BearerClient, *MockClient) {
	cookie := NewCookieClient("http://localhost:3002", nil)
	bearer := NewBearerClient("http://localhost:3002", nil, "")
	mock := testMock()
	return NewSelector(cookie, bearer, mock, nil), cookie, bearer, mock
}

func TestSelectorDefaultsToMock(t *testing.T) {
	s, _, _, mock := testSelector()
	if s.Current() != Client(mock) {
		t.Error("unresolved environment must bind the mock client")
	}
}

func TestSelectorStandaloneBindsCookie(t *testing.T) {
	s, cookie, _, _ := testSelector()
	s.SetEnvironment(telegram.Environment{Mode: telegram.ModeStandalone})
	if s.Current() != Client(cookie) {
		t.Error("standalone must bind the cookie client")
	}
}

func TestSelectorEmbeddedBindsBearerWithToken(t *testing.T) {
	s, _, bearer, mock := testSelector()
	s.SetEnvironment(telegram.Environment{Mode: telegram.ModeEmbedded})

	if s.Current() != Client(mock) {
		t.Fatal("embedded without credential should stay on mock")
	}

	s.OnAuthState(auth.State{Mode: auth.ModeEmbedded, IsAuthenticated: true, SessionToken: "real-token"})
	if s.Current() != Client(bearer) {
		t.Fatal("embedded with a real credential must bind the bearer client")
	}
	if bearer.SessionToken() != "real-token" {
		t.Errorf("bearer token = %q, want the latest credential", bearer.SessionToken())
	}
}

func TestSelectorMockCredentialStaysOnMock(t *testing.T) {
	s, _, _, mock := testSelector()
	s.SetEnvironment(telegram.Environment{Mode: telegram.ModeEmbedded})
	s.OnAuthState(auth.State{SessionToken: "mock"})
	if s.Current() != Client(mock) {
		t.Error("the mock sentinel credential never binds the bearer client")
	}
}

func TestSelectorOutOfOrderResolutions(t *testing.T) {
	s, _, bearer, _ := testSelector()
	s.SetEnvironment(telegram.Environment{Mode: telegram.ModeEmbedded})

	// Two credential changes fire; the first one resolves last.
	c1 := s.NewTrigger()
	c2 := s.NewTrigger()

	s.ResolveAuth(c2, auth.State{IsAuthenticated: true, SessionToken: "token-2"})
	s.ResolveAuth(c1, auth.State{IsAuthenticated: true, SessionToken: "token-1"})

	if got := bearer.SessionToken(); got != "token-2" {
		t.Errorf("token = %q, want the later trigger to win regardless of completion order", got)
	}
}

func TestSelectorNotifiesOnBindingChange(t *testing.T) {
	s, cookie, _, _ := testSelector()
	var changes []Client
	s.Subscribe(func(c Client) { changes = append(changes, c) })

	s.SetEnvironment(telegram.Environment{Mode: telegram.ModeStandalone})
	s.SetEnvironment(telegram.Environment{Mode: telegram.ModeStandalone}) // no change

	if len(changes) != 1 || changes[0] != Client(cookie) {
		t.Errorf("changes = %d, want exactly one notification per binding change", len(changes))
	}
}

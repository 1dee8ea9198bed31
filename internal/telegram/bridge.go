// Package telegram resolves the runtime environment: embedded in the chat
// host, or standalone. Resolution is one-way per process; everything
// downstream (storage selection, credential mode, client binding) keys off
// the resolved Environment.
package telegram

import (
	"fingram/internal/storage"
)

// User is the host-provided account behind the signed init payload.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// InitData is the parsed init payload. Raw carries the original signed
// string; it is what the exchange endpoint verifies, never the parsed form.
type InitData struct {
	User         *User
	ChatInstance string
	StartParam   string
	AuthDate     int64
	Raw          string
}

// Bridge is the host bridging object. Implementations may be backed by a
// real host handshake; reading any field can fail arbitrarily, so the
// detector treats every access as suspect.
type Bridge interface {
	InitData() InitData
	ThemeParams() map[string]string
	ColorScheme() string // "light" or "dark"
	SecureStorage() storage.HostSecureStorage // nil when the capability is absent
	Ready() // acknowledge the handshake to the host
}

// plausible reports whether the payload looks like a real host session.
// A bridge without both a user id and a display name is a false positive:
// the host script is present but there is no signed session behind it.
func plausible(init InitData) bool {
	return init.User != nil && init.User.ID != 0 && init.User.FirstName != ""
}

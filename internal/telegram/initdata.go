package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"fingram/internal/storage"
)

// ParseInitData decodes a raw signed init payload (a URL query string with a
// JSON-encoded user field). The signature is not verified here: only the
// backend exchange endpoint can do that, which is why Raw is preserved
// verbatim.
func ParseInitData(raw string) (InitData, error) {
	if raw == "" {
		return InitData{}, fmt.Errorf("empty init data")
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("parse init data: %w", err)
	}

	init := InitData{
		Raw:          raw,
		ChatInstance: values.Get("chat_instance"),
		StartParam:   values.Get("start_param"),
	}
	if v := values.Get("auth_date"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			init.AuthDate = ts
		}
	}
	if userJSON := values.Get("user"); userJSON != "" {
		var user struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Username  string `json:"username"`
		}
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			return InitData{}, fmt.Errorf("parse init data user: %w", err)
		}
		init.User = &User{
			ID:        user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Username:  user.Username,
		}
	}
	return init, nil
}

// StaticBridge adapts an already-parsed init payload into a Bridge. It backs
// launches where the host handshake happened out of band (the payload arrives
// via configuration instead of a live host object).
type StaticBridge struct {
	Init   InitData
	Theme  map[string]string
	Scheme string
}

func (b *StaticBridge) InitData() InitData                       { return b.Init }
func (b *StaticBridge) ThemeParams() map[string]string           { return b.Theme }
func (b *StaticBridge) ColorScheme() string                      { return b.Scheme }
func (b *StaticBridge) SecureStorage() storage.HostSecureStorage { return nil }
func (b *StaticBridge) Ready()                                   {}

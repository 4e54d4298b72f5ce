package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	DeviceCookieName = "cinematch_device"
	deviceLifetime   = 365 * 24 * time.Hour
)

// Manager builds the TokenStore for each incoming request. The browser is
// identified by a device cookie that keys its durable storage entries.
type Manager struct {
	storage Storage
	decoder *Decoder
	secure  bool
}

func NewManager(storage Storage, decoder *Decoder, secureCookies bool) *Manager {
	return &Manager{storage: storage, decoder: decoder, secure: secureCookies}
}

func (m *Manager) Store(w http.ResponseWriter, r *http.Request) *TokenStore {
	cookies := NewHTTPCookies(w, r)
	deviceID, ok := cookies.Value(DeviceCookieName)
	if !ok || !validDeviceID(deviceID) {
		deviceID = uuid.NewString()
		cookies.Set(&http.Cookie{
			Name:     DeviceCookieName,
			Value:    deviceID,
			Path:     "/",
			MaxAge:   int(deviceLifetime / time.Second),
			SameSite: http.SameSiteLaxMode,
			Secure:   m.secure,
			HttpOnly: true,
		})
	}
	return NewTokenStore(deviceID, m.storage, cookies, m.decoder, m.secure)
}

func validDeviceID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

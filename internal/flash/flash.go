// Package flash carries one-shot notices across a redirect in a cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	cookieName = "flash"
	pendingKey = "flash.pending"
	maxNotices = 5
)

type Notice struct {
	Category string `json:"c,omitempty"`
	Text     string `json:"t"`
}

// Add queues a notice for the next rendered page.
func Add(c echo.Context, category, text string) {
	pending := pendingNotices(c)
	pending = append(pending, Notice{Category: category, Text: text})
	if len(pending) > maxNotices {
		pending = pending[len(pending)-maxNotices:]
	}
	c.Set(pendingKey, pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns queued notices and clears the cookie.
func Pop(c echo.Context) []Notice {
	notices := pendingNotices(c)
	if len(notices) == 0 {
		return nil
	}
	c.Set(pendingKey, []Notice(nil))
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return notices
}

func pendingNotices(c echo.Context) []Notice {
	if v, ok := c.Get(pendingKey).([]Notice); ok {
		return v
	}
	ck, err := c.Cookie(cookieName)
	if err != nil || ck.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var out []Notice
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

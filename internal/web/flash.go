package web

import (
	"net/http"
	"net/url"
	"strings"
)

// Flash message types, used by templates to pick a style.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

const flashCookieName = "flash"

// SetFlash queues a one-time message to display on the next rendered page.
// The message is carried in a cookie and cleared as soon as it is read.
func SetFlash(w http.ResponseWriter, flashType, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(flashType + "|" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash reads and clears the pending flash message. Returns empty strings
// when no flash is queued.
func PopFlash(w http.ResponseWriter, r *http.Request) (flashType, message string) {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return "", ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", ""
	}
	flashType, message, ok := strings.Cut(raw, "|")
	if !ok {
		return FlashInfo, raw
	}
	return flashType, message
}

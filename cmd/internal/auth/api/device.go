package api

import (
	"net/http"
	"strings"
	"time"

	"aya/cmd/identity/ids"
)

// resolveDeviceID returns the caller's device id, minting one (and setting the
// device cookie) when the request carries none. The header wins over the cookie
// so non-browser clients can pin their own id.
func (h *Handler) resolveDeviceID(w http.ResponseWriter, r *http.Request, now time.Time) string {
	if v := strings.TrimSpace(r.Header.Get(h.cfg.DeviceHeaderName)); ids.ValidDeviceID(v) {
		return v
	}
	if v, ok := cookieValue(r, h.cfg.DeviceCookieName); ok && ids.ValidDeviceID(v) {
		return v
	}

	id := ids.NewDeviceID()
	h.setDeviceCookie(w, id, now)
	return id
}

package httpc

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/apicontract/internal/constants"
)

type Httpc struct {
	TlsConfig *tls.Config
	// Timeout bounds the whole exchange. Zero means no client-side limit.
	Timeout time.Duration
	// NoRedirects returns 3xx responses as received instead of following them.
	NoRedirects bool
	// MaxRedirects caps followed redirects; zero means constants.DefaultMaxRedirects.
	MaxRedirects int
}

// New returns a resty.Client configured according to the receiver's settings.
// Defaults: MinVersion TLS1.2 when a TLS config is given with MinVersion zero.
// The client keeps no cookie jar so every request carries only the cookies
// it was built with.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	c.SetCookieJar(nil)
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	if h.NoRedirects {
		c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	} else {
		hops := h.MaxRedirects
		if hops <= 0 {
			hops = constants.DefaultMaxRedirects
		}
		c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(hops))
	}
	cfg := h.TlsConfig
	if cfg == nil {
		return c
	}
	cfg = cfg.Clone()
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	c.SetTLSClientConfig(cfg)
	return c
}

// TLSConfig builds a tls.Config from string settings. It returns nil when
// nothing is configured so the transport defaults apply.
func TLSConfig(insecure bool, minVersion, maxVersion string) *tls.Config {
	lo := parseTLSVersion(minVersion)
	hi := parseTLSVersion(maxVersion)
	if !insecure && lo == 0 && hi == 0 {
		return nil
	}
	// #nosec G402 -- insecure is an explicit opt-in for self-signed test targets
	return &tls.Config{InsecureSkipVerify: insecure, MinVersion: lo, MaxVersion: hi}
}

// parseTLSVersion accepts "1.2", "tls1.2", "TLS12" and similar. Unknown
// values map to 0.
func parseTLSVersion(s string) uint16 {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "tls")
	v = strings.TrimPrefix(v, "v")
	v = strings.ReplaceAll(v, ".", "")
	v = strings.ReplaceAll(v, "_", "")
	switch v {
	case "10":
		return tls.VersionTLS10
	case "11":
		return tls.VersionTLS11
	case "12":
		return tls.VersionTLS12
	case "13":
		return tls.VersionTLS13
	}
	return 0
}

package interceptor

import (
	"net/http"
	"strings"
)

// Auth stamps credentials and the identifying User-Agent on every request.
// When bound to a host, credentials only go to that host; redirects elsewhere
// carry the User-Agent alone.
type Auth struct {
	creds     *Credentials
	userAgent string
	host      string
}

// NewAuth returns an Auth filter reading creds on every request. An empty
// userAgent falls back to DefaultUserAgent.
func NewAuth(creds *Credentials, userAgent string) *Auth {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Auth{creds: creds, userAgent: userAgent}
}

// ForHost binds credentials to host (host[:port], as in URL.Host). An empty
// host stamps every request.
func (a *Auth) ForHost(host string) *Auth {
	a.host = strings.ToLower(strings.TrimSpace(host))
	return a
}

// FilterRequest implements RequestFilter.
func (a *Auth) FilterRequest(req *http.Request) {
	set := a.creds.Snapshot()

	if !a.allowed(req) {
		req.Header.Del(HeaderAuthorization)
		req.Header.Del(HeaderOTP)
		set.Token, set.OTP = "", ""
	}
	if set.Token != "" {
		req.Header.Set(HeaderAuthorization, AuthorizationValue(set.Token))
	}
	if otp := strings.TrimSpace(set.OTP); otp != "" {
		req.Header.Set(HeaderOTP, otp)
	}
	if !set.Scraping {
		req.Header.Set(HeaderUserAgent, a.userAgent)
	}
}

func (a *Auth) allowed(req *http.Request) bool {
	if a.host == "" {
		return true
	}
	return req.URL != nil && strings.EqualFold(req.URL.Host, a.host)
}

// AuthorizationValue renders token as an Authorization header value. Basic
// credentials pass through; anything else uses the "token" scheme.
func AuthorizationValue(token string) string {
	if strings.HasPrefix(token, "Basic") {
		return token
	}
	return "token " + token
}

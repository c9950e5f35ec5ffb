package interceptor

import "sync"

// CredentialSet is a point-in-time copy of Credentials.
type CredentialSet struct {
	Token    string
	OTP      string
	Scraping bool
}

// Credentials holds the authentication state shared by every request built
// through a chain. The owner updates it (for example after re-authenticating);
// each request reads one consistent snapshot.
type Credentials struct {
	mu  sync.RWMutex
	set CredentialSet
}

// NewCredentials returns credentials seeded with the given values.
func NewCredentials(set CredentialSet) *Credentials {
	return &Credentials{set: set}
}

// Snapshot returns the current values. A nil receiver yields the zero set.
func (c *Credentials) Snapshot() CredentialSet {
	if c == nil {
		return CredentialSet{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set
}

// Set replaces all values at once.
func (c *Credentials) Set(set CredentialSet) {
	c.mu.Lock()
	c.set = set
	c.mu.Unlock()
}

// SetToken updates the bearer/basic token.
func (c *Credentials) SetToken(token string) {
	c.mu.Lock()
	c.set.Token = token
	c.mu.Unlock()
}

// SetOTP updates the one-time password sent with the next requests.
func (c *Credentials) SetOTP(otp string) {
	c.mu.Lock()
	c.set.OTP = otp
	c.mu.Unlock()
}

// SetScraping toggles suppression of the identifying User-Agent.
func (c *Credentials) SetScraping(enabled bool) {
	c.mu.Lock()
	c.set.Scraping = enabled
	c.mu.Unlock()
}

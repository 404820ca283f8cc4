package portal

import (
	"maps"
	"sync"
)

// Session holds the portal authentication cookies for the lifetime of the
// process. Cookies are only ever merged in, never reset or expired.
type Session struct {
	mu      sync.RWMutex
	cookies map[string]string
}

func NewSession() *Session {
	return &Session{cookies: make(map[string]string)}
}

// Merge adds cookies to the session; on conflict the new value wins.
func (s *Session) Merge(cookies map[string]string) {
	if len(cookies) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cookies == nil {
		s.cookies = make(map[string]string, len(cookies))
	}
	maps.Copy(s.cookies, cookies)
}

// Snapshot returns a copy safe to hand to a request.
func (s *Session) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.cookies)
}

// IsAuthenticated only checks that some cookie was ever received. A page that
// still shows the login form is detected by the extractors instead.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cookies) > 0
}

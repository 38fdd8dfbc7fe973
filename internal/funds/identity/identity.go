// Package identity issues the opaque per-browser user key carried in the
// userId cookie.
package identity

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/logger"
)

const (
	// CookieName is the cookie holding the user key
	CookieName = "userId"
	// CookieMaxAge is how long a browser keeps its key
	CookieMaxAge = 30 * 24 * time.Hour
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type contextKey struct{}

// Provider reads and issues user keys
type Provider struct {
	secure   bool
	newKey   func() string
	onIssued func()
}

// Option configures a Provider
type Option func(*Provider)

// WithSecureCookie marks issued cookies Secure
func WithSecureCookie(secure bool) Option {
	return func(p *Provider) { p.secure = secure }
}

// WithKeyGenerator replaces the uuid-based generator
func WithKeyGenerator(gen func() string) Option {
	return func(p *Provider) { p.newKey = gen }
}

// WithIssueHook is called every time a new key is issued
func WithIssueHook(hook func()) Option {
	return func(p *Provider) { p.onIssued = hook }
}

// NewProvider creates a provider
func NewProvider(opts ...Option) *Provider {
	p := &Provider{newKey: uuid.NewString}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lookup returns the key carried by r, if it has a usable one
func (p *Provider) Lookup(r *http.Request) (domain.UserKey, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || !validKey.MatchString(c.Value) {
		return "", false
	}
	return domain.UserKey(c.Value), true
}

// GetOrCreate returns the request's key, issuing and setting a new cookie when
// the request has none. A client that drops cookies gets a new key every time.
func (p *Provider) GetOrCreate(w http.ResponseWriter, r *http.Request) (domain.UserKey, bool) {
	if key, ok := p.Lookup(r); ok {
		return key, false
	}

	key := domain.UserKey(p.newKey())
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(key),
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if p.onIssued != nil {
		p.onIssued()
	}

	logger.Debug(r.Context()).
		Str("user_key", string(key)).
		Msg("Issued new user key; favorites will not survive reload unless the cookie is kept")

	return key, true
}

// Middleware resolves the user key for every request and stores it in the context
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _ := p.GetOrCreate(w, r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), key)))
	})
}

// NewContext returns ctx carrying key
func NewContext(ctx context.Context, key domain.UserKey) context.Context {
	return context.WithValue(ctx, contextKey{}, key)
}

// FromContext returns the key stored by Middleware
func FromContext(ctx context.Context) (domain.UserKey, bool) {
	key, ok := ctx.Value(contextKey{}).(domain.UserKey)
	return key, ok && key != ""
}

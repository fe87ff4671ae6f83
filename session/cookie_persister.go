package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/token"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

const DefaultCookieName = "auth-token"

// NewCookieJar returns a jar backed by the public suffix list. The same jar is
// handed to the HTTP client so the credential cookie travels with requests.
func NewCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "[NewCookieJar] create cookie jar")
	}
	return jar, nil
}

// CookiePersister stores the access token in a same-site strict, path scoped
// cookie, with its expiry in a companion cookie so opaque tokens restore too.
// Only the access token is kept, so a restored session cannot be refreshed
// once that token expires. The jar lives in memory and its contents do not
// outlast the process.
type CookiePersister struct {
	jar  http.CookieJar
	url  *url.URL
	name string
}

var _ Persister = (*CookiePersister)(nil)

// NewCookiePersister scopes the cookie to the host and path of appURL.
func NewCookiePersister(jar http.CookieJar, appURL, name string) (*CookiePersister, error) {
	u, err := url.Parse(appURL)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewCookiePersister] parse url %q", appURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("[NewCookiePersister] url %q has no host", appURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	if name == "" {
		name = DefaultCookieName
	}
	return &CookiePersister{jar: jar, url: u, name: name}, nil
}

func (p *CookiePersister) Save(_ context.Context, sess Session) error {
	if sess.AccessToken == "" {
		return errors.New("[CookiePersister.Save] access token is required")
	}
	// The cookies live until the token itself expires, not the margin adjusted time.
	expires := sess.ExpiresAt.Add(ExpiryMargin)
	p.jar.SetCookies(p.url, []*http.Cookie{
		p.cookie(p.name, sess.AccessToken, expires),
		p.cookie(p.expiryName(), strconv.FormatInt(sess.ExpiresAt.Unix(), 10), expires),
	})
	return nil
}

// Load falls back to the exp claim when the expiry cookie is missing, which is
// the case for cookies written by a JWT issuing backend.
func (p *CookiePersister) Load(_ context.Context) (Session, error) {
	var accessToken, expiry string
	for _, c := range p.jar.Cookies(p.url) {
		switch c.Name {
		case p.name:
			accessToken = c.Value
		case p.expiryName():
			expiry = c.Value
		}
	}
	if accessToken == "" {
		return Session{}, apierrors.ErrNotFound
	}

	if expiry != "" {
		unix, err := strconv.ParseInt(expiry, 10, 64)
		if err != nil {
			return Session{}, errors.Wrapf(err, "[CookiePersister.Load] parse expiry %q", expiry)
		}
		return Session{AccessToken: accessToken, ExpiresAt: time.Unix(unix, 0)}, nil
	}

	expiresAt, err := token.ExpiryFromJWT(accessToken)
	if err != nil {
		return Session{}, errors.Wrap(err, "[CookiePersister.Load] read token expiry")
	}
	return Session{AccessToken: accessToken, ExpiresAt: expiresAt.Add(-ExpiryMargin)}, nil
}

// Delete overwrites the cookies with already expired ones rather than
// waiting for them to lapse.
func (p *CookiePersister) Delete(_ context.Context) error {
	var expired []*http.Cookie
	for _, name := range []string{p.name, p.expiryName()} {
		c := p.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		expired = append(expired, c)
	}
	p.jar.SetCookies(p.url, expired)
	return nil
}

func (p *CookiePersister) expiryName() string {
	return p.name + "-expires"
}

func (p *CookiePersister) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     p.url.Path,
		Expires:  expires,
		Secure:   p.url.Scheme == "https",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

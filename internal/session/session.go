package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope tags every token this service mints. Verification rejects anything
// else, so tokens from other tools sharing the secret cannot be replayed
// here.
const Scope = "pass"

// CookieName is the session cookie. Fixed: the dashboard client reads
// nothing from it, but the name is part of the deployed contract.
const CookieName = "lf_sess"

// LoginMaxAge is the explicit session lifetime set on revisit-code login.
const LoginMaxAge = 12 * time.Hour

// ErrNoSecret is returned when an Issuer is constructed without key
// material. Callers treat this as fatal misconfiguration.
var ErrNoSecret = errors.New("session secret is not configured")

// Issuer mints and verifies the signed pass-session tokens. Tokens are
// stateless; expiry is the only termination mechanism.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a signed token binding the bearer to passID for maxAge.
func (i *Issuer) Issue(passID string, maxAge time.Duration) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"scope":   Scope,
		"pass_id": passID,
		"iat":     now.Unix(),
		"exp":     now.Add(maxAge).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify fails closed: a blank token, bad signature, wrong algorithm,
// expired timestamp, or wrong scope all yield ok == false, never an error.
func (i *Issuer) Verify(token string) (passID string, ok bool) {
	if token == "" {
		return "", false
	}
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	if scope, _ := claims["scope"].(string); scope != Scope {
		return "", false
	}
	passID, _ = claims["pass_id"].(string)
	if passID == "" {
		return "", false
	}
	return passID, true
}

// SetCookie writes the session cookie. A maxAge <= 0 leaves the cookie
// session-scoped (dropped when the browser closes).
func SetCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge / time.Second)
	}
	http.SetCookie(w, cookie)
}

// FromRequest extracts and verifies the session cookie, returning the bound
// pass id. Absence of a cookie is simply "no session".
func (i *Issuer) FromRequest(r *http.Request) (passID string, ok bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return i.Verify(cookie.Value)
}

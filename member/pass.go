package member

import (
	"fmt"
	"time"

	"github.com/billbatista/acasinha-trip/localstore"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ScopeProfile = "profile"
	ScopeWallet  = "wallet"

	passTTL = 30 * 24 * time.Hour
)

// Scopes are the pages a member unlocks with their PIN.
var Scopes = []string{ScopeProfile, ScopeWallet}

type passClaims struct {
	Member string `json:"member"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// Passes remembers on the client that a member entered their PIN, so the
// page stays unlocked on the next visit. A pass is a signed token kept in
// the client's local store.
type Passes struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewPasses(secret string) *Passes {
	return &Passes{secret: []byte(secret), ttl: passTTL, now: time.Now}
}

func passKey(scope, member string) string {
	return "verified." + scope + "." + member
}

func (p *Passes) Issue(local localstore.Store, scope, member string) error {
	now := p.now()
	claims := passClaims{
		Member: member,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return fmt.Errorf("signing pass: %w", err)
	}
	local.Set(passKey(scope, member), token)
	return nil
}

func (p *Passes) IsVerified(local localstore.Store, scope, member string) bool {
	raw, ok := local.Get(passKey(scope, member))
	if !ok || raw == "" {
		return false
	}
	var claims passClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return false
	}
	return claims.Member == member && claims.Scope == scope
}

// Revoke removes every pass of member from this client.
func (p *Passes) Revoke(local localstore.Store, member string) {
	for _, scope := range Scopes {
		local.Remove(passKey(scope, member))
	}
}

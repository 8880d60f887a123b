package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

// Claims carries the user id in the subject and the role as a custom claim.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.New(apperr.KindUnauthorized, "token expired")
		}
		return Identity{}, apperr.Wrap(err, apperr.KindUnauthorized, "invalid token")
	}

	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, apperr.New(apperr.KindUnauthorized, "invalid token subject")
	}
	if !claims.Role.Valid() {
		return Identity{}, apperr.New(apperr.KindUnauthorized, "invalid token role")
	}
	return Identity{UserID: uid, Role: claims.Role}, nil
}

// Signer issues tokens accepted by a Verifier with the same secret and issuer.
type Signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (s *Signer) Sign(id Identity, ttl time.Duration) (string, error) {
	if !id.Role.Valid() {
		return "", fmt.Errorf("sign token: unknown role %q", id.Role)
	}
	now := s.now()
	claims := Claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

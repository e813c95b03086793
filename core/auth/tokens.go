package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// Token types
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var (
	errInvalidJWT = core.NewUnauthorizedError("invalid or expired jwt")
	signingMethod = jwt.SigningMethodHS256
	tokenAudience = "campus"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	OTPVerified bool     `json:"otp_verified"`
	Type        string   `json:"typ"`
}

// UserID returns the ID of the user the token was issued for.
func (c *Claims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

func (c *Claims) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, role := range c.Roles {
			if role == want {
				return true
			}
		}
	}
	return false
}

func (c *Claims) IsAdmin() bool { return c.HasRole(user.RoleAdmin) }

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"-"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"-"`
}

type tokenIssuer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTokenIssuer(conf *core.Config) tokenIssuer {
	return tokenIssuer{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		accessTTL:  conf.Auth.AccessTokenTTL,
		refreshTTL: conf.Auth.RefreshTokenTTL,
	}
}

func (ti tokenIssuer) claims(usr user.User, typ string, otpVerified bool, now time.Time, ttl time.Duration) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   strconv.FormatInt(usr.ID, 10),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:       usr.Email,
		Roles:       usr.Roles,
		OTPVerified: otpVerified,
		Type:        typ,
	}
}

func (ti tokenIssuer) sign(claims *Claims) (string, error) {
	ss, err := jwt.NewWithClaims(signingMethod, claims).SignedString(ti.key)
	return ss, errors.Wrap(err, "signing token")
}

// issue generates a signed access & refresh token pair for the user.
func (ti tokenIssuer) issue(usr user.User, otpVerified bool) (TokenPair, error) {
	now := nowFunc()
	access := ti.claims(usr, TokenAccess, otpVerified, now, ti.accessTTL)
	refresh := ti.claims(usr, TokenRefresh, otpVerified, now, ti.refreshTTL)

	var pair TokenPair
	var err error
	if pair.AccessToken, err = ti.sign(access); err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken, err = ti.sign(refresh); err != nil {
		return TokenPair{}, err
	}
	pair.AccessExpiresAt = access.ExpiresAt.Time
	pair.RefreshExpiresAt = refresh.ExpiresAt.Time
	return pair, nil
}

// parse validates the signature, time claims and type of the token.
func (ti tokenIssuer) parse(tokenStr, typ string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(token *jwt.Token) (interface{}, error) { return ti.key, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(nowFunc),
	)
	if err != nil {
		return nil, errInvalidJWT
	}
	if claims.Type != typ || claims.UserID() == 0 {
		return nil, errInvalidJWT
	}
	return claims, nil
}

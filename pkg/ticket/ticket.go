// Package ticket implements the signed, time-boxed tickets that carry
// activation and password-reset state outside the user store. A ticket is a
// signed JWT whose claims embed the pending payload plus a one-time code;
// signature and expiry are checked in a single place per ticket kind.
package ticket

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eduquest/user-service/internal/domain/entity"
	"github.com/eduquest/user-service/pkg/helpers"
)

var ErrInvalid = errors.New("invalid or expired ticket")

// PendingUser is a not-yet-persisted account riding inside an activation
// ticket. It becomes a durable User only when activation succeeds.
type PendingUser struct {
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"passwordHash"`
	AvatarURL    string      `json:"avatar,omitempty"`
	Role         entity.Role `json:"role"`
}

// ActivationTicket is the verified payload of an activation token.
type ActivationTicket struct {
	User PendingUser
	Code string
}

// ResetTicket is the verified payload of a password-reset token.
type ResetTicket struct {
	UserID string
	Email  string
	Code   string
}

type activationClaims struct {
	User PendingUser `json:"user"`
	Code string      `json:"activationCode"`
	jwt.RegisteredClaims
}

type resetClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Code   string `json:"resetCode"`
	jwt.RegisteredClaims
}

// Codec signs and verifies activation and reset tickets.
type Codec struct {
	secret        []byte
	activationTTL time.Duration
	resetTTL      time.Duration

	// Now is overridable in tests to simulate expiry.
	Now func() time.Time
}

func NewCodec(secret string, activationTTL, resetTTL time.Duration) *Codec {
	return &Codec{
		secret:        []byte(secret),
		activationTTL: activationTTL,
		resetTTL:      resetTTL,
		Now:           time.Now,
	}
}

// IssueActivation mints an activation token carrying the pending user and a
// fresh one-time code. The store is not touched.
func (c *Codec) IssueActivation(u PendingUser) (token, code string, err error) {
	code, err = helpers.GenOTPCode()
	if err != nil {
		return "", "", err
	}
	now := c.Now()
	claims := &activationClaims{
		User: u,
		Code: code,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.activationTTL)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	return token, code, err
}

// VerifyActivation checks signature and expiry and returns the embedded
// pending user and code.
func (c *Codec) VerifyActivation(token string) (*ActivationTicket, error) {
	claims := &activationClaims{}
	if err := c.parse(token, claims); err != nil {
		return nil, err
	}
	return &ActivationTicket{User: claims.User, Code: claims.Code}, nil
}

// IssueReset mints a reset token for an existing user and reports the
// expiry the caller must persist alongside it.
func (c *Codec) IssueReset(userID, email string) (token, code string, expires time.Time, err error) {
	code, err = helpers.GenOTPCode()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := c.Now()
	expires = now.Add(c.resetTTL)
	claims := &resetClaims{
		UserID: userID,
		Email:  email,
		Code:   code,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	return token, code, expires, err
}

// VerifyReset checks signature and expiry and returns the embedded user
// reference and code.
func (c *Codec) VerifyReset(token string) (*ResetTicket, error) {
	claims := &resetClaims{}
	if err := c.parse(token, claims); err != nil {
		return nil, err
	}
	return &ResetTicket{UserID: claims.UserID, Email: claims.Email, Code: claims.Code}, nil
}

func (c *Codec) parse(token string, claims jwt.Claims) error {
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.Now() }))
	if err != nil || !tkn.Valid {
		return ErrInvalid
	}
	return nil
}

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "raffle-admin"
	maxTokenTTL = 30 * 24 * time.Hour
)

var (
	ErrNoSecret   = errors.New("jwt secret not initialized")
	ErrNoOperator = errors.New("token does not name an operator")
	ErrInvalidTTL = fmt.Errorf("token lifetime must be between 0 and %s", maxTokenTTL)
)

type keyring struct {
	secret []byte
	now    func() time.Time
}

var keys = keyring{now: time.Now}

// InitJWT sets the HMAC secret shared by token minting and verification.
func InitJWT(secret string) {
	keys = keyring{secret: []byte(secret), now: time.Now}
}

// OperatorClaims carries the operator id in the standard subject claim.
type OperatorClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// OperatorID is zero when the subject is not a positive integer.
func (c *OperatorClaims) OperatorID() uint {
	id, err := strconv.ParseUint(c.Subject, 10, strconv.IntSize)
	if err != nil {
		return 0
	}
	return uint(id)
}

// Validate runs after the registered claims checks during parsing.
func (c *OperatorClaims) Validate() error {
	if c.OperatorID() == 0 {
		return ErrNoOperator
	}
	return nil
}

// GenerateToken signs an HS256 token for operatorID that expires after ttl.
func GenerateToken(operatorID uint, email string, ttl time.Duration) (string, error) {
	if len(keys.secret) == 0 {
		return "", ErrNoSecret
	}
	if operatorID == 0 {
		return "", ErrNoOperator
	}
	if ttl <= 0 || ttl > maxTokenTTL {
		return "", ErrInvalidTTL
	}

	now := keys.now()
	claims := &OperatorClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(operatorID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(keys.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, issuer and expiry and returns the claims.
func ValidateToken(raw string) (*OperatorClaims, error) {
	if len(keys.secret) == 0 {
		return nil, ErrNoSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(keys.now),
	)
	claims := &OperatorClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return keys.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

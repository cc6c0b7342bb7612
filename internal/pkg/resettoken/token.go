// internal/pkg/resettoken/token.go
package resettoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reset tokens are signed with the customer's current password hash. The
// hash changes whenever the password does, so every previously issued token
// fails signature verification automatically and no revocation list is
// needed. The flip side: verification must look the customer up first to
// obtain the current hash before the signature can be checked at all.

// Claims carries the reset-token payload: the customer id and an absolute
// expiry embedded by the jwt library as the exp claim.
type Claims struct {
	CustomerID string `json:"customer_id"`
	jwt.RegisteredClaims
}

// Generate signs a reset token for the given customer, valid until now+ttl.
func Generate(customerID, passwordHash string, ttl time.Duration) (string, error) {
	if passwordHash == "" {
		return "", fmt.Errorf("reset token requires a password hash to sign with")
	}

	claims := &Claims{
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(passwordHash))
}

// Verify checks the token signature against the customer's current password
// hash and returns the claims. Expired or re-signed tokens fail here.
func Verify(token, passwordHash string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(passwordHash), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// UnverifiedCustomerID extracts the customer id without checking the
// signature. The caller must fetch that customer and call Verify with the
// record's current hash before trusting anything else in the token.
func UnverifiedCustomerID(token string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("malformed token: %w", err)
	}
	if claims.CustomerID == "" {
		return "", fmt.Errorf("token has no customer id")
	}
	return claims.CustomerID, nil
}

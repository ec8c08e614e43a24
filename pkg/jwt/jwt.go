package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims incluye los claims estándar JWT más la identidad del actor.
// Role y VendorID permiten autorizar sin consultar la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Role     string `json:"role"`                // admin | manager | clerk | vendor | system
	VendorID string `json:"vendor_id,omitempty"` // solo rol vendor
}

const roleVendor = "vendor"

// ErrInvalidClaims token bien firmado cuya identidad no es utilizable.
var ErrInvalidClaims = errors.New("jwt: claims inválidos")

// validate un proveedor siempre trae vendor_id y ningún otro rol lo lleva.
func (c *Claims) validate() error {
	switch {
	case c.UserID == "" || c.Role == "":
		return fmt.Errorf("%w: user_id y role son obligatorios", ErrInvalidClaims)
	case c.Role == roleVendor && c.VendorID == "":
		return fmt.Errorf("%w: rol vendor sin vendor_id", ErrInvalidClaims)
	case c.Role != roleVendor && c.VendorID != "":
		return fmt.Errorf("%w: vendor_id solo aplica al rol vendor", ErrInvalidClaims)
	}
	return nil
}

// Generate genera un token HS256 con la identidad del actor.
func Generate(secret, userID, role, vendorID, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	if expMinutes <= 0 {
		return "", fmt.Errorf("jwt: expiración debe ser positiva")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:   userID,
		Role:     role,
		VendorID: vendorID,
	}
	if err := claims.validate(); err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida firma (solo HS256), expiración con 30s de tolerancia y la
// coherencia de la identidad.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, err
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

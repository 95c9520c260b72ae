package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const (
	RoleBorrower = "borrower"
	RoleInvestor = "investor"
	RoleApprover = "approver"
	RoleAdmin    = "admin"
)

// JwtCustomClaim is issued by the wallet-auth service after a signed-message login.
type JwtCustomClaim struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	jwt.StandardClaims
}

// IsReviewer reports whether the role may read any loan's verification state.
func IsReviewer(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleApprover, RoleAdmin:
		return true
	default:
		return false
	}
}

// devJwtSecret signs tokens outside production when API_SECRET is unset.
const devJwtSecret = "Lending-Secret"

var ErrJwtSecretMissing = errors.New("API_SECRET must be set when GO_ENV=production")

func isProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// CheckJwtSecret is called at startup; production refuses to run on the dev secret.
func CheckJwtSecret() error {
	_, err := jwtSecret()
	return err
}

func jwtSecret() ([]byte, error) {
	if secret := strings.TrimSpace(os.Getenv("API_SECRET")); secret != "" {
		return []byte(secret), nil
	}
	if isProduction() {
		return nil, ErrJwtSecretMissing
	}
	return []byte(devJwtSecret), nil
}

func JwtGenerate(address string, role string) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		tokenLifespan = 24
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		Address: strings.ToLower(address),
		Role:    role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(tokenLifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString(secret)
}

func JwtValidate(token string) (*jwt.Token, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return secret, nil
	})
}

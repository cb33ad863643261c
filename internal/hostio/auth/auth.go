// Package auth backs the #io_hash_password/#io_verify_password and
// #io_jwt_sign/#io_jwt_verify host facilities with bcrypt and JWT.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of plaintext.
func HashPassword(plaintext []byte) ([]byte, error) {
	return bcrypt.GenerateFromPassword(plaintext, bcrypt.DefaultCost)
}

// VerifyPassword reports whether plaintext matches hash.
func VerifyPassword(hash, plaintext []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, plaintext) == nil
}

// SignJWT signs claims with secret using HS256, adding an exp claim
// ttlSeconds from now.
func SignJWT(claims map[string]string, secret []byte, ttlSeconds int64) (string, error) {
	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}
	mapClaims["exp"] = time.Now().Add(time.Duration(ttlSeconds) * time.Second).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return token.SignedString(secret)
}

// VerifyJWT checks tokenString's signature against secret and returns
// its claims as strings.
func VerifyJWT(tokenString string, secret []byte) (map[string]string, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}
	out := make(map[string]string, len(claims))
	for k, v := range claims {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out, nil
}

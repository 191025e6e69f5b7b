package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt"

	"ticketing/entity"
)

// TokenVerifier checks session tokens issued by the auth service and turns
// them into a verified identity. Issuing tokens is not this codebase's job.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) TokenVerifier {
	return TokenVerifier{secret: []byte(secret)}
}

func (v TokenVerifier) Verify(tokenString string) (entity.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return entity.User{}, fmt.Errorf("could not parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return entity.User{}, entity.ErrUnauthorized
	}

	userID, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	if userID == "" {
		return entity.User{}, entity.ErrUnauthorized
	}

	return entity.User{UserID: userID, Email: email}, nil
}

package authentication

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
)

var (
	jwtKey          = []byte("change-me")
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	emailTokenTTL   = 24 * time.Hour
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Configure sets the signing secret and token lifetimes
func Configure(secret string, accessTTL, refreshTTL time.Duration) {
	jwtKey = []byte(secret)
	if accessTTL > 0 {
		accessTokenTTL = accessTTL
	}
	if refreshTTL > 0 {
		refreshTokenTTL = refreshTTL
	}
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// GenerateTokenPair issues an access and a refresh token for user.
// impersonatorID is the admin acting as the user, zero otherwise.
func GenerateTokenPair(user models.User, impersonatorID uint) (TokenPair, error) {
	access, err := signToken(user, models.TokenAccess, accessTokenTTL, impersonatorID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := signToken(user, models.TokenRefresh, refreshTokenTTL, impersonatorID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// GenerateEmailToken signs a one-purpose token used in verification links
func GenerateEmailToken(user models.User) (string, error) {
	return signToken(user, models.TokenEmailVerify, emailTokenTTL, 0)
}

func signToken(user models.User, tokenType string, ttl time.Duration, impersonatorID uint) (string, error) {
	now := time.Now()
	claims := &models.UserClaims{
		UserID:         user.ID,
		Role:           user.Role(),
		TokenType:      tokenType,
		ImpersonatorID: impersonatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ParseToken validates signature, expiry and the expected token type
func ParseToken(tokenString, tokenType string) (*models.UserClaims, error) {
	var claims models.UserClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jwtKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return &claims, nil
}

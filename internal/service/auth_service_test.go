package service

import (
	"testing"
	"time"

	"gridloop/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTokens(t *testing.T) {
	svc := NewAuthService("secret")

	issued, err := svc.IssueClientToken()
	require.NoError(t, err)

	claims, err := svc.ValidateClientToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.ClientID, claims.ClientID)

	other, err := svc.IssueClientToken()
	require.NoError(t, err)
	assert.NotEqual(t, issued.ClientID, other.ClientID)

	_, err = NewAuthService("different").ValidateClientToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateClientToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredClientToken(t *testing.T) {
	svc := NewAuthService("secret")
	past := time.Now().Add(-time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &model.ClientClaims{
		ClientID: "old",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateClientToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

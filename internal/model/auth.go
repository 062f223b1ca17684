package model

import "github.com/golang-jwt/jwt/v5"

// ClientClaims are JWT claims identifying one browser client
type ClientClaims struct {
	ClientID string `json:"clientId"`
	jwt.RegisteredClaims
}

// ClientTokenResponse is returned when a client registers
type ClientTokenResponse struct {
	Token    string `json:"token"`
	ClientID string `json:"clientId"`
}

package model

import "github.com/golang-jwt/jwt/v5"

// UserChannel is the personal push channel carrying messages addressed to userID.
func UserChannel(userID string) string {
	return "messages:" + userID
}

type PushEvent struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

type PushEventParams struct {
	Channel string  `json:"channel"`
	Data    Message `json:"data"`
}

type ConnectClaims struct {
	jwt.RegisteredClaims
}

type SubscribeClaims struct {
	jwt.RegisteredClaims

	Channel string `json:"channel"`
	Client  string `json:"client,omitempty"`
	UserID  string `json:"user_id"`
}

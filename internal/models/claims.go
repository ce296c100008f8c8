package models

import (
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// API scopes
const (
	ScopePaymentsRead  = "payments:read"
	ScopePaymentsWrite = "payments:write"
)

type ClientClaims struct {
	jwt.RegisteredClaims
	ClientID     string   `json:"client_id"`
	Scopes       []string `json:"scopes"`
	TokenVersion int      `json:"token_version"`
}

// HasScope checks if the claims include a specific scope
func (c *ClientClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ParseScopes splits a space separated scope list.
func ParseScopes(s string) []string {
	return strings.Fields(s)
}

// Package common contains shared constants and sentinel errors used across
// userhub components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the session token
// on authenticated requests.
const AccessTokenHeaderName = "X-Access-Token"

// APIKeyScheme is the authorization scheme expected in front of the API key.
const APIKeyScheme = "Bearer"

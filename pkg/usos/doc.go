// Package usos implements the OAuth1 client for the USOS identity
// provider: the three-legged handshake (request token, authorization
// redirect, access token exchange) and the profile fetch for the
// authenticated user.
package usos

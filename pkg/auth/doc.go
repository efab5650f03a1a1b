// Package auth implements identity for the inventory service.
//
// Identity is delegated to the university single sign-on provider: the
// login handlers drive the three-legged handshake, and the reconciler
// maps the returned profile onto a locally stored principal
// (find-or-create plus attribute sync). Authenticated requests carry
// either a session cookie (web) or a bearer token (mobile); the
// resolver chain treats both as interchangeable credentials.
package auth

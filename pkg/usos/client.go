package usos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/usos-inventory/server/pkg/apperr"
)

const (
	requestTokenPath = "/services/oauth/request_token"
	authorizePath    = "/services/oauth/authorize"
	accessTokenPath  = "/services/oauth/access_token"
	userProfilePath  = "/services/users/user"
)

// profileFields is the fixed set of attributes requested from the provider.
var profileFields = []string{
	"id", "first_name", "last_name", "student_status", "staff_status",
	"email", "has_email", "profile_url",
}

// RequestCredential is the temporary key/secret pair issued during the
// first leg of the handshake. It lives in session state between the
// authorization redirect and the callback.
type RequestCredential struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

// AccessCredential is the permanent token obtained by exchanging a
// verified request credential.
type AccessCredential struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

// Client performs the OAuth1 three-legged handshake against USOS and
// fetches the authenticated user's profile.
type Client struct {
	consumerKey    string
	consumerSecret string
	baseURL        string
	timeout        time.Duration
}

// NewClient creates a USOS client with registered consumer credentials.
// baseURL is the provider origin, e.g. https://apps.usos.pw.edu.pl.
func NewClient(consumerKey, consumerSecret, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		baseURL:        strings.TrimRight(baseURL, "/"),
		timeout:        timeout,
	}
}

// oauthConfig builds the library config for one handshake. The callback
// URL differs per login because it embeds the channel hint.
func (c *Client) oauthConfig(callbackURL string) *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    c.consumerKey,
		ConsumerSecret: c.consumerSecret,
		CallbackURL:    callbackURL,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: c.baseURL + requestTokenPath,
			AuthorizeURL:    c.baseURL + authorizePath,
			AccessTokenURL:  c.baseURL + accessTokenPath,
		},
	}
}

// RequestToken obtains an unauthorized request token and the provider
// authorization URL the user must be redirected to.
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (*RequestCredential, string, error) {
	cfg := c.oauthConfig(callbackURL)

	token, secret, err := cfg.RequestToken()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindUpstreamUnavailable, err,
			"failed to obtain request token from provider")
	}

	authorizationURL, err := cfg.AuthorizationURL(token)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindUpstreamUnavailable, err,
			"failed to build provider authorization URL")
	}

	// USOS supports a reduced consent screen.
	query := authorizationURL.Query()
	query.Set("interactivity", "minimal")
	authorizationURL.RawQuery = query.Encode()

	return &RequestCredential{Token: token, Secret: secret}, authorizationURL.String(), nil
}

// AccessToken exchanges a verified request credential for a permanent
// access credential. Missing inputs short-circuit before any network
// call: an expired session or a provider that did not echo a verifier is
// a client error, not an upstream one.
func (c *Client) AccessToken(ctx context.Context, temp *RequestCredential, verifier string) (*AccessCredential, error) {
	if temp == nil || temp.Token == "" || temp.Secret == "" || verifier == "" {
		return nil, apperr.New(apperr.KindMissingCredential,
			"missing token or verifier in session or callback parameters")
	}

	cfg := c.oauthConfig("")
	accessToken, accessSecret, err := cfg.AccessToken(temp.Token, temp.Secret, verifier)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, err,
			"failed to exchange request token for access token")
	}

	return &AccessCredential{Token: accessToken, Secret: accessSecret}, nil
}

// FetchProfile issues a signed request for the fixed profile field set.
func (c *Client) FetchProfile(ctx context.Context, cred *AccessCredential) (*Profile, error) {
	if cred == nil || cred.Token == "" || cred.Secret == "" {
		return nil, apperr.New(apperr.KindMissingCredential, "missing access credential")
	}

	cfg := c.oauthConfig("")
	httpClient := cfg.Client(ctx, oauth1.NewToken(cred.Token, cred.Secret))
	httpClient.Timeout = c.timeout

	endpoint := c.baseURL + userProfilePath + "?fields=" +
		url.QueryEscape(strings.Join(profileFields, "|"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProfileFetchFailed, err, "failed to build profile request")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProfileFetchFailed, err,
			"unable to retrieve user info from provider")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProfileFetchFailed, err,
			"failed to read provider response")
	}

	if resp.StatusCode != http.StatusOK {
		// The upstream status and body travel with the error for
		// diagnostics instead of being swallowed.
		return nil, apperr.New(apperr.KindProfileFetchFailed,
			"provider profile request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, apperr.Wrap(apperr.KindProfileFetchFailed, err,
			"malformed provider profile response: %s", strings.TrimSpace(string(body)))
	}

	return &profile, nil
}

// AuthorizationCallbackURL builds the callback URL for a login, embedding
// the channel hint so the callback can branch on it.
func AuthorizationCallbackURL(baseURL, channel string) string {
	return fmt.Sprintf("%s/oauth/callback/?source=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(channel))
}

package auth

// Channel is the delivery mode a login was initiated from. It is captured
// at handshake start and drives the response shape at callback
// completion: JSON plus token for mobile clients, redirects for the rest.
type Channel string

const (
	ChannelWeb         Channel = "web"
	ChannelMobile      Channel = "mobile"
	ChannelBackendTest Channel = "backend_test"
)

// ParseChannel maps the request-supplied source hint onto the closed
// channel set. Unknown or empty hints default to the web channel.
func ParseChannel(source string) Channel {
	switch source {
	case string(ChannelMobile):
		return ChannelMobile
	case string(ChannelBackendTest):
		return ChannelBackendTest
	default:
		return ChannelWeb
	}
}

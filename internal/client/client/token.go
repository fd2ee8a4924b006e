package client

import "context"

// TokenProvider supplies the bearer token for outbound requests and the
// push-channel handshake. An empty token means "connect anonymously", which
// the server contract permits. The provider is owned by the surrounding
// application; this core only consumes it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. The empty value is a valid
// anonymous provider.
type StaticTokenProvider string

func (p StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return string(p), nil
}

package auth

import (
	"context"

	"docudrop-backend/internal/providers/dropbox"
)

// ClientFactory wraps a valid access token into a ready-to-use Dropbox client.
// It always goes through the token service and never accepts a token from the
// caller, so a client can only exist with a currently-valid credential.
type ClientFactory struct {
	tokens *TokenService
	opts   []dropbox.Option
}

func NewClientFactory(tokens *TokenService, opts ...dropbox.Option) *ClientFactory {
	return &ClientFactory{tokens: tokens, opts: opts}
}

// CreateClient obtains a valid access token (refreshing if needed) and binds
// a Dropbox client to it.
func (f *ClientFactory) CreateClient(ctx context.Context) (*dropbox.Client, error) {
	token, err := f.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return dropbox.NewClient(token, f.opts...), nil
}

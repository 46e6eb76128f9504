package upload

import (
	"context"

	"docudrop-backend/internal/providers/dropbox"
)

// ClientFactory produces a Dropbox client bound to a currently-valid access
// token. The service never holds tokens itself; it asks for a fresh client at
// the point of use so expired credentials are refreshed transparently.
type ClientFactory interface {
	CreateClient(ctx context.Context) (*dropbox.Client, error)
}

package ports

import "context"

// Publisher fans out change notifications of the admin API.
type Publisher interface {
	PublishRaw(ctx context.Context, topic string, payload []byte) error
}

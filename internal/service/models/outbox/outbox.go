package outbox

import (
	"time"
)

// Message is a domain event waiting to be published to RabbitMQ.
// Events are written here in the same transaction scope as the state
// change they describe and delivered by the outbox worker.
type Message struct {
	ID           int64
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

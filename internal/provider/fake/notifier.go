package fake

import (
	"context"
	"sync"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
)

// Notifier is a provider.Notifier that logs and records the messages.
type Notifier struct {
	mu     sync.Mutex
	sent   []model.EmailMessage
	logger log.Logger
}

var _ provider.Notifier = &Notifier{}

// NewNotifier returns a recording notifier.
func NewNotifier(logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Noop
	}
	return &Notifier{logger: logger.WithValues(log.Kv{"svc": "provider.FakeNotifier"})}
}

func (n *Notifier) Send(ctx context.Context, msg model.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return &provider.Error{Kind: provider.KindValidation, Code: "NO_RECIPIENT", Message: "message has no recipient"}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	n.logger.Infof("Email %q sent to %s", msg.Subject, msg.To)

	return nil
}

// Sent returns the delivered messages.
func (n *Notifier) Sent() []model.EmailMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.EmailMessage(nil), n.sent...)
}

// Package events publishes storefront domain events.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const (
	UserRegistered    = "user_registered"
	ProductCreated    = "product_created"
	ProductUpdated    = "product_updated"
	ProductDeleted    = "product_deleted"
	CartItemAdded     = "cart_item_added"
	CartCleared       = "cart_cleared"
	CheckoutStarted   = "checkout_started"
	CheckoutCompleted = "checkout_completed"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	PublishEvent(ctx context.Context, key string, event map[string]any) error
	Close() error
}

type Nop struct{}

func (Nop) PublishEvent(context.Context, string, map[string]any) error { return nil }
func (Nop) Close() error                                            { return nil }

// Emit publishes with a bounded timeout. Failures are logged, not returned:
// events never fail the request that caused them.
func Emit(ctx context.Context, p Publisher, eventType string, key any, fields map[string]any) {
	if p == nil {
		return
	}
	event := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		event[k] = v
	}
	event["type"] = eventType
	event["at"] = time.Now().UTC().Format(time.RFC3339)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.PublishEvent(pubCtx, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Error("event_publish_error", "type", eventType, "error", err)
	}
}

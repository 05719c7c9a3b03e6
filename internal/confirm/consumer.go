// Package confirm completes checkout sessions when the payment provider
// confirms them, which is when the confirmed cart-clear policy empties carts.
package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/commerce-service/internal/checkout"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic   = "payment-confirmations"
	DefaultGroupID = "commerce-service-confirmations"
)

// Event is published once a hosted checkout is paid.
type Event struct {
	ProfileID  string `json:"profile_id"`
	CheckoutID string `json:"checkout_id"`
	OrderID    string `json:"order_id,omitempty"`
}

// Completer finishes one profile's checkout session.
type Completer interface {
	Complete(ctx context.Context, profileID, checkoutID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader    messageReader
	completer Completer
	log       *slog.Logger
}

func NewConsumer(completer Completer, log *slog.Logger, topic, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 1e6,
	})
	return &Consumer{reader: reader, completer: completer, log: log}
}

// Run reads until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("error reading payment confirmation", "error", err)
			continue
		}
		if err := c.handle(ctx, m.Value); err != nil {
			c.log.Warn("payment confirmation not applied", "offset", m.Offset, "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var ev Event
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("parse event: %w", err)
	}
	if ev.ProfileID == "" || ev.CheckoutID == "" {
		return errors.New("missing profile_id or checkout_id")
	}

	err := c.completer.Complete(ctx, ev.ProfileID, ev.CheckoutID)
	if errors.Is(err, checkout.ErrSessionNotFound) {
		// already completed, discarded or evicted
		c.log.Debug("confirmation for unknown checkout", "profile_id", ev.ProfileID, "checkout_id", ev.CheckoutID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("complete checkout %s: %w", ev.CheckoutID, err)
	}
	c.log.Info("checkout confirmed", "profile_id", ev.ProfileID, "checkout_id", ev.CheckoutID, "order_id", ev.OrderID)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

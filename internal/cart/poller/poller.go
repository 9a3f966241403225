package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/Eymeric05/E-Perfume-sub000/internal/cart"
	"github.com/Eymeric05/E-Perfume-sub000/internal/cart/cache"
	"github.com/Eymeric05/E-Perfume-sub000/internal/order"
	"github.com/segmentio/kafka-go"
)

// Poller consumes order-paid events and clears the buyer's cart. The
// cart is deleted at most once per order: a duplicate delivery finds no
// cart and falls through.
type Poller struct {
	repo   cart.Repository
	reader *kafka.Reader
	cache  cache.CartCache
}

func NewPoller(repo cart.Repository, cartCache cache.CartCache, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-paid",
		GroupID:  "cart-clearing-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo, reader, cartCache}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consumeAndClearCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing reader: %v", err)
	}
}

func (p *Poller) consumeAndClearCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("error reading message: %v", err)
		}
		return
	}

	var payload order.OrderPaidPayload
	if errUnmarshal := json.Unmarshal(m.Value, &payload); errUnmarshal != nil {
		log.Printf("error parsing order-paid message: %v", errUnmarshal)
		return
	}
	if payload.UserID == "" {
		log.Println("order-paid message missing user_id")
		return
	}

	errDelete := p.repo.DeleteCart(ctx, payload.UserID)
	if errDelete != nil && !errors.Is(errDelete, cart.ErrCartNotFound) {
		log.Printf("failed to delete cart: %v", errDelete)
	}

	if errCache := p.cache.Delete(ctx, payload.UserID); errCache != nil {
		log.Printf("failed to delete cart cache: %v", errCache)
	}
}

package sse

import (
	"context"
	"sync"

	"flyerxpress/internal/models"
)

const clientBuffer = 10

// SalesEmitter fans sale events out to the sellers watching each listing.
type SalesEmitter struct {
	mu      sync.RWMutex
	clients map[string][]chan models.SaleEvent
}

func NewSalesEmitter() *SalesEmitter {
	return &SalesEmitter{clients: make(map[string][]chan models.SaleEvent)}
}

// Subscribe registers a client for listingID. The channel is closed once ctx is done.
func (e *SalesEmitter) Subscribe(ctx context.Context, listingID string) <-chan models.SaleEvent {
	ch := make(chan models.SaleEvent, clientBuffer)

	e.mu.Lock()
	e.clients[listingID] = append(e.clients[listingID], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(listingID, ch)
	}()

	return ch
}

// Emit never blocks: a client with a full buffer misses the event.
func (e *SalesEmitter) Emit(evt models.SaleEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.clients[evt.ListingID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// EmitPayment turns a completed payment into a sale event. Other payment events are ignored.
func (e *SalesEmitter) EmitPayment(evt models.PaymentEvent) {
	if evt.Type != models.PaymentCompleted {
		return
	}
	e.Emit(models.SaleEvent{
		ListingID:     evt.ListingID,
		Quantity:      evt.Quantity,
		Amount:        evt.GrandTotal,
		TransactionID: evt.TransactionID,
		TicketIDs:     evt.TicketIDs,
		Timestamp:     evt.Timestamp,
	})
}

func (e *SalesEmitter) remove(listingID string, ch chan models.SaleEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[listingID]
	for i, c := range clients {
		if c == ch {
			e.clients[listingID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[listingID]) == 0 {
		delete(e.clients, listingID)
	}
}

func (e *SalesEmitter) ClientCount(listingID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[listingID])
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyerxpress/internal/config"
	"flyerxpress/internal/kafka"
	listing_db "flyerxpress/internal/listings/db"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrCheckoutBusy    = errors.New("another operation is in progress for this checkout")
	ErrBuyerOnly       = errors.New("only buyers can check out")
	ErrListingNotFound = errors.New("listing not found")
	ErrListingsDown    = errors.New("listings unavailable")
)

type ListingReader interface {
	GetByID(ctx context.Context, id string) (*models.Listing, error)
}

// SessionStore persists wizard snapshots between requests and serialises
// operations on one session.
type SessionStore interface {
	Save(ctx context.Context, w *Wizard) error
	Load(ctx context.Context, id string) (*Wizard, error)
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

type TicketIssuer interface {
	Issue(ctx context.Context, order models.CompletedOrder) ([]models.Ticket, error)
}

// SaleNotifier receives payment events in-process.
type SaleNotifier interface {
	EmitPayment(evt models.PaymentEvent)
}

// View is what API callers see of a wizard. Secrets are masked.
type View struct {
	ID            string          `json:"id"`
	ListingID     string          `json:"listing_id"`
	ListingTitle  string          `json:"listing_title"`
	State         State           `json:"state"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Fee           decimal.Decimal `json:"fee"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Currency      string          `json:"currency"`
	Method        Method          `json:"method,omitempty"`
	Details       Details         `json:"details"`
	CryptoQuotes  []CryptoQuote   `json:"crypto_quotes,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	TicketIDs     []string        `json:"ticket_ids,omitempty"`
}

func NewView(w *Wizard) *View {
	v := &View{
		ID:            w.ID,
		ListingID:     w.ListingID,
		ListingTitle:  w.ListingTitle,
		State:         w.State,
		Quantity:      w.Quantity,
		UnitPrice:     w.UnitPrice,
		Subtotal:      w.Subtotal(),
		Fee:           w.Fee(),
		GrandTotal:    w.GrandTotal(),
		Currency:      w.Currency,
		Method:        w.Method,
		Details:       w.Details.Masked(),
		TransactionID: w.TransactionID,
		FailureReason: w.FailureReason,
		TicketIDs:     w.TicketIDs,
	}
	if w.Method == MethodCrypto {
		v.CryptoQuotes = CryptoQuotes(v.GrandTotal)
	}
	return v
}

type Topics struct {
	PaymentCompleted string
	PaymentFailed    string
}

type Service struct {
	listings  ListingReader
	store     SessionStore
	processor Processor
	tickets   TicketIssuer
	publisher kafka.Publisher
	notifier  SaleNotifier
	topics    Topics
	currency  string
	logger    *logger.Logger
	now       func() time.Time
}

type Deps struct {
	Listings  ListingReader
	Store     SessionStore
	Processor Processor
	Tickets   TicketIssuer
	Publisher kafka.Publisher
	// Notifier is optional. Leave it nil when sale events reach subscribers through Kafka.
	Notifier SaleNotifier
	Logger   *logger.Logger
}

func NewService(deps Deps, cfg config.CheckoutConfig, topics config.TopicConfig) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	return &Service{
		listings:  deps.Listings,
		store:     deps.Store,
		processor: deps.Processor,
		tickets:   deps.Tickets,
		publisher: publisher,
		notifier:  deps.Notifier,
		topics:    Topics{PaymentCompleted: topics.PaymentCompleted, PaymentFailed: topics.PaymentFailed},
		currency:  cfg.Currency,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// Start opens a checkout for quantity tickets of a listing.
func (s *Service) Start(ctx context.Context, session models.Session, listingID string, quantity int) (*View, error) {
	if !session.IsBuyer() {
		return nil, ErrBuyerOnly
	}
	listing, err := s.listings.GetByID(ctx, listingID)
	if errors.Is(err, listing_db.ErrNotFound) || errors.Is(err, ErrListingNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, listingID)
	}
	if err != nil {
		s.logger.Error("CHECKOUT", fmt.Sprintf("Failed to load listing %s: %v", listingID, err))
		return nil, fmt.Errorf("%w: %v", ErrListingsDown, err)
	}

	w, err := NewWizard(uuid.New().String(), listing.ID, listing.Title, session.UserID, listing.Revenue(), s.currency, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, w); err != nil {
		s.logger.Error("CHECKOUT", fmt.Sprintf("Failed to save checkout: %v", err))
		return nil, err
	}
	s.logger.LogCheckout("START", w.ID, fmt.Sprintf("%d x %s for %s", quantity, listing.ID, session.UserID))
	return NewView(w), nil
}

func (s *Service) Get(ctx context.Context, session models.Session, id string) (*View, error) {
	w, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	return NewView(w), nil
}

func (s *Service) SetQuantity(ctx context.Context, session models.Session, id string, quantity int) (*View, error) {
	return s.mutate(ctx, session, id, "QUANTITY", func(w *Wizard) error { return w.SetQuantity(quantity) })
}

func (s *Service) SelectMethod(ctx context.Context, session models.Session, id string, m Method) (*View, error) {
	return s.mutate(ctx, session, id, "METHOD", func(w *Wizard) error { return w.SelectMethod(m) })
}

func (s *Service) UpdateDetails(ctx context.Context, session models.Session, id string, d Details) (*View, error) {
	return s.mutate(ctx, session, id, "DETAILS", func(w *Wizard) error { return w.UpdateDetails(d) })
}

func (s *Service) Submit(ctx context.Context, session models.Session, id string) (*View, error) {
	return s.mutate(ctx, session, id, "SUBMIT", func(w *Wizard) error { return w.Submit(ctx, s.processor) })
}

func (s *Service) Verify(ctx context.Context, session models.Session, id, code string) (*View, error) {
	return s.mutate(ctx, session, id, "VERIFY", func(w *Wizard) error { return w.Verify(ctx, code, s.processor) })
}

func (s *Service) Back(ctx context.Context, session models.Session, id string) (*View, error) {
	return s.mutate(ctx, session, id, "BACK", func(w *Wizard) error { return w.Back() })
}

func (s *Service) Retry(ctx context.Context, session models.Session, id string) (*View, error) {
	return s.mutate(ctx, session, id, "RETRY", func(w *Wizard) error { return w.Retry() })
}

func (s *Service) Cancel(ctx context.Context, session models.Session, id string) (*View, error) {
	return s.mutate(ctx, session, id, "CANCEL", func(w *Wizard) error { return w.Cancel() })
}

func (s *Service) load(ctx context.Context, session models.Session, id string) (*Wizard, error) {
	if !session.IsBuyer() {
		return nil, ErrBuyerOnly
	}
	w, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.BuyerID != session.UserID {
		s.logger.LogSecurity("CHECKOUT_ACCESS", fmt.Sprintf("user %s requested checkout %s", session.UserID, id))
		return nil, ErrSessionNotFound
	}
	return w, nil
}

// mutate applies op under the session lock and persists the result. A failed
// op that changed state (a decline) is still persisted; the op error is
// returned with the view.
func (s *Service) mutate(ctx context.Context, session models.Session, id, action string, op func(w *Wizard) error) (*View, error) {
	if !session.IsBuyer() {
		return nil, ErrBuyerOnly
	}
	unlock, err := s.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if w.Terminal() {
		return NewView(w), w.transitionError(action)
	}

	before := w.State
	opErr := op(w)

	switch {
	case w.State == StateCompleted && before != StateCompleted:
		s.completed(ctx, w)
	case w.State == StateFailed && before != StateFailed:
		s.failed(ctx, w)
	}

	if w.State == StateCancelled {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Error("CHECKOUT", fmt.Sprintf("Failed to discard cancelled checkout %s: %v", id, err))
		}
		s.logger.LogCheckout("CANCEL", id, "discarded")
		return NewView(w), opErr
	}

	if err := s.store.Save(ctx, w); err != nil {
		s.logger.Error("CHECKOUT", fmt.Sprintf("Failed to save checkout %s: %v", id, err))
		if opErr == nil {
			opErr = err
		}
	}
	if opErr == nil {
		s.logger.LogCheckout(action, id, string(w.State))
	}
	return NewView(w), opErr
}

func (s *Service) paymentEvent(w *Wizard, typ models.PaymentEventType) models.PaymentEvent {
	return models.PaymentEvent{
		Type:          typ,
		SessionID:     w.ID,
		ListingID:     w.ListingID,
		BuyerID:       w.BuyerID,
		Method:        string(w.Method),
		Quantity:      w.Quantity,
		GrandTotal:    w.GrandTotal(),
		Currency:      w.Currency,
		TransactionID: w.TransactionID,
		TicketIDs:     w.TicketIDs,
		Reason:        w.FailureReason,
		Timestamp:     s.now().UTC(),
	}
}

// completed issues tickets and announces the sale. The charge has already
// gone through, so failures here are logged rather than undoing it.
func (s *Service) completed(ctx context.Context, w *Wizard) {
	s.logger.LogCheckout("COMPLETED", w.ID, fmt.Sprintf("%s %s %s", w.TransactionID, w.GrandTotal().StringFixed(2), w.Currency))

	if s.tickets != nil {
		issued, err := s.tickets.Issue(ctx, models.CompletedOrder{
			OrderID:       w.ID,
			ListingID:     w.ListingID,
			ListingTitle:  w.ListingTitle,
			BuyerID:       w.BuyerID,
			TransactionID: w.TransactionID,
			UnitPrice:     w.UnitPrice,
			Quantity:      w.Quantity,
		})
		if err != nil {
			s.logger.Error("CHECKOUT", fmt.Sprintf("Tickets not issued for paid checkout %s (%s): %v", w.ID, w.TransactionID, err))
		}
		for _, t := range issued {
			w.TicketIDs = append(w.TicketIDs, t.TicketID)
		}
	}

	evt := s.paymentEvent(w, models.PaymentCompleted)
	if err := s.publisher.Publish(ctx, s.topics.PaymentCompleted, w.ListingID, evt); err != nil {
		s.logger.Warn("CHECKOUT", fmt.Sprintf("payment.completed not published for %s: %v", w.ID, err))
	}
	if s.notifier != nil {
		s.notifier.EmitPayment(evt)
	}
}

func (s *Service) failed(ctx context.Context, w *Wizard) {
	s.logger.LogCheckout("FAILED", w.ID, w.FailureReason)
	evt := s.paymentEvent(w, models.PaymentFailed)
	if err := s.publisher.Publish(ctx, s.topics.PaymentFailed, w.ListingID, evt); err != nil {
		s.logger.Warn("CHECKOUT", fmt.Sprintf("payment.failed not published for %s: %v", w.ID, err))
	}
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"

	"go.uber.org/zap"
)

// DedupTTL is how long event ids are held in the fast-path cache. It must
// cover the provider's redelivery window; the durable processed_events
// record backs it across restarts.
const DedupTTL = 72 * time.Hour

// EventCache is the optional fast path in front of the durable dedup
// record. A nil cache just means every delivery hits the database.
type EventCache interface {
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ForgetEvent(ctx context.Context, eventID string) error
	CacheCheckoutSession(ctx context.Context, orderID, sessionID string, ttl time.Duration) error
}

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
}

// Config is the provider-facing configuration of the payment service.
type Config struct {
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// Service bridges the payment provider into the order lifecycle: it opens
// checkout sessions for pending orders and reconciles the provider's
// asynchronous webhook events into order transitions, exactly once per
// event id.
type Service struct {
	cfg       Config
	provider  CheckoutProvider
	orders    service.OrderRepo
	products  service.ProductRepo
	events    service.EventRepo
	cache     EventCache
	lifecycle *service.OrderService
	notifier  service.Notifier
	logger    *zap.Logger
}

// NewService creates a new payment service. cache may be nil.
func NewService(
	cfg Config,
	provider CheckoutProvider,
	orders service.OrderRepo,
	products service.ProductRepo,
	events service.EventRepo,
	cache EventCache,
	lifecycle *service.OrderService,
	notifier service.Notifier,
) *Service {
	return &Service{
		cfg:       cfg,
		provider:  provider,
		orders:    orders,
		products:  products,
		events:    events,
		cache:     cache,
		lifecycle: lifecycle,
		notifier:  notifier,
		logger:    util.GetLogger(),
	}
}

// CreateCheckout opens a provider checkout session for a pending order
// owned by userID and returns the redirect target.
func (s *Service) CreateCheckout(ctx context.Context, orderID, userID string) (*CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreateCheckout")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", orderID, service.ErrForbidden)
	}
	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, service.ErrInvalidTransition)
	}

	items, err := s.orders.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	lines := make([]CheckoutLine, 0, len(items))
	for _, item := range items {
		product, err := s.products.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, CheckoutLine{
			Name:           product.Name,
			Description:    product.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		OrderID:    orderID,
		UserID:     userID,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Lines:      lines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.orders.SetCheckoutSession(ctx, orderID, sess.ID); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.CacheCheckoutSession(ctx, orderID, sess.ID, DedupTTL); err != nil {
			s.logger.Warn("Failed to cache checkout session", zap.Error(err))
		}
	}

	util.CheckoutSessionsTotal.Inc()
	s.logger.Info("Checkout session created",
		zap.String("order_id", orderID),
		zap.String("session_id", sess.ID))
	return sess, nil
}

// HandleWebhook authenticates a raw webhook delivery and reconciles it.
// payload must be the exact bytes received on the wire.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := VerifyAndParse(payload, signatureHeader, s.cfg.WebhookSecret)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			util.WebhookSignatureFailures.Inc()
		}
		return err
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent applies a verified provider event at most once. A transient
// failure leaves the event unrecorded so the provider's redelivery retries
// it; replays of recorded events return success without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleEvent")
	defer span.End()

	util.WebhookEventsTotal.WithLabelValues(event.Type).Inc()

	if s.cache != nil {
		first, err := s.cache.MarkEventSeen(ctx, event.ID, DedupTTL)
		if err != nil {
			s.logger.Warn("Dedup cache unavailable, falling back to database",
				zap.Error(err))
		} else if !first {
			util.WebhookDuplicatesTotal.Inc()
			s.logger.Info("Duplicate webhook event skipped",
				zap.String("event_id", event.ID))
			return nil
		}
	}

	processed, err := s.events.IsEventProcessed(ctx, event.ID)
	if err != nil {
		s.forget(ctx, event.ID)
		return fmt.Errorf("failed to check event dedup record: %w", err)
	}
	if processed {
		util.WebhookDuplicatesTotal.Inc()
		s.logger.Info("Duplicate webhook event skipped",
			zap.String("event_id", event.ID))
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		s.forget(ctx, event.ID)
		return err
	}

	if err := s.events.MarkEventProcessed(ctx, event.ID, event.Type); err != nil {
		// The transition is idempotent, so letting the provider redeliver
		// is safe; refusing to acknowledge is the correct failure mode.
		s.forget(ctx, event.ID)
		return fmt.Errorf("failed to record processed event: %w", err)
	}

	return nil
}

func (s *Service) dispatch(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventCheckoutCompleted:
		orderID := event.OrderID()
		if orderID == "" {
			s.logger.Error("Checkout event without order id",
				zap.String("event_id", event.ID))
			return nil
		}

		_, err := s.lifecycle.MarkPaid(ctx, orderID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrNotFound):
			// Terminal or unknown order: redelivering won't change the
			// outcome, acknowledge the event.
			s.logger.Warn("Checkout event not applicable",
				zap.String("event_id", event.ID),
				zap.String("order_id", orderID),
				zap.Error(err))
			return nil
		default:
			return err
		}

	case EventPaymentFailed:
		// No state change: the order stays PENDING and can be retried or
		// cancelled by the user.
		if userID := event.UserID(); userID != "" {
			s.notifier.Notify(models.Notification{
				Type:    models.NotificationPaymentFailed,
				UserID:  userID,
				Title:   "Payment failed",
				Message: "Your payment was declined, the order is still awaiting payment",
				Data:    map[string]any{"order_id": event.OrderID()},
			})
		}
		return nil

	default:
		// Unknown provider event types are accepted and ignored.
		s.logger.Debug("Ignoring webhook event type",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID))
		return nil
	}
}

func (s *Service) forget(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ForgetEvent(ctx, eventID); err != nil {
		s.logger.Warn("Failed to clear dedup cache entry",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}

package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	"github.com/FACorreiaa/go-wanderplan/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

const (
	metadataUserID   = "userId"
	metadataQuantity = "quantity"

	eventCheckoutCompleted = "checkout.session.completed"
)

// ErrInvalidSignature is returned when a webhook payload cannot be verified.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CreditGranter adds purchased credits to a user.
type CreditGranter interface {
	AddCredits(ctx context.Context, userID string, amount int) error
}

// SessionCreator opens a hosted checkout session.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeSessions struct{}

func (stripeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

type BillingService interface {
	CreateCheckout(ctx context.Context, userID string, quantity int) (*models.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type BillingServiceImpl struct {
	logger   *zap.Logger
	cfg      config.StripeConfig
	sessions SessionCreator
	credits  CreditGranter
	events   EventLedger
}

var _ BillingService = (*BillingServiceImpl)(nil)

func NewBillingService(cfg config.StripeConfig, credits CreditGranter, events EventLedger, logger *zap.Logger) *BillingServiceImpl {
	stripe.Key = cfg.SecretKey
	return newBillingService(cfg, stripeSessions{}, credits, events, logger)
}

func newBillingService(cfg config.StripeConfig, sessions SessionCreator, credits CreditGranter, events EventLedger, logger *zap.Logger) *BillingServiceImpl {
	if cfg.CreditsPerUnit <= 0 {
		cfg.CreditsPerUnit = 1
	}
	return &BillingServiceImpl{
		logger:   logger,
		cfg:      cfg,
		sessions: sessions,
		credits:  credits,
		events:   events,
	}
}

func (s *BillingServiceImpl) CreateCheckout(ctx context.Context, userID string, quantity int) (*models.CheckoutSession, error) {
	_, span := otel.Tracer("BillingService").Start(ctx, "CreateCheckout", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if s.cfg.SecretKey == "" || s.cfg.PriceID == "" {
		return nil, fmt.Errorf("stripe is not configured")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrValidation)
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.PriceID),
				Quantity: stripe.Int64(int64(quantity)),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID),
		Metadata: map[string]string{
			metadataUserID:   userID,
			metadataQuantity: strconv.Itoa(quantity),
		},
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout session failed")
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &models.CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *BillingServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ctx, span := otel.Tracer("BillingService").Start(ctx, "HandleWebhook")
	defer span.End()
	l := s.logger.With(zap.String("method", "HandleWebhook"))

	if s.cfg.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		l.Warn("Rejected webhook", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	span.SetAttributes(attribute.String("event.type", string(event.Type)), attribute.String("event.id", event.ID))

	if string(event.Type) != eventCheckoutCompleted {
		l.Debug("Ignoring webhook event", zap.String("type", string(event.Type)))
		return nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("%w: cannot parse checkout session", models.ErrBadRequest)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		l.Info("Checkout completed without payment", zap.String("sessionId", sess.ID))
		return nil
	}

	userID := sess.Metadata[metadataUserID]
	if userID == "" {
		userID = sess.ClientReferenceID
	}
	quantity, err := strconv.Atoi(sess.Metadata[metadataQuantity])
	if userID == "" || err != nil || quantity < 1 {
		l.Error("Checkout session missing purchase metadata", zap.String("sessionId", sess.ID))
		return fmt.Errorf("%w: checkout session missing purchase metadata", models.ErrBadRequest)
	}

	claimed, err := s.events.Claim(ctx, event.ID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !claimed {
		l.Info("Duplicate webhook delivery ignored", zap.String("eventId", event.ID))
		return nil
	}

	amount := quantity * s.cfg.CreditsPerUnit
	if err := s.credits.AddCredits(ctx, userID, amount); err != nil {
		span.RecordError(err)
		// Let Stripe's retry claim the event again.
		if relErr := s.events.Release(context.WithoutCancel(ctx), event.ID); relErr != nil {
			l.Error("Failed to release webhook event", zap.String("eventId", event.ID), zap.Error(relErr))
		}
		return fmt.Errorf("failed to grant credits: %w", err)
	}
	metrics.Add(ctx, func(m *metrics.AppMetrics) metric.Int64Counter { return m.CreditsPurchasedTotal }, int64(amount))

	l.Info("Credits purchased",
		zap.String("userId", userID),
		zap.Int("credits", amount),
		zap.String("sessionId", sess.ID))
	return nil
}

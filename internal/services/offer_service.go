package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/property-marketplace/backend/internal/apperrors"
	"github.com/property-marketplace/backend/internal/config"
	"github.com/property-marketplace/backend/internal/events"
	"github.com/property-marketplace/backend/internal/models"
	"github.com/property-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

// OfferStore is the persistence contract of the lifecycle manager. Implemented
// by repositories.OfferRepo; small enough to fake in tests.
type OfferStore interface {
	Create(ctx context.Context, o *models.Offer, currency string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	GetByIDWithProperty(ctx context.Context, id uuid.UUID) (*models.OfferWithProperty, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next string) error
	UpdatePayment(ctx context.Context, offerID uuid.UUID, delta repositories.PaymentDelta) (bool, error)
	GetPayment(ctx context.Context, offerID uuid.UUID) (*models.OfferPayment, error)
	GetByGatewayReference(ctx context.Context, ref string) (*models.Offer, error)
	FindStalledProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.OfferPayment, error)
	AddDocument(ctx context.Context, d *models.OfferDocument) error
	ListDocuments(ctx context.Context, offerID uuid.UUID) ([]models.OfferDocument, error)
	List(ctx context.Context, f repositories.OfferFilter) ([]models.OfferWithProperty, error)
}

type PropertyGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

// OfferService is the sole entry point for status-changing actions on offers.
type OfferService struct {
	offers     OfferStore
	properties PropertyGetter
	audit      AuditLogger
	gateway    Gateway
	publisher  events.Publisher
	cfg        *config.Config
	log        *zap.Logger
}

func NewOfferService(
	offers OfferStore,
	properties PropertyGetter,
	audit AuditLogger,
	gateway Gateway,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *OfferService {
	return &OfferService{
		offers:     offers,
		properties: properties,
		audit:      audit,
		gateway:    gateway,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
	}
}

// transition validates and performs a status transition with audit logging.
// The store-level CAS makes it safe against concurrent writers; a lost race
// surfaces as apperrors.ErrConflict from UpdateStatus.
func (s *OfferService) transition(ctx context.Context, offer *models.Offer, next string, actorID *uuid.UUID, actorType string) error {
	if !models.IsValidTransition(offer.Status, next) {
		return fmt.Errorf("offer status %s -> %s: %w", offer.Status, next, apperrors.ErrInvalidTransition)
	}

	oldStatus := offer.Status
	if err := s.offers.UpdateStatus(ctx, offer.ID, oldStatus, next); err != nil {
		return err
	}
	offer.Status = next

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      fmt.Sprintf("offer_status_%s_to_%s", oldStatus, next),
		EntityType:  "offer",
		EntityID:    &offer.ID,
		Meta:        map[string]any{"old_status": oldStatus, "new_status": next},
	})

	_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
		Type: events.EventOfferStatusChanged,
		Payload: map[string]any{
			"offer_id":   offer.ID.String(),
			"buyer_id":   offer.BuyerID.String(),
			"old_status": oldStatus,
			"new_status": next,
		},
	})

	return nil
}

type DocumentInput struct {
	Name string
	URL  string
}

// Submit creates a pending offer on a property. The pending-uniqueness check
// and the insert are one atomic store operation; a duplicate pending offer for
// the same (property, buyer) pair propagates as apperrors.ErrConflict.
func (s *OfferService) Submit(ctx context.Context, buyerID, propertyID uuid.UUID, amount, terms string, message *string, documents []DocumentInput) (*models.Offer, error) {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("offer amount must be a positive number")
	}
	if strings.TrimSpace(terms) == "" {
		return nil, fmt.Errorf("offer terms are required")
	}

	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property.Status != models.PropertyStatusActive {
		return nil, fmt.Errorf("property is not accepting offers (status %s)", property.Status)
	}
	if property.AgentID == buyerID {
		return nil, fmt.Errorf("cannot submit an offer on your own listing")
	}

	offer := &models.Offer{
		PropertyID: propertyID,
		BuyerID:    buyerID,
		Status:     models.OfferStatusPending,
		Amount:     amount,
		Terms:      terms,
		Message:    message,
		ExpiresAt:  time.Now().UTC().Add(s.cfg.OfferExpiry),
	}

	if err := s.offers.Create(ctx, offer, property.Currency); err != nil {
		return nil, err
	}

	for _, doc := range documents {
		if err := s.offers.AddDocument(ctx, &models.OfferDocument{
			OfferID: offer.ID,
			Name:    doc.Name,
			URL:     doc.URL,
		}); err != nil {
			s.log.Warn("failed to attach offer document",
				zap.String("offer_id", offer.ID.String()),
				zap.String("name", doc.Name),
				zap.Error(err),
			)
		}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &buyerID,
		ActorType:   "user",
		Action:      "offer_created",
		EntityType:  "offer",
		EntityID:    &offer.ID,
		Meta:        map[string]any{"property_id": propertyID.String(), "amount": amount},
	})

	return offer, nil
}

// Agent decisions accepted by Respond.
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// Respond applies the agent's accept/reject decision. On accept the capture is
// initiated with the gateway; a gateway failure does not roll back acceptance.
// The agent's decision is authoritative and payment failure is surfaced
// separately for manual retry, so the returned error can be non-nil while the
// offer is already accepted.
func (s *OfferService) Respond(ctx context.Context, offerID, agentID uuid.UUID, decision string) (*models.Offer, error) {
	withProp, err := s.offers.GetByIDWithProperty(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if withProp.PropertyAgentID == nil || *withProp.PropertyAgentID != agentID {
		return nil, fmt.Errorf("only the listing agent can respond to this offer: %w", apperrors.ErrUnauthorized)
	}

	offer := &withProp.Offer
	if offer.Status != models.OfferStatusPending {
		return nil, fmt.Errorf("offer is %s, not pending: %w", offer.Status, apperrors.ErrInvalidTransition)
	}

	switch decision {
	case DecisionReject:
		if err := s.transition(ctx, offer, models.OfferStatusRejected, &agentID, "user"); err != nil {
			return nil, err
		}
		return offer, nil
	case DecisionAccept:
		if err := s.transition(ctx, offer, models.OfferStatusAccepted, &agentID, "user"); err != nil {
			return nil, err
		}
		return offer, s.initiateCapture(ctx, offer)
	default:
		return nil, fmt.Errorf("unknown decision %q, must be accept or reject", decision)
	}
}

// initiateCapture runs the gateway call for an already-accepted offer.
func (s *OfferService) initiateCapture(ctx context.Context, offer *models.Offer) error {
	payment, err := s.offers.GetPayment(ctx, offer.ID)
	if err != nil {
		return err
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	ref, err := s.gateway.InitiateCapture(gctx, offer.ID, payment.Amount, payment.Currency)
	switch {
	case err == nil:
		status := models.PaymentStatusProcessing
		if _, perr := s.offers.UpdatePayment(ctx, offer.ID, repositories.PaymentDelta{
			GatewayReference: &ref,
			Status:           &status,
		}); perr != nil {
			return perr
		}
		return nil

	case errors.Is(err, apperrors.ErrGatewayRejected):
		status := models.PaymentStatusFailed
		if _, perr := s.offers.UpdatePayment(ctx, offer.ID, repositories.PaymentDelta{Status: &status}); perr != nil {
			s.log.Error("failed to record rejected capture",
				zap.String("offer_id", offer.ID.String()), zap.Error(perr))
		}
		return err

	default:
		// Unreachable gateway or timeout: the capture may still be in flight,
		// leave the payment in processing for the callback or the
		// reconciliation job to resolve.
		status := models.PaymentStatusProcessing
		if _, perr := s.offers.UpdatePayment(ctx, offer.ID, repositories.PaymentDelta{Status: &status}); perr != nil {
			s.log.Error("failed to record in-flight capture",
				zap.String("offer_id", offer.ID.String()), zap.Error(perr))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("capture timed out: %w", apperrors.ErrGatewayUnavailable)
		}
		return err
	}
}

// Withdraw retracts a pending offer. Only the buyer who submitted it may
// withdraw, and only while it is still pending.
func (s *OfferService) Withdraw(ctx context.Context, offerID, buyerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != buyerID {
		return nil, fmt.Errorf("offer belongs to another buyer: %w", apperrors.ErrUnauthorized)
	}
	if offer.Status != models.OfferStatusPending {
		return nil, fmt.Errorf("offer is %s, not pending: %w", offer.Status, apperrors.ErrInvalidTransition)
	}
	if err := s.transition(ctx, offer, models.OfferStatusWithdrawn, &buyerID, "user"); err != nil {
		return nil, err
	}
	return offer, nil
}

// HandlePaymentCallback reconciles an asynchronous capture update from the
// gateway. Delivery is at-least-once: a redelivered terminal status is a
// no-op, not an error. A completed capture finishes the offer; a failed one
// rejects it.
//
// Correlation is by gateway reference, falling back to offerID when the
// reference was never stored (the initiating call timed out before the
// gateway answered); the fallback backfills the reference so later
// deliveries and the reconciler can find the row.
func (s *OfferService) HandlePaymentCallback(ctx context.Context, gatewayRef string, offerID uuid.UUID, paymentStatus string) error {
	switch paymentStatus {
	case models.PaymentStatusProcessing, models.PaymentStatusCompleted, models.PaymentStatusFailed:
	default:
		return fmt.Errorf("unknown payment status %q", paymentStatus)
	}

	offer, err := s.offers.GetByGatewayReference(ctx, gatewayRef)
	if errors.Is(err, apperrors.ErrNotFound) && offerID != uuid.Nil {
		offer, err = s.offers.GetByID(ctx, offerID)
	}
	if err != nil {
		return err
	}

	delta := repositories.PaymentDelta{Status: &paymentStatus}
	if gatewayRef != "" {
		delta.GatewayReference = &gatewayRef
	}
	if paymentStatus == models.PaymentStatusCompleted {
		now := time.Now().UTC()
		delta.CompletedAt = &now
	}

	applied, err := s.offers.UpdatePayment(ctx, offer.ID, delta)
	if err != nil {
		return err
	}
	if !applied {
		// Same payment status as stored. Usually a redelivery, but it can
		// also mean a crash between recording the payment outcome and
		// transitioning the offer; finish that transition here.
		if offer.Status == models.OfferStatusAccepted {
			switch paymentStatus {
			case models.PaymentStatusCompleted:
				return s.transition(ctx, offer, models.OfferStatusCompleted, nil, "gateway")
			case models.PaymentStatusFailed:
				return s.transition(ctx, offer, models.OfferStatusRejected, nil, "gateway")
			}
		}
		s.log.Debug("duplicate payment callback ignored",
			zap.String("gateway_reference", gatewayRef),
			zap.String("status", paymentStatus),
		)
		return nil
	}

	_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
		Type: events.EventPaymentUpdated,
		Payload: map[string]any{
			"offer_id": offer.ID.String(),
			"status":   paymentStatus,
		},
	})

	switch paymentStatus {
	case models.PaymentStatusCompleted:
		return s.transition(ctx, offer, models.OfferStatusCompleted, nil, "gateway")
	case models.PaymentStatusFailed:
		return s.transition(ctx, offer, models.OfferStatusRejected, nil, "gateway")
	}
	return nil
}

// ReconcileStalledCaptures polls the gateway for captures stuck in processing
// and feeds terminal outcomes back through the callback path. Captures with no
// stored reference (the initiating call timed out before the gateway answered)
// are re-sent first; the gateway dedupes captures by offer id, so the retry
// returns the reference of whatever the original request created.
func (s *OfferService) ReconcileStalledCaptures(ctx context.Context, limit int) error {
	cutoff := time.Now().UTC().Add(-s.cfg.ReconcileAfter)
	payments, err := s.offers.FindStalledProcessing(ctx, cutoff, limit)
	if err != nil {
		return err
	}

	for _, p := range payments {
		if p.GatewayReference == nil {
			ref, err := s.gateway.InitiateCapture(ctx, p.OfferID, p.Amount, p.Currency)
			if err != nil {
				s.log.Warn("failed to recover capture reference",
					zap.String("offer_id", p.OfferID.String()), zap.Error(err))
				continue
			}
			if _, err := s.offers.UpdatePayment(ctx, p.OfferID, repositories.PaymentDelta{GatewayReference: &ref}); err != nil {
				s.log.Error("failed to store recovered capture reference",
					zap.String("offer_id", p.OfferID.String()), zap.Error(err))
				continue
			}
			p.GatewayReference = &ref
		}
		status, err := s.gateway.GetCaptureStatus(ctx, *p.GatewayReference)
		if err != nil {
			s.log.Warn("failed to poll capture status",
				zap.String("offer_id", p.OfferID.String()), zap.Error(err))
			continue
		}
		if !models.IsTerminalPaymentStatus(status) {
			continue
		}
		if err := s.HandlePaymentCallback(ctx, *p.GatewayReference, p.OfferID, status); err != nil {
			s.log.Error("failed to reconcile capture",
				zap.String("offer_id", p.OfferID.String()),
				zap.String("status", status),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *OfferService) Get(ctx context.Context, id uuid.UUID) (*models.OfferWithProperty, error) {
	return s.offers.GetByIDWithProperty(ctx, id)
}

func (s *OfferService) List(ctx context.Context, f repositories.OfferFilter) ([]models.OfferWithProperty, error) {
	return s.offers.List(ctx, f)
}

func (s *OfferService) GetPayment(ctx context.Context, offerID uuid.UUID) (*models.OfferPayment, error) {
	return s.offers.GetPayment(ctx, offerID)
}

// AttachDocument adds a document to an offer the buyer owns while it is still
// open for negotiation.
func (s *OfferService) AttachDocument(ctx context.Context, offerID, buyerID uuid.UUID, doc DocumentInput) (*models.OfferDocument, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != buyerID {
		return nil, fmt.Errorf("offer belongs to another buyer: %w", apperrors.ErrUnauthorized)
	}
	if models.IsTerminalStatus(offer.Status) {
		return nil, fmt.Errorf("offer is %s: %w", offer.Status, apperrors.ErrInvalidTransition)
	}

	d := &models.OfferDocument{OfferID: offerID, Name: doc.Name, URL: doc.URL}
	if err := s.offers.AddDocument(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *OfferService) ListDocuments(ctx context.Context, offerID uuid.UUID) ([]models.OfferDocument, error) {
	return s.offers.ListDocuments(ctx, offerID)
}

// Events returns the audit trail of an offer, newest first.
func (s *OfferService) Events(ctx context.Context, offerID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	if _, err := s.offers.GetByID(ctx, offerID); err != nil {
		return nil, err
	}
	return s.audit.GetByEntity(ctx, "offer", offerID, limit, offset)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	"github.com/utafrali/MarketplaceGo/internal/event"
	"github.com/utafrali/MarketplaceGo/internal/repository"
	apperrors "github.com/utafrali/MarketplaceGo/pkg/errors"
	"github.com/utafrali/MarketplaceGo/pkg/logger"
)

// FulfillmentService tracks per-vendor line item fulfillment and keeps the
// derived order-level status consistent after every change.
type FulfillmentService struct {
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewFulfillmentService creates a new fulfillment service.
func NewFulfillmentService(orders repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *FulfillmentService {
	return &FulfillmentService{
		orders:   orders,
		producer: producer,
		logger:   logger,
	}
}

// UpdateFulfillmentInput holds a vendor's fulfillment mutation. Status may be
// empty when only shipping metadata changes; attaching a tracking number to
// an unshipped item implies the shipped sub-status.
type UpdateFulfillmentInput struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Notes          string `json:"notes"`
}

// UpdateFulfillment applies a fulfillment change to one line item on behalf
// of the owning vendor. Vendors can only reach their own items: an item of
// another vendor, or an order without any of the vendor's items, surfaces as
// an access denial without revealing whether the order exists. The derived
// order status is recomputed over all items afterwards. Returns the caller's
// scoped view of the order.
func (s *FulfillmentService) UpdateFulfillment(ctx context.Context, principal domain.Principal, orderID, itemID string, input UpdateFulfillmentInput) (*domain.Order, error) {
	if !principal.IsVendor() && !principal.IsAdmin() {
		return nil, s.denyAccess(ctx, principal, orderID, "only vendors can update fulfillment")
	}

	if principal.IsVendor() {
		ctx = logger.WithVendorID(ctx, principal.UserID)
	}

	order, err := s.scopedOrder(ctx, principal, orderID)
	if err != nil {
		if principal.IsVendor() && errors.Is(err, apperrors.ErrNotFound) {
			return nil, s.denyAccess(ctx, principal, orderID, "order has no line items for this vendor")
		}
		return nil, err
	}

	var item *domain.LineItem
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		if principal.IsVendor() {
			return nil, s.denyAccess(ctx, principal, orderID, "line item belongs to another vendor")
		}
		return nil, apperrors.NotFound("line item", itemID)
	}

	target := input.Status
	if target == "" && input.TrackingNumber != "" && item.FulfillmentStatus != domain.FulfillmentShipped && !item.IsTerminalFulfillment() {
		// Attaching tracking to an unshipped item marks it shipped.
		target = domain.FulfillmentShipped
	}

	if target != "" {
		if !domain.IsValidFulfillmentStatus(target) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid fulfillment status %q", target))
		}
		if target != item.FulfillmentStatus && !item.CanTransitionTo(target) {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"cannot move line item from %q to %q", item.FulfillmentStatus, target))
		}
	}

	upd := repository.LineItemUpdate{
		FulfillmentStatus: target,
		TrackingNumber:    input.TrackingNumber,
		Carrier:           input.Carrier,
		Notes:             input.Notes,
	}
	if err := s.orders.UpdateLineItem(ctx, orderID, itemID, item.VendorID, upd); err != nil {
		return nil, fmt.Errorf("update line item fulfillment: %w", err)
	}

	if target != "" {
		item.FulfillmentStatus = target
	}
	if input.TrackingNumber != "" {
		item.TrackingNumber = input.TrackingNumber
	}
	if input.Carrier != "" {
		item.Carrier = input.Carrier
	}

	if err := s.producer.PublishFulfillmentUpdated(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish fulfillment.updated event",
			slog.String("order_id", orderID),
			slog.String("line_item_id", itemID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	if err := s.recomputeOrderStatus(ctx, orderID); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "fulfillment updated",
		slog.String("order_id", orderID),
		slog.String("line_item_id", itemID),
		slog.String("vendor_id", item.VendorID),
		slog.String("fulfillment_status", item.FulfillmentStatus),
	)

	return s.scopedOrder(ctx, principal, orderID)
}

// CancelOrder cancels a whole order: every non-terminal line item moves to
// cancelled and the order gets the terminal cancelled status. Admin only.
func (s *FulfillmentService) CancelOrder(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error) {
	return s.terminate(ctx, principal, orderID, domain.OrderStatusCancelled)
}

// RefundOrder marks an order refunded, cancelling any line items still open.
// Admin only.
func (s *FulfillmentService) RefundOrder(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error) {
	return s.terminate(ctx, principal, orderID, domain.OrderStatusRefunded)
}

func (s *FulfillmentService) terminate(ctx context.Context, principal domain.Principal, orderID, status string) (*domain.Order, error) {
	if !principal.IsAdmin() {
		return nil, s.denyAccess(ctx, principal, orderID, "only admins can cancel or refund orders")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for termination: %w", err)
	}

	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusRefunded {
		return nil, apperrors.Conflict(fmt.Sprintf("order is already %s", order.Status))
	}

	if err := s.orders.CancelOpenLineItems(ctx, orderID); err != nil {
		return nil, fmt.Errorf("cancel open line items: %w", err)
	}

	oldStatus := order.Status
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("terminate order: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, orderID, oldStatus, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order terminated",
		slog.String("order_id", orderID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", status),
	)

	return s.orders.GetByID(ctx, orderID)
}

// recomputeOrderStatus derives the order-level status from all line items
// (not just the caller's view) and persists it if it changed.
func (s *FulfillmentService) recomputeOrderStatus(ctx context.Context, orderID string) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("reload order for status aggregation: %w", err)
	}

	// Admin-set terminal statuses are not overridden by item changes.
	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusRefunded {
		return nil
	}

	derived := domain.AggregateStatus(order.Items)
	if derived == order.Status {
		return nil
	}

	if err := s.orders.UpdateStatus(ctx, orderID, derived); err != nil {
		return fmt.Errorf("persist aggregated order status: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, orderID, order.Status, derived); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// scopedOrder returns the order as the principal is allowed to see it.
func (s *FulfillmentService) scopedOrder(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error) {
	if principal.IsVendor() {
		order, err := s.orders.GetVendorView(ctx, orderID, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("get vendor order view: %w", err)
		}
		return order, nil
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// denyAccess logs and returns an access-denied error. Denials are always
// logged and never downgraded.
func (s *FulfillmentService) denyAccess(ctx context.Context, principal domain.Principal, orderID, msg string) error {
	s.logger.WarnContext(ctx, "access denied",
		slog.String("user_id", principal.UserID),
		slog.String("role", principal.Role),
		slog.String("order_id", orderID),
		slog.String("reason", msg),
	)
	return apperrors.AccessDenied(msg)
}

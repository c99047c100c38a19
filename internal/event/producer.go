package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/MarketplaceGo/internal/domain"
	pkgkafka "github.com/utafrali/MarketplaceGo/pkg/kafka"
)

// Kafka topic constants for marketplace domain events.
const (
	TopicProductSubmitted   = "marketplace.product.submitted"
	TopicProductReviewed    = "marketplace.product.reviewed"
	TopicOrderCreated       = "marketplace.order.created"
	TopicOrderStatusChanged = "marketplace.order.status_changed"
	TopicFulfillmentUpdated = "marketplace.fulfillment.updated"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeOrder   = "order"
)

// Source identifier for events originating from this service.
const SourceMarketplace = "marketplace-core"

// ProductSubmittedData is the payload for a product.submitted event.
type ProductSubmittedData struct {
	ProductID string `json:"product_id"`
	VendorID  string `json:"vendor_id"`
	Name      string `json:"name"`
}

// ProductReviewedData is the payload for a product.reviewed event.
type ProductReviewedData struct {
	ProductID string `json:"product_id"`
	VendorID  string `json:"vendor_id"`
	Decision  string `json:"decision"`
	Reviewer  string `json:"reviewer"`
	Notes     string `json:"notes,omitempty"`
}

// OrderCreatedData is the payload for an order.created event (full snapshot).
type OrderCreatedData struct {
	ID             string         `json:"id"`
	CustomerID     string         `json:"customer_id"`
	Status         string         `json:"status"`
	Items          []LineItemData `json:"items"`
	SubtotalAmount int64          `json:"subtotal_amount"`
	ShippingAmount int64          `json:"shipping_amount"`
	TaxAmount      int64          `json:"tax_amount"`
	TotalAmount    int64          `json:"total_amount"`
	Currency       string         `json:"currency"`
}

// LineItemData is the event payload for an order line item, including the
// vendor and commission snapshots taken at placement.
type LineItemData struct {
	ID                string `json:"id"`
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id"`
	VendorID          string `json:"vendor_id"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unit_price"`
	CommissionRateBps int    `json:"commission_rate_bps"`
	Quantity          int    `json:"quantity"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// FulfillmentUpdatedData is the payload for a fulfillment.updated event.
type FulfillmentUpdatedData struct {
	OrderID           string `json:"order_id"`
	LineItemID        string `json:"line_item_id"`
	VendorID          string `json:"vendor_id"`
	FulfillmentStatus string `json:"fulfillment_status"`
	TrackingNumber    string `json:"tracking_number,omitempty"`
	Carrier           string `json:"carrier,omitempty"`
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishProductSubmitted publishes a product.submitted event.
func (p *Producer) PublishProductSubmitted(ctx context.Context, product *domain.Product) error {
	data := ProductSubmittedData{
		ProductID: product.ID,
		VendorID:  product.VendorID,
		Name:      product.Name,
	}

	event, err := pkgkafka.NewEvent(TopicProductSubmitted, product.ID, AggregateTypeProduct, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create product.submitted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductSubmitted, event); err != nil {
		return fmt.Errorf("publish product.submitted event: %w", err)
	}

	return nil
}

// PublishProductReviewed publishes a product.reviewed event with the decision.
func (p *Producer) PublishProductReviewed(ctx context.Context, product *domain.Product) error {
	data := ProductReviewedData{
		ProductID: product.ID,
		VendorID:  product.VendorID,
		Decision:  product.Status,
		Reviewer:  product.ReviewedBy,
		Notes:     product.ReviewNotes,
	}

	event, err := pkgkafka.NewEvent(TopicProductReviewed, product.ID, AggregateTypeProduct, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create product.reviewed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductReviewed, event); err != nil {
		return fmt.Errorf("publish product.reviewed event: %w", err)
	}

	return nil
}

// PublishOrderCreated publishes an order.created event with the full snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]LineItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = LineItemData{
			ID:                item.ID,
			ProductID:         item.ProductID,
			VariantID:         item.VariantID,
			VendorID:          item.VendorID,
			Name:              item.Name,
			UnitPrice:         item.UnitPrice,
			CommissionRateBps: item.CommissionRateBps,
			Quantity:          item.Quantity,
		}
	}

	data := OrderCreatedData{
		ID:             order.ID,
		CustomerID:     order.CustomerID,
		Status:         order.Status,
		Items:          items,
		SubtotalAmount: order.SubtotalAmount,
		ShippingAmount: order.ShippingAmount,
		TaxAmount:      order.TaxAmount,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("customer_id", order.CustomerID),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	data := OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, orderID, AggregateTypeOrder, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	return nil
}

// PublishFulfillmentUpdated publishes a fulfillment.updated event.
func (p *Producer) PublishFulfillmentUpdated(ctx context.Context, item *domain.LineItem) error {
	data := FulfillmentUpdatedData{
		OrderID:           item.OrderID,
		LineItemID:        item.ID,
		VendorID:          item.VendorID,
		FulfillmentStatus: item.FulfillmentStatus,
		TrackingNumber:    item.TrackingNumber,
		Carrier:           item.Carrier,
	}

	event, err := pkgkafka.NewEvent(TopicFulfillmentUpdated, item.OrderID, AggregateTypeOrder, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create fulfillment.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicFulfillmentUpdated, event); err != nil {
		return fmt.Errorf("publish fulfillment.updated event: %w", err)
	}

	return nil
}

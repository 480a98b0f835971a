package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/internal/ledger"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/outbox/payloads"
)

type requestedLine struct {
	itemID   uuid.UUID
	itemType enums.ItemType
	quantity decimal.Decimal
}

type itemRef struct {
	id       uuid.UUID
	itemType enums.ItemType
}

type checkedDetails struct {
	deliveryType  enums.DeliveryType
	address       *string
	contactName   string
	contactPhone  string
	contactEmail  string
	notes         *string
	paymentMethod string
}

type placement struct {
	customerID   uuid.UUID
	customerRole enums.UserRole
	lines        []requestedLine
	details      checkedDetails
}

// Place validates the request, then writes the order. Stock, delivery, ledger
// and the confirmation event follow as separate steps whose failures are
// logged and never undo the order.
func (s *service) Place(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "order must contain at least one item")
	}
	details, err := checkDetails(input.OrderDetails)
	if err != nil {
		return nil, err
	}
	lines, err := checkLines(input.Items)
	if err != nil {
		return nil, err
	}

	record, adjustments, err := s.prepare(ctx, placement{
		customerID:   input.CustomerID,
		customerRole: input.CustomerRole,
		lines:        lines,
		details:      details,
	})
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	s.afterPlace(ctx, record, adjustments, nil)
	return s.placed(ctx, record), nil
}

// PlaceFromCart places an order from the selected cart entries. Once the order
// is written, exactly those entries are removed from the cart.
func (s *service) PlaceFromCart(ctx context.Context, input PlaceFromCartInput) (*OrderDTO, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if len(input.SelectedItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "order must contain at least one item")
	}
	details, err := checkDetails(input.OrderDetails)
	if err != nil {
		return nil, err
	}

	entries, err := s.cart.SelectedItems(ctx, nil, input.CustomerID, input.SelectedItems)
	if err != nil {
		return nil, err
	}
	items := make([]LineItemInput, 0, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		items = append(items, LineItemInput{ItemID: entry.ItemID, ItemType: string(entry.ItemType), Quantity: entry.Quantity})
		ids = append(ids, entry.ID)
	}
	lines, err := checkLines(items)
	if err != nil {
		return nil, err
	}

	record, adjustments, err := s.prepare(ctx, placement{
		customerID:   input.CustomerID,
		customerRole: input.CustomerRole,
		lines:        lines,
		details:      details,
	})
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	s.afterPlace(ctx, record, adjustments, ids)
	return s.placed(ctx, record), nil
}

// prepare resolves every line against the live catalog and builds the order
// row. Nothing is written.
func (s *service) prepare(ctx context.Context, p placement) (*models.Order, []catalog.StockAdjustment, error) {
	snapshots := make(map[itemRef]*catalog.ItemSnapshot, len(p.lines))
	requested := make(map[itemRef]decimal.Decimal, len(p.lines))
	refs := []itemRef{}
	for _, line := range p.lines {
		ref := itemRef{id: line.itemID, itemType: line.itemType}
		if _, ok := snapshots[ref]; !ok {
			snap, err := s.catalog.FindItem(ctx, line.itemType, line.itemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %s not found", line.itemType, line.itemID)
				}
				return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load catalog item")
			}
			snapshots[ref] = snap
			requested[ref] = decimal.Zero
			refs = append(refs, ref)
		}
		requested[ref] = requested[ref].Add(line.quantity)
	}
	for _, ref := range refs {
		snap := snapshots[ref]
		if !snap.CanSupply(requested[ref]) {
			return nil, nil, unavailable(snap, requested[ref])
		}
	}

	subtotal := decimal.Zero
	items := make([]models.OrderLineItem, 0, len(p.lines))
	for _, line := range p.lines {
		snap := snapshots[itemRef{id: line.itemID, itemType: line.itemType}]
		lineTotal := snap.Price.Mul(line.quantity).Round(2)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderLineItem{
			ItemID:    snap.ID,
			ItemType:  snap.Type,
			Title:     snap.Title,
			ImageURL:  snap.ImageURL,
			Unit:      snap.Unit,
			Quantity:  line.quantity,
			UnitPrice: snap.Price,
			LineTotal: lineTotal,
		})
	}
	fee := decimal.Zero
	if p.details.deliveryType == enums.DeliveryTypeDelivery {
		fee = s.deliveryFee
	}

	adjustments := make([]catalog.StockAdjustment, 0, len(refs))
	for _, ref := range refs {
		adjustments = append(adjustments, catalog.StockAdjustment{ItemID: ref.id, ItemType: ref.itemType, Quantity: requested[ref]})
	}
	return &models.Order{
		CustomerID:      p.customerID,
		CustomerRole:    p.customerRole,
		Subtotal:        subtotal,
		DeliveryFee:     fee,
		Total:           subtotal.Add(fee),
		DeliveryType:    p.details.deliveryType,
		DeliveryAddress: p.details.address,
		ContactName:     p.details.contactName,
		ContactPhone:    p.details.contactPhone,
		ContactEmail:    p.details.contactEmail,
		Notes:           p.details.notes,
		PaymentMethod:   p.details.paymentMethod,
		Status:          enums.OrderStatusPending,
		Items:           items,
	}, adjustments, nil
}

// create writes the order and its line items together.
func (s *service) create(ctx context.Context, record *models.Order) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, record)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return nil
}

func (s *service) afterPlace(ctx context.Context, record *models.Order, adjustments []catalog.StockAdjustment, cartItemIDs []uuid.UUID) {
	ctx = s.logg.WithOrderID(ctx, record.ID.String())
	var e effects

	e.run("debit stock", func() error {
		return s.stock.Apply(ctx, nil, adjustments, enums.StockDebit)
	})

	if record.DeliveryType == enums.DeliveryTypeDelivery {
		e.run("create delivery", func() error {
			return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				delivery, err := s.deliveries.CreateForOrder(ctx, tx, record)
				if err != nil {
					return err
				}
				if err := s.repo.WithTx(tx).SetDeliveryID(ctx, record.ID, delivery.ID); err != nil {
					return err
				}
				record.DeliveryID = &delivery.ID
				return nil
			})
		})
	}

	if len(cartItemIDs) > 0 {
		e.run("remove cart entries", func() error {
			return s.cart.RemoveItems(ctx, nil, record.CustomerID, cartItemIDs)
		})
	}

	e.run("record ledger event", func() error {
		_, err := s.ledger.RecordEvent(ctx, nil, ledger.RecordLedgerEventInput{
			OrderID:     record.ID,
			CustomerID:  record.CustomerID,
			ActorUserID: record.CustomerID,
			Type:        enums.LedgerEventOrderPlaced,
			Amount:      record.Total,
			Metadata: map[string]any{
				"delivery_type": string(record.DeliveryType),
				"delivery_fee":  record.DeliveryFee.String(),
				"line_count":    len(record.Items),
			},
		})
		return err
	})

	e.run("queue confirmation", func() error {
		return s.emit(ctx, enums.EventOrderPlaced, record, record.CustomerID, record.CustomerRole, placedPayload(record))
	})

	s.report(ctx, &e, "order placed but a follow-up step failed")
}

// placed re-reads the order so the response carries the delivery link. The
// order is already committed, so a failed read falls back to the written row.
func (s *service) placed(ctx context.Context, record *models.Order) *OrderDTO {
	ctx = s.logg.WithOrderID(ctx, record.ID.String())
	order, err := s.load(ctx, nil, record.ID)
	if err != nil {
		s.logg.Error(ctx, "reload placed order", err)
		order = record
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total":         order.Total.String(),
		"delivery_type": string(order.DeliveryType),
		"line_count":    len(order.Items),
	}), "order placed")
	return FromModel(order)
}

func checkDetails(d OrderDetails) (checkedDetails, error) {
	deliveryType, err := enums.ParseDeliveryType(strings.ToUpper(strings.TrimSpace(d.DeliveryType)))
	if err != nil {
		return checkedDetails{}, pkgerrors.New(pkgerrors.CodeBadRequest, "delivery type must be PICKUP or DELIVERY")
	}
	out := checkedDetails{
		deliveryType:  deliveryType,
		contactName:   strings.TrimSpace(d.ContactName),
		contactPhone:  strings.TrimSpace(d.ContactPhone),
		contactEmail:  strings.TrimSpace(d.ContactEmail),
		notes:         trimmed(d.Notes),
		paymentMethod: strings.TrimSpace(d.PaymentMethod),
	}
	if out.paymentMethod == "" {
		out.paymentMethod = defaultPaymentMethod
	}
	address := trimmed(d.DeliveryAddress)
	if deliveryType == enums.DeliveryTypeDelivery {
		if address == nil {
			return checkedDetails{}, pkgerrors.New(pkgerrors.CodeBadRequest, "delivery address is required for delivery orders")
		}
		out.address = address
	}

	var missing []string
	if out.contactName == "" {
		missing = append(missing, "contactName")
	}
	if out.contactPhone == "" {
		missing = append(missing, "contactPhone")
	}
	if out.contactEmail == "" {
		missing = append(missing, "contactEmail")
	}
	if len(missing) > 0 {
		return checkedDetails{}, pkgerrors.New(pkgerrors.CodeBadRequest, "contact details are required").
			WithDetails(map[string]any{"missing": missing})
	}
	return out, nil
}

func checkLines(items []LineItemInput) ([]requestedLine, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "order must contain at least one item")
	}
	lines := make([]requestedLine, 0, len(items))
	for i, item := range items {
		itemType, err := enums.ParseItemType(strings.ToLower(strings.TrimSpace(item.ItemType)))
		if err != nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "items[%d]: item type must be inventory or listing", i)
		}
		if item.ItemID == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "items[%d]: item id is required", i)
		}
		if !item.Quantity.IsPositive() {
			return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "items[%d]: quantity must be greater than zero", i)
		}
		if itemType == enums.ItemTypeInventory && !item.Quantity.Equal(item.Quantity.Truncate(0)) {
			return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "items[%d]: inventory quantities must be whole units", i)
		}
		lines = append(lines, requestedLine{itemID: item.ItemID, itemType: itemType, quantity: item.Quantity})
	}
	return lines, nil
}

func unavailable(snap *catalog.ItemSnapshot, requested decimal.Decimal) error {
	return pkgerrors.Newf(pkgerrors.CodeBadRequest, "%s is not available in the requested quantity", snap.Title).
		WithDetails(map[string]string{
			"itemId":    snap.ID.String(),
			"itemType":  string(snap.Type),
			"requested": requested.String(),
			"available": snap.Available.String(),
		})
}

func placedPayload(o *models.Order) payloads.OrderPlacedEvent {
	lines := make([]payloads.OrderLine, 0, len(o.Items))
	for _, li := range o.Items {
		lines = append(lines, payloads.OrderLine{
			Title:     li.Title,
			Quantity:  li.Quantity,
			Unit:      li.Unit,
			UnitPrice: li.UnitPrice,
			LineTotal: li.LineTotal,
		})
	}
	return payloads.OrderPlacedEvent{
		OrderID:      o.ID,
		CustomerID:   o.CustomerID,
		ContactName:  o.ContactName,
		ContactEmail: o.ContactEmail,
		DeliveryType: o.DeliveryType,
		DeliveryID:   o.DeliveryID,
		Subtotal:     o.Subtotal,
		DeliveryFee:  o.DeliveryFee,
		Total:        o.Total,
		Lines:        lines,
	}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/auth"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/order"
	"github.com/fekuna/buffet-service/internal/order/dto"
	"github.com/fekuna/buffet-service/internal/sanitize"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minQuantity    = 1
	maxQuantity    = 50
	maxCartLines   = 50
	maxNotesLength = 500
	lookupWorkers  = 8
	publishTimeout = 5 * time.Second
)

var (
	ErrEmptyCart            = apperror.Validation("empty_cart", "the order has no items").WithField("items")
	ErrTooManyLines         = apperror.Validation("too_many_items", "the order has too many items").WithField("items").WithParam("Max", maxCartLines)
	ErrInvalidPaymentMethod = apperror.Validation("invalid_payment_method", "payment method must be cash, card or qr").WithField("payment_method")
	ErrNotesTooLong         = apperror.Validation("notes_too_long", "notes must be at most 500 characters").WithField("notes").WithParam("Max", maxNotesLength)
)

type Options struct {
	CancelWindow time.Duration
}

type orderUseCase struct {
	repo      order.Repository
	catalog   order.Catalog
	codes     order.CodeGenerator
	publisher order.Publisher
	opts      Options
	logger    logger.ZapLogger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewOrderUseCase wires the order lifecycle. publisher may be nil, in which
// case no events are emitted.
func NewOrderUseCase(repo order.Repository, catalog order.Catalog, codes order.CodeGenerator, publisher order.Publisher, opts Options, log logger.ZapLogger) order.UseCase {
	if opts.CancelWindow <= 0 {
		opts.CancelWindow = 30 * time.Minute
	}
	return &orderUseCase{
		repo:      repo,
		catalog:   catalog,
		codes:     codes,
		publisher: publisher,
		opts:      opts,
		logger:    log,
		tracer:    otel.Tracer("github.com/fekuna/buffet-service/internal/order"),
		now:       time.Now,
	}
}

// ValidateCart resolves every line concurrently and reports all problems at
// once. The returned error is only set for store failures.
func (uc *orderUseCase) ValidateCart(ctx context.Context, items []dto.CartItemInput) (*dto.CartValidation, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if len(items) > maxCartLines {
		return nil, ErrTooManyLines
	}

	lines := make([]dto.CartLine, len(items))
	problems := make([]*apperror.ItemError, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupWorkers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			pos := i + 1
			if item.Quantity < minQuantity || item.Quantity > maxQuantity {
				problems[i] = &apperror.ItemError{
					Item: pos, ProductID: item.ProductID, Field: "quantity", Code: "invalid_quantity",
					Message: "quantity must be between 1 and 50",
				}
				return nil
			}
			if item.ProductID <= 0 {
				problems[i] = &apperror.ItemError{
					Item: pos, Field: "product_id", Code: "product_not_found", Message: "product not found",
				}
				return nil
			}

			p, err := uc.catalog.FindByID(gctx, item.ProductID)
			if err != nil {
				return err
			}
			switch {
			case p == nil:
				problems[i] = &apperror.ItemError{
					Item: pos, ProductID: item.ProductID, Field: "product_id", Code: "product_not_found",
					Message: "product not found",
				}
			case !p.Available || p.ArchivedAt != nil:
				problems[i] = &apperror.ItemError{
					Item: pos, ProductID: item.ProductID, Field: "product_id", Code: "product_unavailable",
					Message: p.Name + " is not available",
				}
			default:
				unit := p.UnitPrice()
				lines[i] = dto.CartLine{
					ProductID: p.ID,
					Name:      p.Name,
					ImageURL:  p.ImageURL,
					Quantity:  item.Quantity,
					UnitPrice: unit,
					Subtotal:  unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &dto.CartValidation{Items: []dto.CartLine{}, Total: decimal.Zero}
	for i := range items {
		if problems[i] != nil {
			res.Errors = append(res.Errors, *problems[i])
			continue
		}
		res.Items = append(res.Items, lines[i])
		res.Total = res.Total.Add(lines[i].Subtotal)
	}
	sort.SliceStable(res.Errors, func(a, b int) bool { return res.Errors[a].Item < res.Errors[b].Item })
	res.Valid = len(res.Errors) == 0
	return res, nil
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, actor *auth.Principal, input *dto.CreateOrderInput) (_ *dto.OrderWithQR, err error) {
	ctx, span := uc.tracer.Start(ctx, "order.Create")
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, auth.ErrMissingToken
	}

	method := input.PaymentMethod
	if method == "" {
		method = model.PaymentCash
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	notes := sanitize.Optional(input.Notes)
	if notes != nil && utf8.RuneCountInString(*notes) > maxNotesLength {
		return nil, ErrNotesTooLong
	}

	cart, err := uc.ValidateCart(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	if !cart.Valid {
		return nil, apperror.ValidationItems("the order has invalid items", cart.Errors)
	}

	now := uc.now()
	o := &model.Order{
		BaseModel:     model.BaseModel{CreatedAt: now, UpdatedAt: now},
		UserID:        actor.ID,
		Total:         cart.Total,
		Status:        model.StatusPending,
		PaymentMethod: method,
		Notes:         notes,
	}
	items := make([]model.OrderItem, len(cart.Items))
	for i, line := range cart.Items {
		items[i] = model.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
			Subtotal:  line.Subtotal,
		}
	}

	if err := uc.repo.Create(ctx, o, items); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order.id", o.ID), attribute.String("order.number", o.OrderNumber))
	uc.logger.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int64("user_id", o.UserID),
		zap.String("total", o.Total.StringFixed(2)),
	)

	// The order is committed; everything below is best-effort.
	if full, err := uc.repo.FindByID(ctx, o.ID); err != nil {
		uc.logger.Warn("reload created order", zap.Int64("order_id", o.ID), zap.Error(err))
	} else if full != nil {
		o = full
	}
	uc.publish(ctx, order.NewEvent(order.EventOrderCreated, o, "", actor.ID, now))

	return &dto.OrderWithQR{Order: o, QRCode: uc.qr(o.ID)}, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, actor *auth.Principal, id int64) (*dto.OrderWithQR, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NotFound("order")
	}
	if err := auth.OwnerOrAdmin(actor, o.UserID); err != nil {
		return nil, err
	}
	return &dto.OrderWithQR{Order: o, QRCode: uc.qr(o.ID)}, nil
}

func (uc *orderUseCase) ListMyOrders(ctx context.Context, actor *auth.Principal, filters *dto.OrderFilters) ([]model.Order, int, error) {
	if actor == nil {
		return nil, 0, auth.ErrMissingToken
	}
	if err := checkStatusFilter(filters.Status); err != nil {
		return nil, 0, err
	}
	filters.UserID = &actor.ID
	return uc.repo.FindAll(ctx, filters)
}

func (uc *orderUseCase) MyStats(ctx context.Context, actor *auth.Principal) (*dto.UserOrderStats, error) {
	if actor == nil {
		return nil, auth.ErrMissingToken
	}
	return uc.repo.UserStats(ctx, actor.ID)
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error) {
	if err := checkStatusFilter(filters.Status); err != nil {
		return nil, 0, err
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *orderUseCase) CancelOrder(ctx context.Context, actor *auth.Principal, id int64) (_ *order.Transition, err error) {
	ctx, span := uc.tracer.Start(ctx, "order.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, auth.ErrMissingToken
	}
	now := uc.now()
	return uc.transition(ctx, actor, id, func(o *model.Order) (model.OrderStatus, error) {
		if err := auth.OwnerOrAdmin(actor, o.UserID); err != nil {
			return "", err
		}
		if err := order.CheckCancel(o, actor.IsAdmin(), now, uc.opts.CancelWindow); err != nil {
			return "", err
		}
		return model.StatusCancelled, nil
	})
}

func (uc *orderUseCase) UpdateStatus(ctx context.Context, actor *auth.Principal, id int64, status model.OrderStatus) (_ *order.Transition, err error) {
	ctx, span := uc.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(status)),
	))
	defer func() { endSpan(span, err) }()

	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, order.ErrInvalidStatus
	}
	return uc.transition(ctx, actor, id, func(o *model.Order) (model.OrderStatus, error) {
		return status, order.CheckStatusChange(o.Status, status)
	})
}

func (uc *orderUseCase) transition(ctx context.Context, actor *auth.Principal, id int64, decide order.DecideFunc) (*order.Transition, error) {
	o, prev, err := uc.repo.Transition(ctx, id, decide)
	if err != nil {
		if prev != "" {
			uc.logger.Info("order transition rejected",
				zap.Int64("order_id", id),
				zap.String("from", string(prev)),
				zap.Int64("actor_id", actor.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	uc.logger.Info("order transition",
		zap.Int64("order_id", o.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(o.Status)),
		zap.Int64("actor_id", actor.ID),
	)
	uc.publish(ctx, order.NewEvent(order.EventStatusChanged, o, prev, actor.ID, uc.now()))

	if full, err := uc.repo.FindByID(ctx, o.ID); err == nil && full != nil {
		o = full
	}
	return &order.Transition{Order: o, From: prev, To: o.Status}, nil
}

func (uc *orderUseCase) DeleteOrder(ctx context.Context, actor *auth.Principal, id int64) error {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id, order.CheckDelete); err != nil {
		return err
	}
	uc.logger.Info("order deleted", zap.Int64("order_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}

func (uc *orderUseCase) Stats(ctx context.Context) (*dto.OrderStats, error) {
	return uc.repo.Stats(ctx)
}

func (uc *orderUseCase) qr(orderID int64) string {
	if uc.codes == nil {
		return ""
	}
	url, err := uc.codes.DataURL(orderID)
	if err != nil {
		uc.logger.Warn("generate order qr", zap.Int64("order_id", orderID), zap.Error(err))
		return ""
	}
	return url
}

// publish ships the event after commit; a broker failure never undoes the order.
func (uc *orderUseCase) publish(ctx context.Context, ev order.Event) {
	if uc.publisher == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		uc.logger.Error("marshal order event", zap.String("event_type", ev.EventType), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	key := []byte(strconv.FormatInt(ev.Payload.OrderID, 10))
	if err := uc.publisher.Publish(ctx, key, body); err != nil {
		uc.logger.Warn("publish order event",
			zap.String("event_type", ev.EventType),
			zap.Int64("order_id", ev.Payload.OrderID),
			zap.Error(err),
		)
	}
}

func checkStatusFilter(status model.OrderStatus) error {
	if status != "" && !status.Valid() {
		return order.ErrInvalidStatus
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

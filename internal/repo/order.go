package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// OrderRepo defines the persistence operations for delivery orders.
// Orders are never deleted; status moves only forward through UpdateStatus.
type OrderRepo interface {
	// Create inserts a new order. The caller supplies the ID, which is also
	// the claim id held against the slot counter.
	Create(ctx context.Context, order domain.Order) (domain.Order, error)

	// GetByID retrieves a single order. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error)

	// GetForUpdate retrieves an order and locks its row until the surrounding
	// transaction ends. Must be called inside TxManager.WithTx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error)

	// UpdateStatus writes status, sla_status and delivered_at of order.
	UpdateStatus(ctx context.Context, order domain.Order) (domain.Order, error)

	// ListForDay returns one page of a supplier's orders for day, ordered by
	// slot position then creation time, along with the total count.
	ListForDay(ctx context.Context, supplierID uuid.UUID, day time.Time, p domain.PaginationParams) ([]domain.Order, int64, error)

	// ClaimStates returns the id, label and status of every order the
	// supplier has on day. Reconciliation uses it to rebuild claim sets.
	ClaimStates(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.OrderClaim, error)

	// ListHolding returns every order, on any day, whose status still holds
	// slot capacity.
	ListHolding(ctx context.Context) ([]domain.Order, error)
}

type pgOrderRepo struct {
	db db
}

// NewOrderRepo constructs an OrderRepo backed by the provided db connection.
func NewOrderRepo(db db) OrderRepo {
	return &pgOrderRepo{db: db}
}

const orderColumns = `id, supplier_id, customer_id, site_id, scheduled_day, scheduled_slot_label,
		       status, sla_status, created_at, updated_at, delivered_at`

func (r *pgOrderRepo) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	q := `
		INSERT INTO orders (id, supplier_id, customer_id, site_id, scheduled_day, scheduled_slot_label, status, created_at, updated_at)
		VALUES (@id, @supplier_id, @customer_id, @site_id, @scheduled_day, @label, @status, @created_at, @created_at)
		RETURNING ` + orderColumns

	args := pgx.NamedArgs{
		"id":            order.ID,
		"supplier_id":   order.SupplierID,
		"customer_id":   order.CustomerID,
		"site_id":       order.SiteID,
		"scheduled_day": pgtype.Date{Time: order.ScheduledDay, Valid: true},
		"label":         order.ScheduledSlotLabel,
		"status":        string(order.Status),
		"created_at":    order.CreatedAt,
	}

	result, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, q, args))
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.OrderRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = @id`

	result, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.OrderRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgOrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = @id FOR UPDATE`

	result, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.OrderRepo.GetForUpdate: %w", err)
	}
	return result, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, order domain.Order) (domain.Order, error) {
	q := `
		UPDATE orders
		SET status       = @status,
		    sla_status   = @sla_status,
		    delivered_at = @delivered_at,
		    updated_at   = @updated_at
		WHERE id = @id
		RETURNING ` + orderColumns

	var sla *string
	if order.SLAStatus != nil {
		s := string(*order.SLAStatus)
		sla = &s
	}

	args := pgx.NamedArgs{
		"id":           order.ID,
		"status":       string(order.Status),
		"sla_status":   sla,
		"delivered_at": order.DeliveredAt,
		"updated_at":   order.UpdatedAt,
	}

	result, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, q, args))
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.OrderRepo.UpdateStatus: %w", err)
	}
	return result, nil
}

func (r *pgOrderRepo) ListForDay(ctx context.Context, supplierID uuid.UUID, day time.Time, p domain.PaginationParams) ([]domain.Order, int64, error) {
	const countQ = `
		SELECT COUNT(*) FROM orders
		WHERE supplier_id = @supplier_id AND scheduled_day = @day`

	q := `
		SELECT o.id, o.supplier_id, o.customer_id, o.site_id, o.scheduled_day, o.scheduled_slot_label,
		       o.status, o.sla_status, o.created_at, o.updated_at, o.delivered_at
		FROM orders o
		JOIN slot_definitions s
		  ON s.supplier_id = o.supplier_id AND s.label = o.scheduled_slot_label
		WHERE o.supplier_id = @supplier_id AND o.scheduled_day = @day
		ORDER BY s.position, o.created_at, o.id
		LIMIT @limit OFFSET @offset`

	c := conn(ctx, r.db)
	args := pgx.NamedArgs{
		"supplier_id": supplierID,
		"day":         pgtype.Date{Time: domain.NormalizeDay(day), Valid: true},
		"limit":       p.Limit,
		"offset":      p.Offset(),
	}

	var total int64
	if err := c.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.OrderRepo.ListForDay: count: %w", err)
	}

	rows, err := c.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.OrderRepo.ListForDay: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.OrderRepo.ListForDay: scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.OrderRepo.ListForDay: rows: %w", err)
	}
	return orders, total, nil
}

func (r *pgOrderRepo) ClaimStates(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.OrderClaim, error) {
	const q = `
		SELECT id, scheduled_slot_label, status
		FROM orders
		WHERE supplier_id = @supplier_id AND scheduled_day = @day
		ORDER BY scheduled_slot_label, created_at, id`

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{
		"supplier_id": supplierID,
		"day":         pgtype.Date{Time: domain.NormalizeDay(day), Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("repo.OrderRepo.ClaimStates: %w", err)
	}
	defer rows.Close()

	claims := []domain.OrderClaim{}
	for rows.Next() {
		var (
			c      domain.OrderClaim
			id     pgtype.UUID
			status string
		)
		if err := rows.Scan(&id, &c.Label, &status); err != nil {
			return nil, fmt.Errorf("repo.OrderRepo.ClaimStates: scan: %w", err)
		}
		c.OrderID = uuid.UUID(id.Bytes)
		c.Status = domain.OrderStatus(status)
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.OrderRepo.ClaimStates: rows: %w", err)
	}
	return claims, nil
}

func (r *pgOrderRepo) ListHolding(ctx context.Context) ([]domain.Order, error) {
	q := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status <> @cancelled
		ORDER BY scheduled_day, created_at, id`

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"cancelled": string(domain.StatusCancelled)})
	if err != nil {
		return nil, fmt.Errorf("repo.OrderRepo.ListHolding: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.OrderRepo.ListHolding: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.OrderRepo.ListHolding: rows: %w", err)
	}
	return orders, nil
}

func scanOrder(s scanner) (domain.Order, error) {
	var (
		o                            domain.Order
		id, supplier, customer, site pgtype.UUID
		day                          pgtype.Date
		status                       string
		sla                          pgtype.Text
		deliveredAt                  pgtype.Timestamptz
	)

	err := s.Scan(&id, &supplier, &customer, &site, &day, &o.ScheduledSlotLabel,
		&status, &sla, &o.CreatedAt, &o.UpdatedAt, &deliveredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, err
	}

	o.ID = uuid.UUID(id.Bytes)
	o.SupplierID = uuid.UUID(supplier.Bytes)
	o.CustomerID = uuid.UUID(customer.Bytes)
	o.SiteID = uuid.UUID(site.Bytes)
	o.ScheduledDay = day.Time
	o.Status = domain.OrderStatus(status)
	if sla.Valid {
		v := domain.SLAStatus(sla.String)
		o.SLAStatus = &v
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		o.DeliveredAt = &t
	}
	return o, nil
}

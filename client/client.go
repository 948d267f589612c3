// Package client is a Go client for the delivery-slot API, used by checkout
// and record-keeping tools. Error responses are translated back into the
// domain sentinels, so callers can use errors.Is(err, client.ErrSlotFull).
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// Sentinels returned (wrapped in *APIError) for typed error responses.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrValidation        = domain.ErrValidation
	ErrInvalidCapacity   = domain.ErrInvalidCapacity
	ErrSlotUnknown       = domain.ErrSlotUnknown
	ErrSlotInactive      = domain.ErrSlotInactive
	ErrSlotFull          = domain.ErrSlotFull
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
)

var codeSentinels = map[string]error{
	"not_found":          ErrNotFound,
	"validation_error":   ErrValidation,
	"invalid_capacity":   ErrInvalidCapacity,
	"slot_unknown":       ErrSlotUnknown,
	"slot_inactive":      ErrSlotInactive,
	"slot_full":          ErrSlotFull,
	"invalid_transition": ErrInvalidTransition,
	"forbidden":          ErrForbidden,
	"bad_request":        ErrBadRequest,
}

// APIError is a non-2xx response. It unwraps to the sentinel matching Code,
// or to nothing for codes the client does not know.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return codeSentinels[e.Code]
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Role is sent as X-Actor-Role on every request.
	Role    string
	Timeout time.Duration
	// RetryCount applies to GET requests only. Writes are never retried.
	RetryCount    int
	RetryWaitTime time.Duration
}

// Client calls the delivery-slot API over HTTP.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// New builds a Client. A zero Timeout means 10s.
func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWaitTime == 0 {
		cfg.RetryWaitTime = 500 * time.Millisecond
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(4*cfg.RetryWaitTime).
		SetHeader("Accept", "application/json").
		SetError(&errorEnvelope{}).
		AddRetryCondition(retryableRead)
	if cfg.Role != "" {
		rc.SetHeader("X-Actor-Role", cfg.Role)
	}

	return &Client{http: rc, log: log}
}

// retryableRead retries GETs that failed in transport or with a 5xx.
func retryableRead(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

// do runs req and converts error responses into *APIError.
func (c *Client) do(op string, req *resty.Request, method, path string) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Error("delivery-slot API call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("client.%s: %w", op, err)
	}
	if !resp.IsError() {
		c.log.Debug("delivery-slot API call", zap.String("op", op), zap.Int("status_code", resp.StatusCode()))
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode(), Code: "unknown", Message: http.StatusText(resp.StatusCode())}
	if env, ok := resp.Error().(*errorEnvelope); ok && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	c.log.Warn("delivery-slot API returned error",
		zap.String("op", op),
		zap.Int("status_code", apiErr.StatusCode),
		zap.String("code", apiErr.Code),
	)
	return fmt.Errorf("client.%s: %w", op, apiErr)
}

func dateParam(t time.Time) string {
	return t.Format(openapi_types.DateFormat)
}

// ListSlots returns every slot the supplier has configured.
func (c *Client) ListSlots(ctx context.Context, supplierID uuid.UUID) ([]Slot, error) {
	var out SlotList
	req := c.http.R().SetContext(ctx).
		SetPathParam("supplierId", supplierID.String()).
		SetResult(&out)
	if err := c.do("ListSlots", req, http.MethodGet, "/suppliers/{supplierId}/slots"); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// PutSlots creates or updates slots and returns the supplier's full catalog.
func (c *Client) PutSlots(ctx context.Context, supplierID uuid.UUID, slots []SlotInput) ([]Slot, error) {
	var out SlotList
	req := c.http.R().SetContext(ctx).
		SetPathParam("supplierId", supplierID.String()).
		SetBody(PutSlotsRequest{Slots: slots}).
		SetResult(&out)
	if err := c.do("PutSlots", req, http.MethodPut, "/suppliers/{supplierId}/slots"); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetAvailability returns remaining capacity per label for day.
func (c *Client) GetAvailability(ctx context.Context, supplierID uuid.UUID, day time.Time) (Availability, error) {
	var out Availability
	req := c.http.R().SetContext(ctx).
		SetPathParams(map[string]string{
			"supplierId": supplierID.String(),
			"day":        dateParam(day),
		}).
		SetResult(&out)
	if err := c.do("GetAvailability", req, http.MethodGet, "/suppliers/{supplierId}/availability/{day}"); err != nil {
		return Availability{}, err
	}
	return out, nil
}

// Reconcile rebuilds the day's booking counters and returns corrected labels.
func (c *Client) Reconcile(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]CounterDrift, error) {
	var out ReconcileResult
	req := c.http.R().SetContext(ctx).
		SetPathParams(map[string]string{
			"supplierId": supplierID.String(),
			"day":        dateParam(day),
		}).
		SetResult(&out)
	if err := c.do("Reconcile", req, http.MethodPost, "/suppliers/{supplierId}/availability/{day}/reconcile"); err != nil {
		return nil, err
	}
	return out.Drift, nil
}

// PlaceOrder admits an order into a slot.
func (c *Client) PlaceOrder(ctx context.Context, supplierID uuid.UUID, in PlaceOrderRequest) (Order, error) {
	var out Order
	req := c.http.R().SetContext(ctx).
		SetPathParam("supplierId", supplierID.String()).
		SetBody(in).
		SetResult(&out)
	if err := c.do("PlaceOrder", req, http.MethodPost, "/suppliers/{supplierId}/orders"); err != nil {
		return Order{}, err
	}
	return out, nil
}

// ListOrders returns one page of the supplier's orders for day. Zero page or
// limit leaves the server default.
func (c *Client) ListOrders(ctx context.Context, supplierID uuid.UUID, day time.Time, page, limit int) (OrderList, error) {
	var out OrderList
	req := c.http.R().SetContext(ctx).
		SetPathParam("supplierId", supplierID.String()).
		SetQueryParam("day", dateParam(day)).
		SetResult(&out)
	if page > 0 {
		req.SetQueryParam("page", strconv.Itoa(page))
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if err := c.do("ListOrders", req, http.MethodGet, "/suppliers/{supplierId}/orders"); err != nil {
		return OrderList{}, err
	}
	return out, nil
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var out Order
	req := c.http.R().SetContext(ctx).
		SetPathParam("orderId", id.String()).
		SetResult(&out)
	if err := c.do("GetOrder", req, http.MethodGet, "/orders/{orderId}"); err != nil {
		return Order{}, err
	}
	return out, nil
}

// TransitionOrder moves an order to status.
func (c *Client) TransitionOrder(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	var out Order
	req := c.http.R().SetContext(ctx).
		SetPathParam("orderId", id.String()).
		SetBody(TransitionRequest{Status: status}).
		SetResult(&out)
	if err := c.do("TransitionOrder", req, http.MethodPost, "/orders/{orderId}/transitions"); err != nil {
		return Order{}, err
	}
	return out, nil
}

// SLAReport counts the supplier's orders in [from, to] by delivery outcome.
func (c *Client) SLAReport(ctx context.Context, supplierID uuid.UUID, from, to time.Time) (SLAReport, error) {
	var out SLAReport
	req := c.http.R().SetContext(ctx).
		SetPathParam("supplierId", supplierID.String()).
		SetQueryParams(map[string]string{
			"from": dateParam(from),
			"to":   dateParam(to),
		}).
		SetResult(&out)
	if err := c.do("SLAReport", req, http.MethodGet, "/suppliers/{supplierId}/reports/sla"); err != nil {
		return SLAReport{}, err
	}
	return out, nil
}

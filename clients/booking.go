package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"concertbooking/booking"
	"concertbooking/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

const (
	HeaderIdempotencyKey = "X-Idempotency-Key"
	HeaderCorrelationID  = "Correlation-ID"

	DefaultTimeout = 30 * time.Second
)

// BookingClient talks to the booking service's JSON API. It implements both
// booking.Client and booking.Catalog.
type BookingClient struct {
	baseURL *url.URL
	http    *http.Client
	now     func() time.Time
}

type Option func(*BookingClient)

func WithHTTPClient(c *http.Client) Option {
	return func(b *BookingClient) {
		b.http = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(b *BookingClient) {
		b.http.Timeout = d
	}
}

func NewBookingClient(baseURL string, opts ...Option) (*BookingClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing booking api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("booking api url %q must be absolute", baseURL)
	}

	c := &BookingClient{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type confirmRequest struct {
	PaymentSuccess bool `json:"paymentSuccess"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *BookingClient) CreateReservation(ctx context.Context, token string, req entity.ReservationRequest) (entity.Reservation, error) {
	header := http.Header{}
	header.Set(HeaderIdempotencyKey, token)

	var res entity.Reservation
	serverTime, err := c.do(ctx, http.MethodPost, "/bookings", nil, header, req, &res)
	if err != nil {
		return entity.Reservation{}, err
	}

	c.stamp(&res, serverTime)
	return res, nil
}

func (c *BookingClient) ConfirmReservation(ctx context.Context, reservationID string, paymentSuccess bool) (entity.Reservation, error) {
	path := "/bookings/" + url.PathEscape(reservationID) + "/confirm"

	var res entity.Reservation
	serverTime, err := c.do(ctx, http.MethodPost, path, nil, nil, confirmRequest{PaymentSuccess: paymentSuccess}, &res)
	if err != nil {
		return entity.Reservation{}, err
	}

	c.stamp(&res, serverTime)
	return res, nil
}

func (c *BookingClient) GetReservation(ctx context.Context, reservationID string) (entity.Reservation, error) {
	var res entity.Reservation
	serverTime, err := c.do(ctx, http.MethodGet, "/bookings/"+url.PathEscape(reservationID), nil, nil, nil, &res)
	if err != nil {
		return entity.Reservation{}, err
	}

	c.stamp(&res, serverTime)
	return res, nil
}

func (c *BookingClient) GetReservationsForUser(ctx context.Context, userID string) ([]entity.Reservation, error) {
	query := url.Values{}
	query.Set("userId", userID)

	var reservations []entity.Reservation
	serverTime, err := c.do(ctx, http.MethodGet, "/bookings", query, nil, nil, &reservations)
	if err != nil {
		return nil, err
	}

	for i := range reservations {
		c.stamp(&reservations[i], serverTime)
	}
	return reservations, nil
}

func (c *BookingClient) ListConcerts(ctx context.Context) ([]entity.Concert, error) {
	var concerts []entity.Concert
	if _, err := c.do(ctx, http.MethodGet, "/concerts", nil, nil, nil, &concerts); err != nil {
		return nil, err
	}
	return concerts, nil
}

func (c *BookingClient) GetConcert(ctx context.Context, concertID string) (entity.Concert, error) {
	var concert entity.Concert
	if _, err := c.do(ctx, http.MethodGet, "/concerts/"+url.PathEscape(concertID), nil, nil, nil, &concert); err != nil {
		return entity.Concert{}, err
	}
	return concert, nil
}

func (c *BookingClient) stamp(res *entity.Reservation, serverTime time.Time) {
	res.ServerTime = serverTime
	res.ReceivedAt = c.now()
}

// do sends one request and decodes a 2xx body into out. It returns the
// server's Date header, or the zero time when it is missing.
func (c *BookingClient) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	header http.Header,
	body any,
	out any,
) (time.Time, error) {
	u := *c.baseURL
	u.Path = u.Path + path
	if query == nil {
		query = url.Values{}
	}
	if method == http.MethodGet {
		// keeps intermediaries from serving a stale status
		query.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	u.RawQuery = query.Encode()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return time.Time{}, booking.NewError(booking.KindUnknown, "", fmt.Errorf("marshalling request body: %w", err))
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return time.Time{}, booking.NewError(booking.KindUnknown, "", fmt.Errorf("creating request: %w", err))
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderCorrelationID, correlationID(ctx))

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	})
	logger.Debug("API request")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.WithError(err).Debug("API request failed")
		return time.Time{}, transportError(err)
	}
	defer resp.Body.Close()

	logger.WithField("status", resp.StatusCode).Debug("API response")

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, transportError(fmt.Errorf("reading response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, statusError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return time.Time{}, booking.NewError(booking.KindUnknown, "", fmt.Errorf("decoding response body: %w", err))
		}
	}

	serverTime, _ := http.ParseTime(resp.Header.Get("Date"))
	return serverTime, nil
}

func correlationID(ctx context.Context) string {
	if id := log.CorrelationIDFromContext(ctx); id != "" {
		return id
	}
	return "gen_" + shortuuid.New()
}

func statusError(code int, body []byte) error {
	var payload errorResponse
	_ = json.Unmarshal(body, &payload)

	switch code {
	case http.StatusBadRequest:
		return booking.NewError(booking.KindInvalidRequest, payload.Message, nil)
	case http.StatusNotFound:
		return booking.NewError(booking.KindNotFound, payload.Message, nil)
	case http.StatusConflict:
		return booking.NewError(booking.KindConflict, payload.Message, nil)
	}
	return booking.NewError(booking.KindUnknown, payload.Message, fmt.Errorf("unexpected status code: %d", code))
}

func transportError(err error) error {
	bErr := booking.NewError(booking.KindTransport, "", err)

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		bErr.Timeout = true
	}
	return bErr
}

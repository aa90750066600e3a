package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold-reservation/internal/gateway"
	"github.com/iliyamo/seat-hold-reservation/internal/model"
	"github.com/iliyamo/seat-hold-reservation/internal/repository"
	"github.com/iliyamo/seat-hold-reservation/internal/service"
)

const (
	testEvent     = "ev-1"
	webhookSecret = "whsec_test"
)

type stubSweeper struct{ expired, released int }

func (s stubSweeper) SweepNow(context.Context) (int, int, error) { return s.expired, s.released, nil }

type testServer struct {
	e       *echo.Echo
	manager *service.ReservationManager
	recon   *service.PaymentReconciler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	seats := repository.NewMemorySeatRepo()
	require.NoError(t, seats.CreateBulk(context.Background(), model.GenerateSeatGrid(testEvent, 1, 4)))
	res := repository.NewMemoryReservationRepo()
	backups := repository.NewMemoryBackupRepo()
	bookings := repository.NewMemoryBookingRepo()
	events := repository.NewMemoryEventRepo(model.Event{ID: testEvent, Name: "Gala", DefaultPrice: 1500, SaleEnabled: true})

	manager := service.NewReservationManager(seats, res, backups, bookings, events, gateway.NewSandboxGateway(gateway.SandboxConfig{}))
	recon := service.NewPaymentReconciler(manager, res, backups, bookings)

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = CustomHTTPErrorHandler

	rh := NewReservationHandler(manager)
	e.POST("/v1/events/:eventId/holds", rh.CreateHold)
	e.GET("/v1/events/:eventId/seats", rh.SeatMap)
	e.GET("/v1/reservations/:id", rh.Get)
	e.GET("/v1/reservations/:id/bookings", rh.Bookings)
	e.PUT("/v1/reservations/:id/tickets", rh.UpdateTickets)
	e.POST("/v1/reservations/:id/payment", rh.BeginPayment)
	e.DELETE("/v1/reservations/:id", rh.Cancel)

	ph := NewPaymentHandler(recon, webhookSecret, "")
	e.POST("/v1/payments/callback", ph.Callback)
	e.GET("/v1/payments/return", ph.Return)
	e.POST("/v1/payments/webhook/stripe", ph.StripeWebhook)
	e.GET("/sandbox/pay/:paymentId", ph.SandboxPay)

	e.POST("/v1/admin/sweep", NewAdminHandler(stubSweeper{expired: 1, released: 2}).Sweep)
	e.GET("/healthz", NewHealthHandler(map[string]Check{"store": func(context.Context) error { return nil }}).Health)

	return &testServer{e: e, manager: manager, recon: recon}
}

func (s *testServer) call(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestHoldToPaidFlow(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.call(t, http.MethodPost, "/v1/events/"+testEvent+"/holds", echo.Map{"seat_ids": []string{"A1", "A2"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := body["reservation_id"].(string)
	require.NotEmpty(t, id)
	price := body["price_estimate"].(map[string]interface{})
	assert.Equal(t, float64(3000), price["total"])

	rec, body = s.call(t, http.MethodPut, "/v1/reservations/"+id+"/tickets", echo.Map{
		"assignments": []echo.Map{{"seat_id": "A2", "age_class": "child"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, body["tickets"], 2)

	rec, body = s.call(t, http.MethodPost, "/v1/reservations/"+id+"/payment", echo.Map{"customer": echo.Map{"name": "Ada", "email": "ada@example.com"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paymentID, _ := body["external_payment_id"].(string)
	require.NotEmpty(t, paymentID)
	assert.NotEmpty(t, body["payment_url"])

	rec, body = s.call(t, http.MethodPost, "/v1/payments/callback", echo.Map{"external_payment_id": paymentID, "verdict": "success", "transaction_id": "txn-9"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, id, body["reservation_id"])

	// The browser return arriving after the callback is a replay.
	rec, body = s.call(t, http.MethodGet, "/v1/payments/return?reservation_id="+id+"&payment_id="+paymentID+"&status=success", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])

	rec, body = s.call(t, http.MethodGet, "/v1/reservations/"+id+"/bookings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["bookings"], 2)

	rec, body = s.call(t, http.MethodGet, "/v1/reservations/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PAID", body["state_name"])
	assert.Equal(t, float64(model.StatePaid), body["state"])

	rec, _ = s.call(t, http.MethodDelete, "/v1/reservations/"+id, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateHoldErrors(t *testing.T) {
	s := newTestServer(t)
	path := "/v1/events/" + testEvent + "/holds"

	rec, _ := s.call(t, http.MethodPost, path, echo.Map{"seat_ids": []string{"A1"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := s.call(t, http.MethodPost, path, echo.Map{"seat_ids": []string{"A1", "A3"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "some seats are unavailable", body["error"])
	assert.Equal(t, []interface{}{"A1"}, body["unavailable"])

	rec, body = s.call(t, http.MethodPost, path, echo.Map{"seat_ids": []string{"Q7"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []interface{}{"Q7"}, body["not_found"])

	rec, _ = s.call(t, http.MethodPost, path, echo.Map{"seat_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.call(t, http.MethodPost, "/v1/events/unknown/holds", echo.Map{"seat_ids": []string{"A1"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.call(t, http.MethodPost, path, echo.Map{"seat_ids": []string{"A4"}, "customer": echo.Map{"email": "not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelReleasesSeats(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.call(t, http.MethodPost, "/v1/events/"+testEvent+"/holds", echo.Map{"seat_ids": []string{"A3"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["reservation_id"].(string)

	rec, body = s.call(t, http.MethodDelete, "/v1/reservations/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["cancelled"])

	rec, body = s.call(t, http.MethodGet, "/v1/events/"+testEvent+"/seats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, raw := range body["seats"].([]interface{}) {
		seat := raw.(map[string]interface{})
		assert.Equal(t, string(model.SeatAvailable), seat["state"], seat["label"])
	}

	rec, _ = s.call(t, http.MethodPost, "/v1/reservations/"+id+"/payment", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCallbackValidation(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.call(t, http.MethodPost, "/v1/payments/callback", echo.Map{"verdict": "success"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.call(t, http.MethodPost, "/v1/payments/callback", echo.Map{"external_payment_id": "x", "verdict": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.call(t, http.MethodPost, "/v1/payments/callback", echo.Map{"external_payment_id": "sbx_unknown", "verdict": "success"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReturnRedirect(t *testing.T) {
	s := newTestServer(t)
	e := echo.New()
	e.GET("/return", NewPaymentHandler(s.recon, "", "https://shop.example/done?lang=en").Return)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/return?reservation_id=gone&status=success", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://shop.example/done?lang=en&reservation_id=gone&success=false", rec.Header().Get(echo.HeaderLocation))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/return", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSandboxPayRedirectsToReturn(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.call(t, http.MethodGet, "/sandbox/pay/sbx_1?reservation_id=r-1", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/v1/payments/return?payment_id=sbx_1&reservation_id=r-1&status=success", rec.Header().Get(echo.HeaderLocation))

	rec, _ = s.call(t, http.MethodGet, "/sandbox/pay/sbx_1?reservation_id=r-1&outcome=failure", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderLocation), "status=failed")
}

func signStripe(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeWebhook(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	res, err := s.manager.CreateHold(ctx, service.CreateHoldInput{EventID: testEvent, SeatIDs: []string{"A2"}})
	require.NoError(t, err)
	_, err = s.manager.BeginGatewayRedirect(ctx, res.ID, nil)
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{` +
		`"id":"cs_1","object":"checkout.session","client_reference_id":"` + res.ID + `","payment_status":"paid"}}}`)

	post := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", sig)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, post("t=1,v1=deadbeef").Code)

	rec := post(signStripe(payload, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"applied":true`)

	got, err := s.manager.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePaid, got.State)
}

// unreachableReservations fails every lookup as if the database were down.
type unreachableReservations struct {
	*repository.MemoryReservationRepo
}

func (unreachableReservations) GetByID(context.Context, string) (*model.Reservation, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (unreachableReservations) GetByPaymentID(context.Context, string) (*model.Reservation, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestStripeWebhookErrorClassification(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{` +
		`"id":"cs_2","object":"checkout.session","client_reference_id":"res-missing","payment_status":"paid"}}}`)

	serve := func(store service.ReservationStore) *httptest.ResponseRecorder {
		seats := repository.NewMemorySeatRepo()
		backups := repository.NewMemoryBackupRepo()
		bookings := repository.NewMemoryBookingRepo()
		events := repository.NewMemoryEventRepo()
		manager := service.NewReservationManager(seats, store, backups, bookings, events, gateway.NewSandboxGateway(gateway.SandboxConfig{}))
		ph := NewPaymentHandler(service.NewPaymentReconciler(manager, store, backups, bookings), webhookSecret, "")

		e := echo.New()
		e.HTTPErrorHandler = CustomHTTPErrorHandler
		e.POST("/v1/payments/webhook/stripe", ph.StripeWebhook)

		req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", signStripe(payload, time.Now()))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("unknown reservation is acknowledged", func(t *testing.T) {
		rec := serve(repository.NewMemoryReservationRepo())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"applied":false`)
	})

	t.Run("store failure asks for redelivery", func(t *testing.T) {
		rec := serve(unreachableReservations{repository.NewMemoryReservationRepo()})
		require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), `"received"`)
	})
}

func TestAdminSweepAndHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.call(t, http.MethodPost, "/v1/admin/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["expired"])
	assert.Equal(t, float64(2), body["released"])

	rec, body = s.call(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthDegraded(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", NewHealthHandler(map[string]Check{
		"db":    func(context.Context) error { return fmt.Errorf("down") },
		"redis": nil,
	}).Health)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

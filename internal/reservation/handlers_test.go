package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ekrini-reservation/internal/domain"
	"ekrini-reservation/internal/pkg/clock"
	"ekrini-reservation/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlersTest(t *testing.T) (*fiber.App, *Service, *clock.Fake) {
	svc, _, fc, _ := setupServiceTest(t)
	h := &Handlers{Service: svc}

	app := fiber.New()
	app.Post("/api/reservations", h.CreateReservation)
	app.Get("/api/reservations/availability/check", h.CheckAvailability)
	app.Get("/api/reservations/by-status/:status", h.GetByStatus)
	app.Get("/api/reservations/client/:clientId", h.GetClientReservations)
	app.Get("/api/reservations/:reservationId", h.GetReservation)
	app.Put("/api/reservations/:reservationId/cancel", h.CancelReservation)
	app.Put("/api/reservations/:reservationId/confirm", h.ConfirmReservation)
	return app, svc, fc
}

func decodeBody(t *testing.T, r io.ReadCloser) response.Body {
	defer r.Close()
	var out response.Body
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func TestCreateReservation_Endpoint(t *testing.T) {
	app, _, fc := setupHandlersTest(t)
	start, end := days(fc, 2, 7)

	body, err := json.Marshal(map[string]interface{}{
		"clientId":  "client-1",
		"carId":     "car-1",
		"startDate": start.Format(time.RFC3339),
		"endDate":   end.Format(time.RFC3339),
	})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	out := decodeBody(t, resp.Body)
	assert.True(t, out.Success)
	assert.Equal(t, "Réservation créée avec succès", out.Message)
}

func TestCreateReservation_MissingFields(t *testing.T) {
	app, _, _ := setupHandlersTest(t)

	body, _ := json.Marshal(map[string]interface{}{"carId": "car-1"})
	req := httptest.NewRequest("POST", "/api/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateReservation_BadDates(t *testing.T) {
	app, _, _ := setupHandlersTest(t)

	body, _ := json.Marshal(map[string]interface{}{
		"clientId":  "client-1",
		"carId":     "car-1",
		"startDate": "not-a-date",
		"endDate":   "also-not",
	})
	req := httptest.NewRequest("POST", "/api/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateReservation_ConflictReturns409(t *testing.T) {
	app, svc, fc := setupHandlersTest(t)
	start, end := days(fc, 2, 7)

	_, err := svc.Create(context.Background(), CreateInput{
		ClientID: "a", CarID: "car-1", StartDate: start, EndDate: end,
	})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]interface{}{
		"clientId":  "b",
		"carId":     "car-1",
		"startDate": start.Format(time.RFC3339),
		"endDate":   end.Format(time.RFC3339),
	})
	req := httptest.NewRequest("POST", "/api/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	out := decodeBody(t, resp.Body)
	assert.False(t, out.Success)
	assert.Equal(t, "Le véhicule n'est pas disponible pour cette période", out.Message)
}

func TestGetReservation_NotFound(t *testing.T) {
	app, _, _ := setupHandlersTest(t)

	req := httptest.NewRequest("GET", "/api/reservations/unknown-id", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	assert.Equal(t, "Réservation non trouvée", out.Message)
}

func TestGetClientReservations_CountEnvelope(t *testing.T) {
	app, svc, fc := setupHandlersTest(t)
	s1, e1 := days(fc, 2, 5)
	s2, e2 := days(fc, 6, 9)

	_, err := svc.Create(context.Background(), CreateInput{ClientID: "c9", CarID: "car-1", StartDate: s1, EndDate: e1})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{ClientID: "c9", CarID: "car-1", StartDate: s2, EndDate: e2})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/reservations/client/c9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	require.NotNil(t, out.Count)
	assert.Equal(t, 2, *out.Count)
}

func TestGetByStatus_InvalidStatus(t *testing.T) {
	app, _, _ := setupHandlersTest(t)

	req := httptest.NewRequest("GET", "/api/reservations/by-status/parked", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCheckAvailability_Endpoint(t *testing.T) {
	app, svc, fc := setupHandlersTest(t)
	start, end := days(fc, 2, 7)

	url := "/api/reservations/availability/check?carId=car-1&startDate=" +
		start.Format("2006-01-02") + "&endDate=" + end.Format("2006-01-02")
	req := httptest.NewRequest("GET", url, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, true, out["available"])

	_, err = svc.Create(context.Background(), CreateInput{ClientID: "a", CarID: "car-1", StartDate: start, EndDate: end})
	require.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, false, out["available"])
}

func TestConfirmThenCancel_Endpoints(t *testing.T) {
	app, svc, fc := setupHandlersTest(t)
	start, end := days(fc, 2, 7)

	r, err := svc.Create(context.Background(), CreateInput{ClientID: "a", CarID: "car-1", StartDate: start, EndDate: end})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("PUT", "/api/reservations/"+r.ReservationID+"/confirm", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	got, err := svc.GetByID(context.Background(), r.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConfirmed, got.Status)

	body, _ := json.Marshal(map[string]string{"reason": "client request"})
	req := httptest.NewRequest("PUT", "/api/reservations/"+r.ReservationID+"/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	got, err = svc.GetByID(context.Background(), r.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, got.Status)
	assert.Equal(t, "Annulée: client request", got.Notes)
}

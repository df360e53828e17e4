package contract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"ekrini-reservation/internal/domain"
	"ekrini-reservation/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupContractHandlersTest(t *testing.T) (*fiber.App, *Service, *gorm.DB) {
	svc, db, _ := setupContractTest(t)
	h := &Handlers{Service: svc, PdfDir: t.TempDir()}

	app := fiber.New()
	app.Post("/api/contracts", h.CreateContract)
	app.Get("/api/contracts/stats/overview", h.GetContractStats)
	app.Get("/api/contracts/:contractId", h.GetContract)
	app.Post("/api/contracts/:contractId/sign", h.SignContract)
	app.Put("/api/contracts/:contractId/status", h.UpdateContractStatus)
	return app, svc, db
}

func TestCreateContract_Endpoint(t *testing.T) {
	app, _, db := setupContractHandlersTest(t)
	r := seedReservation(t, db, domain.InsuranceStandard)

	body, _ := json.Marshal(map[string]string{"reservationId": r.ReservationID})
	req := httptest.NewRequest("POST", "/api/contracts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out response.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.True(t, out.Success)
	assert.Equal(t, "Contrat créé avec succès", out.Message)

	// Second create for the same reservation is rejected.
	req = httptest.NewRequest("POST", "/api/contracts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateContract_MissingReservationID(t *testing.T) {
	app, _, _ := setupContractHandlersTest(t)

	req := httptest.NewRequest("POST", "/api/contracts", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSignContract_Endpoint(t *testing.T) {
	app, svc, db := setupContractHandlersTest(t)
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(context.Background(), r.ReservationID)
	require.NoError(t, err)

	payload := map[string]string{
		"signer":    "client",
		"signature": base64.StdEncoding.EncodeToString([]byte("sig-bytes")),
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/contracts/"+c.ContractID+"/sign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out response.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	data, ok := out.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, c.ContractID, data["contractId"])
	assert.Equal(t, false, data["fullySigned"])
}

func TestSignContract_MissingFields(t *testing.T) {
	app, svc, db := setupContractHandlersTest(t)
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(context.Background(), r.ReservationID)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"signer": "client"})
	req := httptest.NewRequest("POST", "/api/contracts/"+c.ContractID+"/sign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetContract_NotFound(t *testing.T) {
	app, _, _ := setupContractHandlersTest(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/contracts/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var out response.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, "Contrat non trouvé", out.Message)
}

func TestUpdateContractStatus_Endpoint(t *testing.T) {
	app, svc, db := setupContractHandlersTest(t)
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(context.Background(), r.ReservationID)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"status": domain.ContractActive})
	req := httptest.NewRequest("PUT", "/api/contracts/"+c.ContractID+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	got, err := svc.Get(context.Background(), c.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractActive, got.Status)
}

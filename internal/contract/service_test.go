package contract

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ekrini-reservation/internal/domain"
	"ekrini-reservation/internal/pkg/clock"
	"ekrini-reservation/internal/pkg/errs"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRenderer struct {
	doc   *Document
	err   error
	calls int
}

func (f *fakeRenderer) Render(c *domain.Contract, r *domain.Reservation, client *Client) (*Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeDirectory struct {
	client *Client
	err    error
}

func (f *fakeDirectory) GetClient(ctx context.Context, clientID string) (*Client, error) {
	return f.client, f.err
}

func setupContractTest(t *testing.T) (*Service, *gorm.DB, *clock.Fake) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Reservation{}, &domain.Contract{}))

	fc := clock.NewFake(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	svc := &Service{
		DB:       db,
		Renderer: &fakeRenderer{doc: &Document{URL: "/uploads/contracts/c.pdf", FileName: "c.pdf"}},
		Directory: &fakeDirectory{
			client: &Client{FirstName: "Amine", LastName: "B", Email: "amine@example.com", Phone: "+21612345678"},
		},
		Clock: fc,
	}
	return svc, db, fc
}

func seedReservation(t *testing.T, db *gorm.DB, tier string) *domain.Reservation {
	r := &domain.Reservation{
		ClientID:      "client-1",
		CarID:         "car-1",
		CarBrand:      "Renault",
		CarModel:      "Clio",
		StartDate:     time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		InsuranceType: tier,
		Status:        domain.ReservationConfirmed,
		TotalDays:     5,
		DailyRate:     80,
		TotalAmount:   500,
		DepositAmount: 100,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func TestCreateContract(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)

	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	assert.NotEmpty(t, c.ContractID)
	assert.Equal(t, domain.ContractDraft, c.Status)
	assert.Equal(t, r.ClientID, c.ClientID)
	assert.Equal(t, float64(500), c.Terms.TotalAmount)
	assert.Len(t, c.Rules, 6)
	assert.False(t, c.FullySigned)

	// The reservation now references its contract.
	var reloaded domain.Reservation
	require.NoError(t, db.Preload("Contract").Where("id = ?", r.ID).First(&reloaded).Error)
	require.NotNil(t, reloaded.Contract)
	assert.Equal(t, c.ContractID, reloaded.Contract.ContractID)
}

func TestCreateContract_UnknownReservation(t *testing.T) {
	svc, _, _ := setupContractTest(t)

	_, err := svc.Create(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateContract_DuplicateRejected(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)

	_, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, r.ReservationID)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestSign_ClientSignature(t *testing.T) {
	svc, db, fc := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	signed, err := svc.Sign(ctx, c.ContractID, SignerClient, []byte("sig-bytes"))
	require.NoError(t, err)

	assert.Equal(t, domain.ContractSigned, signed.Status)
	require.NotNil(t, signed.ClientSignature)
	assert.Equal(t, []byte("sig-bytes"), signed.ClientSignature.Data)
	assert.True(t, fc.Current.Equal(signed.ClientSignature.Timestamp))
	assert.Nil(t, signed.AgencySignature)
	assert.False(t, signed.FullySigned)
	require.NotNil(t, signed.SignedAt)
}

func TestSign_BothPartiesFullySigned(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	_, err = svc.Sign(ctx, c.ContractID, SignerClient, []byte("client-sig"))
	require.NoError(t, err)
	signed, err := svc.Sign(ctx, c.ContractID, SignerAgency, []byte("agency-sig"))
	require.NoError(t, err)

	assert.True(t, signed.FullySigned)
	require.NotNil(t, signed.ClientSignature)
	require.NotNil(t, signed.AgencySignature)
}

func TestSign_SnapshotFreezesPreSignState(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	signed, err := svc.Sign(ctx, c.ContractID, SignerClient, []byte("sig"))
	require.NoError(t, err)

	require.Len(t, signed.Versions, 1)
	assert.Equal(t, "Signed by client", signed.Versions[0].Notes)

	var frozen struct {
		Status string       `json:"status"`
		Terms  domain.Terms `json:"terms"`
	}
	require.NoError(t, json.Unmarshal(signed.Versions[0].Snapshot, &frozen))
	assert.Equal(t, domain.ContractDraft, frozen.Status) // pre-sign state
	assert.Equal(t, float64(500), frozen.Terms.TotalAmount)

	// Second signature appends a second version; the first stays untouched.
	signed, err = svc.Sign(ctx, c.ContractID, SignerAgency, []byte("sig2"))
	require.NoError(t, err)
	require.Len(t, signed.Versions, 2)
	assert.Equal(t, "Signed by agency", signed.Versions[1].Notes)
	assert.Equal(t, "Signed by client", signed.Versions[0].Notes)
}

func TestSign_InvalidInputs(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	_, err = svc.Sign(ctx, c.ContractID, "notary", []byte("sig"))
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Sign(ctx, c.ContractID, SignerClient, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Sign(ctx, "missing", SignerClient, []byte("sig"))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// A failed sign persists nothing.
	got, err := svc.Get(ctx, c.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractDraft, got.Status)
	assert.Empty(t, got.Versions)
}

func TestSign_RejectsNonPositiveTotal(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	c.Terms.TotalAmount = 0
	require.NoError(t, db.Model(&domain.Contract{}).
		Where("contract_id = ?", c.ContractID).Update("terms", c.Terms).Error)

	_, err = svc.Sign(ctx, c.ContractID, SignerClient, []byte("sig"))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestGeneratePDF_FinalizesContract(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	got, doc, err := svc.GeneratePDF(ctx, c.ContractID)
	require.NoError(t, err)

	assert.Equal(t, "/uploads/contracts/c.pdf", doc.URL)
	assert.Equal(t, domain.ContractSigned, got.Status)
	assert.Equal(t, "/uploads/contracts/c.pdf", got.PdfURL)
	assert.Equal(t, "c.pdf", got.PdfFileName)
	require.NotNil(t, got.SignedAt)
}

func TestUpdateStatus(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, c.ContractID, domain.ContractCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	_, err = svc.UpdateStatus(ctx, c.ContractID, "notarized")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.UpdateStatus(ctx, "missing", domain.ContractSigned)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateRules(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	_, err = svc.UpdateRules(ctx, c.ContractID, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)

	got, err := svc.UpdateRules(ctx, c.ContractID, domain.Rules{
		{Title: "Kilométrage", Description: "Limité à 200 km/jour.", Category: "driving"},
	})
	require.NoError(t, err)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "Kilométrage", got.Rules[0].Title)
}

func TestDeleteContract_KeepsReservation(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, c.ContractID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, c.ContractID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	var reloaded domain.Reservation
	require.NoError(t, db.Where("id = ?", r.ID).First(&reloaded).Error)
	assert.Nil(t, reloaded.ContractRowID)
}

func TestListAll_Pagination(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := &domain.Reservation{
			ClientID:      "client-1",
			CarID:         "car-1",
			StartDate:     time.Date(2026, 6, 10+i*7, 0, 0, 0, 0, time.UTC),
			EndDate:       time.Date(2026, 6, 12+i*7, 0, 0, 0, 0, time.UTC),
			InsuranceType: domain.InsuranceStandard,
			Status:        domain.ReservationConfirmed,
			TotalAmount:   200,
		}
		require.NoError(t, db.Create(r).Error)
		_, err := svc.Create(ctx, r.ReservationID)
		require.NoError(t, err)
	}

	contracts, page, err := svc.ListAll(ctx, ListOptions{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, contracts, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)

	contracts, _, err = svc.ListAll(ctx, ListOptions{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, contracts, 1)
}

func TestListByStatus_RejectsUnknown(t *testing.T) {
	svc, _, _ := setupContractTest(t)

	_, err := svc.ListByStatus(context.Background(), "notarized")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestGetStats(t *testing.T) {
	svc, db, _ := setupContractTest(t)
	ctx := context.Background()
	r := seedReservation(t, db, domain.InsuranceStandard)
	c, err := svc.Create(ctx, r.ReservationID)
	require.NoError(t, err)
	_, err = svc.Sign(ctx, c.ContractID, SignerClient, []byte("sig"))
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, domain.ContractSigned, stats[0].Status)
	assert.Equal(t, int64(1), stats[0].Count)
}

package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"ekrini-reservation/internal/domain"
	"ekrini-reservation/internal/pkg/clock"
	"ekrini-reservation/internal/pkg/errs"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Signer roles.
const (
	SignerClient = "client"
	SignerAgency = "agency"
)

// Client is the renter identity used on rendered documents.
type Client struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Directory resolves client details. Best-effort: the document path falls back
// to a placeholder when the lookup fails.
type Directory interface {
	GetClient(ctx context.Context, clientID string) (*Client, error)
}

// Document is a rendered contract reference.
type Document struct {
	URL      string `json:"pdfUrl"`
	FileName string `json:"pdfFileName"`
}

// Renderer produces the contract document.
type Renderer interface {
	Render(contract *domain.Contract, reservation *domain.Reservation, client *Client) (*Document, error)
}

// Service owns the contract lifecycle: creation from a reservation, signing
// with version snapshots, document generation and administrative updates.
type Service struct {
	DB        *gorm.DB
	Renderer  Renderer
	Directory Directory
	Clock     clock.Clock
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

// Create builds the contract for a reservation: rules and terms are generated
// from its insurance tier, status starts at draft. A reservation carries at
// most one contract.
func (s *Service) Create(ctx context.Context, reservationID string) (*domain.Contract, error) {
	var reservation domain.Reservation
	err := s.DB.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&reservation).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.NotFound("Réservation non trouvée")
	}
	if err != nil {
		return nil, err
	}

	var existing domain.Contract
	err = s.DB.WithContext(ctx).Where("reservation_row_id = ?", reservation.ID).First(&existing).Error
	if err == nil {
		return nil, errs.AlreadyExists("Un contrat existe déjà pour cette réservation")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	contract := &domain.Contract{
		ReservationRowID: reservation.ID,
		ClientID:         reservation.ClientID,
		CarID:            reservation.CarID,
		StartDate:        reservation.StartDate,
		EndDate:          reservation.EndDate,
		InsuranceType:    reservation.InsuranceType,
		Terms:            GenerateTerms(&reservation),
		Rules:            StandardRules(reservation.InsuranceType),
		Status:           domain.ContractDraft,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(contract).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Reservation{}).
			Where("id = ?", reservation.ID).
			Update("contract_row_id", contract.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// Get fetches a contract by its public identifier, reservation included.
func (s *Service) Get(ctx context.Context, contractID string) (*domain.Contract, error) {
	var c domain.Contract
	err := s.DB.WithContext(ctx).Preload("Reservation").
		Where("contract_id = ?", contractID).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.NotFound("Contrat non trouvé")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListOptions filters and paginates ListAll.
type ListOptions struct {
	Page     int
	Limit    int
	Status   string
	ClientID string
}

// Pagination describes one page of results.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// ListAll returns a page of contracts, most recent first.
func (s *Service) ListAll(ctx context.Context, opts ListOptions) ([]domain.Contract, *Pagination, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	q := s.DB.WithContext(ctx).Model(&domain.Contract{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.ClientID != "" {
		q = q.Where("client_id = ?", opts.ClientID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var contracts []domain.Contract
	err := q.Order("created_at desc").
		Limit(opts.Limit).Offset((opts.Page - 1) * opts.Limit).
		Find(&contracts).Error
	if err != nil {
		return nil, nil, err
	}

	return contracts, &Pagination{
		Total: total,
		Page:  opts.Page,
		Limit: opts.Limit,
		Pages: int(math.Ceil(float64(total) / float64(opts.Limit))),
	}, nil
}

// ListByClient returns a client's contracts, most recent first.
func (s *Service) ListByClient(ctx context.Context, clientID string) ([]domain.Contract, error) {
	var cs []domain.Contract
	err := s.DB.WithContext(ctx).Preload("Reservation").
		Where("client_id = ?", clientID).Order("created_at desc").Find(&cs).Error
	return cs, err
}

// ListByStatus returns contracts in a given status, most recent first.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]domain.Contract, error) {
	if !domain.ValidContractStatus(status) {
		return nil, errs.Validation(fmt.Sprintf("Statut invalide. Valeurs acceptées: %s",
			strings.Join(domain.ContractStatuses(), ", ")))
	}
	var cs []domain.Contract
	err := s.DB.WithContext(ctx).Preload("Reservation").
		Where("status = ?", status).Order("created_at desc").Find(&cs).Error
	return cs, err
}

// validateBeforeSign checks the contract carries signable terms.
func validateBeforeSign(c *domain.Contract) error {
	if c.Terms.TotalAmount <= 0 {
		return errs.Validation("Invalid total amount in contract terms")
	}
	return nil
}

// snapshot freezes the contract's mutable state into an immutable version entry.
func snapshot(c *domain.Contract, notes string, at time.Time) (domain.Version, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"contractId": c.ContractID,
		"terms":      c.Terms,
		"rules":      c.Rules,
		"status":     c.Status,
		"pdfUrl":     c.PdfURL,
	})
	if err != nil {
		return domain.Version{}, fmt.Errorf("unable to create version snapshot: %w", err)
	}
	return domain.Version{
		VersionAt: at,
		Snapshot:  datatypes.JSON(payload),
		Notes:     notes,
	}, nil
}

// Sign captures one party's e-signature. A version snapshot of the pre-sign
// state is appended first; either signature alone moves the contract to
// signed (dual-signature completeness is exposed as the derived fullySigned).
func (s *Service) Sign(ctx context.Context, contractID, signer string, signature []byte) (*domain.Contract, error) {
	if signer != SignerClient && signer != SignerAgency {
		return nil, errs.Validation("signer must be client or agency")
	}
	if len(signature) == 0 {
		return nil, errs.Validation("signer and signature are required")
	}

	c, err := s.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := validateBeforeSign(c); err != nil {
		return nil, err
	}

	now := s.now()
	version, err := snapshot(c, fmt.Sprintf("Signed by %s", signer), now)
	if err != nil {
		return nil, err
	}

	sig := &domain.Signature{Data: signature, Timestamp: now}
	updates := map[string]interface{}{
		"versions":  append(c.Versions, version),
		"status":    domain.ContractSigned,
		"signed_at": now,
	}
	if signer == SignerClient {
		updates["client_signature"] = *sig
	} else {
		updates["agency_signature"] = *sig
	}

	err = s.DB.WithContext(ctx).Model(&domain.Contract{}).
		Where("contract_id = ?", contractID).Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, contractID)
}

// GeneratePDF renders the contract document and finalizes the contract:
// rendering is an alternate path into signed.
func (s *Service) GeneratePDF(ctx context.Context, contractID string) (*domain.Contract, *Document, error) {
	c, err := s.Get(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if c.Reservation == nil {
		return nil, nil, errs.NotFound("Réservation non trouvée")
	}

	client := s.lookupClient(ctx, c.ClientID)

	doc, err := s.Renderer.Render(c, c.Reservation, client)
	if err != nil {
		return nil, nil, fmt.Errorf("Erreur lors de la génération du PDF: %w", err)
	}

	now := s.now()
	err = s.DB.WithContext(ctx).Model(&domain.Contract{}).
		Where("contract_id = ?", contractID).
		Updates(map[string]interface{}{
			"pdf_url":       doc.URL,
			"pdf_file_name": doc.FileName,
			"status":        domain.ContractSigned,
			"signed_at":     now,
		}).Error
	if err != nil {
		return nil, nil, err
	}

	c, err = s.Get(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	return c, doc, nil
}

// lookupClient resolves the renter's identity, falling back to a placeholder
// when the directory is unavailable (Express parity).
func (s *Service) lookupClient(ctx context.Context, clientID string) *Client {
	fallback := &Client{FirstName: "Client", LastName: "E-krini", Email: "client@example.com", Phone: "N/A"}
	if s.Directory == nil {
		return fallback
	}
	client, err := s.Directory.GetClient(ctx, clientID)
	if err != nil || client == nil {
		log.Warn().Err(err).Str("client_id", clientID).Msg("client lookup failed")
		return fallback
	}
	return client
}

// UpdateStatus overwrites the contract status. Restricted to the enumerated
// set; moving to signed stamps signedAt.
func (s *Service) UpdateStatus(ctx context.Context, contractID, status string) (*domain.Contract, error) {
	if !domain.ValidContractStatus(status) {
		return nil, errs.Validation(fmt.Sprintf("Statut invalide. Valeurs acceptées: %s",
			strings.Join(domain.ContractStatuses(), ", ")))
	}

	updates := map[string]interface{}{"status": status}
	if status == domain.ContractSigned {
		updates["signed_at"] = s.now()
	}
	if status == domain.ContractCompleted {
		updates["completed_at"] = s.now()
	}

	res := s.DB.WithContext(ctx).Model(&domain.Contract{}).
		Where("contract_id = ?", contractID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("Contrat non trouvé")
	}
	return s.Get(ctx, contractID)
}

// UpdateRules replaces the rules list wholesale. An empty list is allowed.
func (s *Service) UpdateRules(ctx context.Context, contractID string, rules domain.Rules) (*domain.Contract, error) {
	if rules == nil {
		return nil, errs.Validation("Les règles doivent être un tableau")
	}
	res := s.DB.WithContext(ctx).Model(&domain.Contract{}).
		Where("contract_id = ?", contractID).Update("rules", rules)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("Contrat non trouvé")
	}
	return s.Get(ctx, contractID)
}

// Delete removes a contract. The reservation keeps existing; only its back
// reference is cleared.
func (s *Service) Delete(ctx context.Context, contractID string) (*domain.Contract, error) {
	c, err := s.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Reservation{}).
			Where("contract_row_id = ?", c.ID).
			Update("contract_row_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Contract{}, c.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// StatusStat is one row of the by-status aggregation.
type StatusStat struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// GetStats aggregates contract counts by status.
func (s *Service) GetStats(ctx context.Context) ([]StatusStat, error) {
	var stats []StatusStat
	err := s.DB.WithContext(ctx).Model(&domain.Contract{}).
		Select("status, count(*) as count").Group("status").Scan(&stats).Error
	return stats, err
}

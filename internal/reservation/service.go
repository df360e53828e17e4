package reservation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ekrini-reservation/internal/domain"
	"ekrini-reservation/internal/fleet"
	"ekrini-reservation/internal/pkg/clock"
	"ekrini-reservation/internal/pkg/errs"
	"ekrini-reservation/internal/pricing"
	"ekrini-reservation/internal/promotion"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service owns the reservation lifecycle: hold creation, conflict checking,
// state transitions and queries. All mutation of reservations goes through it.
type Service struct {
	DB        *gorm.DB
	Fleet     fleet.Service
	Promos    promotion.Service
	Holds     *HoldIndex
	Clock     clock.Clock
	HoldHours int

	carLocks sync.Map // carID -> *sync.Mutex, serializes check-then-insert per car
}

// CreateInput is the booking request.
type CreateInput struct {
	ClientID      string
	CarID         string
	CarModel      string
	CarBrand      string
	StartDate     time.Time
	EndDate       time.Time
	InsuranceType string
	DailyRate     float64
	PromoCode     string
	DepositAmount float64
	DepositPaid   bool
	Notes         string
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

func (s *Service) holdWindow() time.Duration {
	h := s.HoldHours
	if h <= 0 {
		h = 24
	}
	return time.Duration(h) * time.Hour
}

func (s *Service) lockCar(carID string) *sync.Mutex {
	mu, _ := s.carLocks.LoadOrStore(carID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Create places a hold (or an immediately confirmed booking) for a car over a
// date interval. The conflict check and the insert run under a per-car lock
// and a single transaction so two overlapping requests cannot both succeed.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Reservation, error) {
	if in.ClientID == "" || in.CarID == "" {
		return nil, errs.Validation("clientId et carId sont requis")
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, errs.Validation("La date de fin doit être après la date de début")
	}
	if in.InsuranceType == "" {
		in.InsuranceType = domain.InsuranceStandard
	}
	if !domain.ValidInsuranceType(in.InsuranceType) {
		return nil, errs.Validation("insuranceType invalide")
	}

	// Fleet lookup is load-bearing: unknown car or unreachable fleet aborts.
	car, err := s.Fleet.GetCar(ctx, in.CarID)
	if err != nil {
		return nil, err
	}
	if in.DailyRate == 0 {
		in.DailyRate = car.DailyRate
	}
	if in.CarBrand == "" {
		in.CarBrand = car.Brand
	}
	if in.CarModel == "" {
		in.CarModel = car.Model
	}

	now := s.now()
	totalDays := pricing.TotalDays(in.StartDate, in.EndDate)
	quote := pricing.ComputePrice(in.DailyRate, totalDays, in.InsuranceType, 0)

	// Promo is best-effort: a failed verify/apply degrades to zero discount.
	discount := s.applyPromo(ctx, in.PromoCode, quote.Subtotal)
	quote = pricing.ComputePrice(in.DailyRate, totalDays, in.InsuranceType, discount)

	deposit := in.DepositAmount
	if deposit == 0 {
		deposit = pricing.DefaultDeposit(quote.TotalAmount)
	}

	reservation := &domain.Reservation{
		ClientID:        in.ClientID,
		CarID:           in.CarID,
		CarModel:        in.CarModel,
		CarBrand:        in.CarBrand,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		InsuranceType:   in.InsuranceType,
		TotalDays:       quote.TotalDays,
		DailyRate:       quote.DailyRate,
		InsuranceAmount: quote.InsuranceAmount,
		DiscountAmount:  quote.DiscountAmount,
		TotalAmount:     quote.TotalAmount,
		DepositAmount:   deposit,
		Notes:           in.Notes,
	}
	if in.PromoCode != "" && discount > 0 {
		code := in.PromoCode
		reservation.PromoCode = &code
	}

	var holdTTL time.Duration
	if in.DepositPaid {
		reservation.Status = domain.ReservationConfirmed
		reservation.DepositPaid = true
	} else {
		reservation.Status = domain.ReservationPending
		expires := now.Add(s.holdWindow())
		reservation.HoldExpiresAt = &expires
		holdTTL = s.holdWindow()
	}

	// Fleet availability cross-check, fail closed: an error or a missing car
	// in the answer both reject the booking.
	available, err := s.Fleet.CheckAvailability(ctx, []string{in.CarID}, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	if !containsID(available, in.CarID) {
		return nil, errs.Unavailable("Le véhicule n'est pas disponible pour cette période")
	}

	mu := s.lockCar(in.CarID)
	mu.Lock()
	defer mu.Unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conflicts, err := s.countConflicts(tx, in.CarID, in.StartDate, in.EndDate, now)
		if err != nil {
			return err
		}
		if conflicts > 0 {
			return errs.Unavailable("Le véhicule n'est pas disponible pour cette période")
		}
		return tx.Create(reservation).Error
	})
	if err != nil {
		return nil, err
	}

	if holdTTL > 0 {
		if err := s.Holds.Track(ctx, reservation.ReservationID, holdTTL); err != nil {
			log.Warn().Err(err).Str("reservation_id", reservation.ReservationID).Msg("hold index track failed")
		}
	}

	if in.DepositPaid {
		// Best-effort: the booking stands even if the fleet status update fails.
		if err := s.Fleet.UpdateStatus(ctx, in.CarID, "rented"); err != nil {
			log.Warn().Err(err).Str("car_id", in.CarID).Msg("fleet status update failed")
		}
	}

	return reservation, nil
}

func (s *Service) applyPromo(ctx context.Context, code string, subtotal float64) float64 {
	if code == "" {
		return 0
	}
	coupon, err := s.Promos.VerifyCoupon(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("promo_code", code).Msg("coupon verify failed")
		return 0
	}
	if coupon == nil || !coupon.Valid {
		return 0
	}
	discount, err := s.Promos.ApplyCoupon(ctx, code, subtotal)
	if err != nil {
		log.Warn().Err(err).Str("promo_code", code).Msg("coupon apply failed")
		return 0
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// countConflicts counts non-cancelled reservations for the car whose [start, end)
// interval overlaps the candidate one. Past-expiry pending holds do not count.
func (s *Service) countConflicts(tx *gorm.DB, carID string, start, end time.Time, now time.Time) (int64, error) {
	var n int64
	err := tx.Model(&domain.Reservation{}).
		Where("car_id = ? AND status <> ?", carID, domain.ReservationCancelled).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Where("hold_expires_at IS NULL OR hold_expires_at > ?", now).
		Count(&n).Error
	return n, err
}

// IsAvailable reports whether the car has no conflicting reservation over
// [start, end). Read-only; safe to call concurrently.
func (s *Service) IsAvailable(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, errs.Validation("La date de fin doit être après la date de début")
	}
	n, err := s.countConflicts(s.DB.WithContext(ctx), carID, start, end, s.now())
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// GetByID fetches a reservation by its public identifier, contract included.
func (s *Service) GetByID(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	var r domain.Reservation
	err := s.DB.WithContext(ctx).Preload("Contract").
		Where("reservation_id = ?", reservationID).First(&r).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.NotFound("Réservation non trouvée")
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByClient returns a client's reservations, most recent first.
func (s *Service) ListByClient(ctx context.Context, clientID string) ([]domain.Reservation, error) {
	var rs []domain.Reservation
	err := s.DB.WithContext(ctx).Preload("Contract").
		Where("client_id = ?", clientID).Order("created_at desc").Find(&rs).Error
	return rs, err
}

// ListByStatus returns reservations in a given status, most recent first.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]domain.Reservation, error) {
	if !domain.ValidReservationStatus(status) {
		return nil, errs.Validation(fmt.Sprintf("Statut invalide. Valeurs acceptées: %s",
			strings.Join(domain.ReservationStatuses(), ", ")))
	}
	var rs []domain.Reservation
	err := s.DB.WithContext(ctx).Preload("Contract").
		Where("status = ?", status).Order("created_at desc").Find(&rs).Error
	return rs, err
}

// SearchByCarModel returns reservations for a car model, by start date.
func (s *Service) SearchByCarModel(ctx context.Context, carModel string) ([]domain.Reservation, error) {
	var rs []domain.Reservation
	err := s.DB.WithContext(ctx).Preload("Contract").
		Where("car_model = ?", carModel).Order("start_date asc").Find(&rs).Error
	return rs, err
}

// ListByDateRange returns reservations overlapping [start, end], by start date.
func (s *Service) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Reservation, error) {
	var rs []domain.Reservation
	err := s.DB.WithContext(ctx).Preload("Contract").
		Where("start_date <= ? AND end_date >= ?", end, start).
		Order("start_date asc").Find(&rs).Error
	return rs, err
}

// Confirm marks a pending reservation paid: clears the hold and flips status.
// Any non-pending reservation (absent, expired-and-swept, already confirmed)
// fails the same way.
func (s *Service) Confirm(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("reservation_id = ? AND status = ?", reservationID, domain.ReservationPending).
		Updates(map[string]interface{}{
			"status":          domain.ReservationConfirmed,
			"deposit_paid":    true,
			"hold_expires_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("Réservation non trouvée")
	}
	if err := s.Holds.Clear(ctx, reservationID); err != nil {
		log.Warn().Err(err).Str("reservation_id", reservationID).Msg("hold index clear failed")
	}
	return s.GetByID(ctx, reservationID)
}

// Cancel moves a pending or confirmed reservation to cancelled, recording the
// reason in notes.
func (s *Service) Cancel(ctx context.Context, reservationID, reason string) (*domain.Reservation, error) {
	if reason == "" {
		reason = "Non spécifiée"
	}
	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("reservation_id = ? AND status IN ?", reservationID,
			[]string{domain.ReservationPending, domain.ReservationConfirmed}).
		Updates(map[string]interface{}{
			"status":          domain.ReservationCancelled,
			"notes":           fmt.Sprintf("Annulée: %s", reason),
			"hold_expires_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("Réservation non trouvée")
	}
	if err := s.Holds.Clear(ctx, reservationID); err != nil {
		log.Warn().Err(err).Str("reservation_id", reservationID).Msg("hold index clear failed")
	}
	return s.GetByID(ctx, reservationID)
}

// ReleaseHold cancels a pending hold. It is the restricted variant of Cancel
// used for automatic or administrative expiry handling.
func (s *Service) ReleaseHold(ctx context.Context, reservationID, reason string) (*domain.Reservation, error) {
	if reason == "" {
		reason = "Hold released"
	}
	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("reservation_id = ? AND status = ?", reservationID, domain.ReservationPending).
		Updates(map[string]interface{}{
			"status":          domain.ReservationCancelled,
			"notes":           fmt.Sprintf("%s - %s", reservationID, reason),
			"hold_expires_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("Hold non trouvé ou déjà traité")
	}
	if err := s.Holds.Clear(ctx, reservationID); err != nil {
		log.Warn().Err(err).Str("reservation_id", reservationID).Msg("hold index clear failed")
	}
	return s.GetByID(ctx, reservationID)
}

// SweepExpiredHolds releases every pending, unpaid hold whose expiry has
// passed. Returns the number of holds released.
func (s *Service) SweepExpiredHolds(ctx context.Context) (int, error) {
	now := s.now()
	var expired []domain.Reservation
	err := s.DB.WithContext(ctx).
		Where("status = ? AND deposit_paid = ? AND hold_expires_at IS NOT NULL AND hold_expires_at < ?",
			domain.ReservationPending, false, now).
		Find(&expired).Error
	if err != nil {
		return 0, err
	}

	released := 0
	for _, r := range expired {
		// Skip holds the TTL index still considers live (clock skew between
		// the booking writer and this sweeper); they are picked up next tick.
		if live, err := s.Holds.Active(ctx, r.ReservationID); err == nil && live {
			continue
		}
		if _, err := s.ReleaseHold(ctx, r.ReservationID, "Hold expired"); err != nil {
			log.Warn().Err(err).Str("reservation_id", r.ReservationID).Msg("hold release failed")
			continue
		}
		released++
	}
	return released, nil
}

// UpdateInput is the administrative patch surface. Nil fields are untouched.
type UpdateInput struct {
	StartDate     *time.Time
	EndDate       *time.Time
	InsuranceType *string
	DailyRate     *float64
	DepositAmount *float64
	Notes         *string
}

// Update applies an administrative patch. When dates or pricing inputs change,
// the overlap invariant is re-checked and the totals recomputed.
func (s *Service) Update(ctx context.Context, reservationID string, in UpdateInput) (*domain.Reservation, error) {
	current, err := s.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	start := current.StartDate
	end := current.EndDate
	datesChanged := false
	if in.StartDate != nil {
		start = *in.StartDate
		datesChanged = true
	}
	if in.EndDate != nil {
		end = *in.EndDate
		datesChanged = true
	}
	if !end.After(start) {
		return nil, errs.Validation("La date de fin doit être après la date de début")
	}

	tier := current.InsuranceType
	if in.InsuranceType != nil {
		if !domain.ValidInsuranceType(*in.InsuranceType) {
			return nil, errs.Validation("insuranceType invalide")
		}
		tier = *in.InsuranceType
	}
	rate := current.DailyRate
	if in.DailyRate != nil {
		rate = *in.DailyRate
	}

	mu := s.lockCar(current.CarID)
	mu.Lock()
	defer mu.Unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if datesChanged {
			var n int64
			err := tx.Model(&domain.Reservation{}).
				Where("car_id = ? AND status <> ? AND reservation_id <> ?",
					current.CarID, domain.ReservationCancelled, reservationID).
				Where("start_date <= ? AND end_date >= ?", end, start).
				Where("hold_expires_at IS NULL OR hold_expires_at > ?", s.now()).
				Count(&n).Error
			if err != nil {
				return err
			}
			if n > 0 {
				return errs.Unavailable("Le véhicule n'est pas disponible pour cette période")
			}
		}

		totalDays := pricing.TotalDays(start, end)
		quote := pricing.ComputePrice(rate, totalDays, tier, current.DiscountAmount)

		updates := map[string]interface{}{
			"start_date":       start,
			"end_date":         end,
			"insurance_type":   tier,
			"daily_rate":       quote.DailyRate,
			"total_days":       quote.TotalDays,
			"insurance_amount": quote.InsuranceAmount,
			"total_amount":     quote.TotalAmount,
		}
		if in.DepositAmount != nil {
			updates["deposit_amount"] = *in.DepositAmount
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}
		return tx.Model(&domain.Reservation{}).
			Where("reservation_id = ?", reservationID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, reservationID)
}

// Delete removes a reservation unconditionally.
func (s *Service) Delete(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	r, err := s.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Delete(&domain.Reservation{}, r.ID).Error; err != nil {
		return nil, err
	}
	if err := s.Holds.Clear(ctx, reservationID); err != nil {
		log.Warn().Err(err).Str("reservation_id", reservationID).Msg("hold index clear failed")
	}
	return r, nil
}

// StatusStat is one row of the by-status aggregation.
type StatusStat struct {
	Status       string  `json:"status"`
	Count        int64   `json:"count"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// InsuranceStat is one row of the by-tier aggregation.
type InsuranceStat struct {
	InsuranceType string `json:"insuranceType"`
	Count         int64  `json:"count"`
}

// Stats aggregates reservation counts and revenue by status and by tier.
type Stats struct {
	ByStatus    []StatusStat    `json:"byStatus"`
	ByInsurance []InsuranceStat `json:"byInsurance"`
}

// GetStats computes the reservation statistics overview.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	var byStatus []StatusStat
	err := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Select("status, count(*) as count, sum(total_amount) as total_revenue").
		Group("status").Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}

	var byInsurance []InsuranceStat
	err = s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Select("insurance_type, count(*) as count").
		Group("insurance_type").Scan(&byInsurance).Error
	if err != nil {
		return nil, err
	}

	return &Stats{ByStatus: byStatus, ByInsurance: byInsurance}, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

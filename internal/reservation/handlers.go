package reservation

import (
	"context"
	"time"

	"ekrini-reservation/internal/emails"
	"ekrini-reservation/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers exposes the reservation operations over HTTP.
type Handlers struct {
	Service *Service
	Mailer  emails.Sender
}

type createBody struct {
	ClientID      string  `json:"clientId"`
	CarID         string  `json:"carId"`
	CarModel      string  `json:"carModel"`
	CarBrand      string  `json:"carBrand"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	InsuranceType string  `json:"insuranceType"`
	DailyRate     float64 `json:"dailyRate"`
	PromoCode     string  `json:"promoCode"`
	DepositAmount float64 `json:"depositAmount"`
	DepositPaid   bool    `json:"depositPaid"`
	Notes         string  `json:"notes"`
	Email         string  `json:"email"`
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreateReservation handles POST /api/reservations.
func (h *Handlers) CreateReservation(c *fiber.Ctx) error {
	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Erreurs de validation", fiber.StatusBadRequest)
	}
	if body.ClientID == "" || body.CarID == "" {
		return response.Error(c, "clientId et carId sont requis", fiber.StatusBadRequest)
	}
	start, okStart := parseDate(body.StartDate)
	end, okEnd := parseDate(body.EndDate)
	if !okStart || !okEnd {
		return response.Error(c, "startDate et endDate doivent être des dates valides", fiber.StatusBadRequest)
	}

	reservation, err := h.Service.Create(c.Context(), CreateInput{
		ClientID:      body.ClientID,
		CarID:         body.CarID,
		CarModel:      body.CarModel,
		CarBrand:      body.CarBrand,
		StartDate:     start,
		EndDate:       end,
		InsuranceType: body.InsuranceType,
		DailyRate:     body.DailyRate,
		PromoCode:     body.PromoCode,
		DepositAmount: body.DepositAmount,
		DepositPaid:   body.DepositPaid,
		Notes:         body.Notes,
	})
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la création de la réservation")
	}

	// Confirmation email is fire-and-forget: a failed send never fails the booking.
	if body.Email != "" && h.Mailer != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := h.Mailer.SendReservationConfirmation(ctx, body.Email, reservation); err != nil {
				log.Warn().Err(err).Str("reservation_id", reservation.ReservationID).Msg("confirmation email failed")
			}
		}()
	}

	return response.SuccessCreated(c, "Réservation créée avec succès", reservation)
}

// GetReservation handles GET /api/reservations/:reservationId.
func (h *Handlers) GetReservation(c *fiber.Ctx) error {
	reservation, err := h.Service.GetByID(c.Context(), c.Params("reservationId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération de la réservation")
	}
	return response.Success(c, "", reservation)
}

// GetClientReservations handles GET /api/reservations/client/:clientId.
func (h *Handlers) GetClientReservations(c *fiber.Ctx) error {
	reservations, err := h.Service.ListByClient(c.Context(), c.Params("clientId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des réservations")
	}
	return response.SuccessList(c, len(reservations), reservations)
}

// SearchByCarModel handles GET /api/reservations/search/by-car-model.
func (h *Handlers) SearchByCarModel(c *fiber.Ctx) error {
	carModel := c.Query("carModel")
	if carModel == "" {
		return response.Error(c, "Le modèle de voiture est requis", fiber.StatusBadRequest)
	}
	reservations, err := h.Service.SearchByCarModel(c.Context(), carModel)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la recherche")
	}
	return response.SuccessList(c, len(reservations), reservations)
}

// GetByStatus handles GET /api/reservations/by-status/:status.
func (h *Handlers) GetByStatus(c *fiber.Ctx) error {
	reservations, err := h.Service.ListByStatus(c.Context(), c.Params("status"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des réservations")
	}
	return response.SuccessList(c, len(reservations), reservations)
}

// GetByDateRange handles GET /api/reservations/period.
func (h *Handlers) GetByDateRange(c *fiber.Ctx) error {
	start, okStart := parseDate(c.Query("startDate"))
	end, okEnd := parseDate(c.Query("endDate"))
	if !okStart || !okEnd {
		return response.Error(c, "Les dates de début et de fin sont requises", fiber.StatusBadRequest)
	}
	reservations, err := h.Service.ListByDateRange(c.Context(), start, end)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des réservations")
	}
	return response.SuccessList(c, len(reservations), reservations)
}

// GetStats handles GET /api/reservations/stats/overview.
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	stats, err := h.Service.GetStats(c.Context())
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des statistiques")
	}
	return response.Success(c, "", stats)
}

// CheckAvailability handles GET /api/reservations/availability/check.
func (h *Handlers) CheckAvailability(c *fiber.Ctx) error {
	carID := c.Query("carId")
	start, okStart := parseDate(c.Query("startDate"))
	end, okEnd := parseDate(c.Query("endDate"))
	if carID == "" || !okStart || !okEnd {
		return response.Error(c, "Les paramètres carId, startDate et endDate sont requis", fiber.StatusBadRequest)
	}
	available, err := h.Service.IsAvailable(c.Context(), carID, start, end)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la vérification de la disponibilité")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"available": available,
		"carId":     carID,
		"startDate": c.Query("startDate"),
		"endDate":   c.Query("endDate"),
	})
}

type updateBody struct {
	StartDate     *string  `json:"startDate"`
	EndDate       *string  `json:"endDate"`
	InsuranceType *string  `json:"insuranceType"`
	DailyRate     *float64 `json:"dailyRate"`
	DepositAmount *float64 `json:"depositAmount"`
	Notes         *string  `json:"notes"`
}

// UpdateReservation handles PUT /api/reservations/:reservationId.
func (h *Handlers) UpdateReservation(c *fiber.Ctx) error {
	var body updateBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Erreurs de validation", fiber.StatusBadRequest)
	}

	in := UpdateInput{
		InsuranceType: body.InsuranceType,
		DailyRate:     body.DailyRate,
		DepositAmount: body.DepositAmount,
		Notes:         body.Notes,
	}
	if body.StartDate != nil {
		t, ok := parseDate(*body.StartDate)
		if !ok {
			return response.Error(c, "startDate doit être une date valide", fiber.StatusBadRequest)
		}
		in.StartDate = &t
	}
	if body.EndDate != nil {
		t, ok := parseDate(*body.EndDate)
		if !ok {
			return response.Error(c, "endDate doit être une date valide", fiber.StatusBadRequest)
		}
		in.EndDate = &t
	}

	reservation, err := h.Service.Update(c.Context(), c.Params("reservationId"), in)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la mise à jour de la réservation")
	}
	return response.Success(c, "Réservation mise à jour avec succès", reservation)
}

// CancelReservation handles PUT /api/reservations/:reservationId/cancel.
func (h *Handlers) CancelReservation(c *fiber.Ctx) error {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)

	reservation, err := h.Service.Cancel(c.Context(), c.Params("reservationId"), body.Reason)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de l'annulation de la réservation")
	}
	return response.Success(c, "Réservation annulée avec succès", reservation)
}

// ConfirmReservation handles PUT /api/reservations/:reservationId/confirm.
func (h *Handlers) ConfirmReservation(c *fiber.Ctx) error {
	reservation, err := h.Service.Confirm(c.Context(), c.Params("reservationId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la confirmation de la réservation")
	}
	return response.Success(c, "Réservation confirmée avec succès", reservation)
}

// ReleaseHold handles PUT /api/reservations/:reservationId/release-hold.
func (h *Handlers) ReleaseHold(c *fiber.Ctx) error {
	reservation, err := h.Service.ReleaseHold(c.Context(), c.Params("reservationId"), "")
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la libération du hold")
	}
	return response.Success(c, "Hold libéré avec succès", reservation)
}

// DeleteReservation handles DELETE /api/reservations/:reservationId.
func (h *Handlers) DeleteReservation(c *fiber.Ctx) error {
	reservation, err := h.Service.Delete(c.Context(), c.Params("reservationId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la suppression de la réservation")
	}
	return response.Success(c, "Réservation supprimée avec succès", reservation)
}

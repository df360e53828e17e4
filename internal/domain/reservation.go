package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation statuses (Express enum parity).
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationActive    = "active"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
)

// Insurance tiers.
const (
	InsuranceBasic         = "basic"
	InsuranceStandard      = "standard"
	InsurancePremium       = "premium"
	InsuranceComprehensive = "comprehensive"
)

var reservationStatuses = []string{
	ReservationPending, ReservationConfirmed, ReservationActive,
	ReservationCompleted, ReservationCancelled,
}

var insuranceTypes = []string{
	InsuranceBasic, InsuranceStandard, InsurancePremium, InsuranceComprehensive,
}

// ValidReservationStatus reports whether s is one of the enumerated statuses.
func ValidReservationStatus(s string) bool {
	for _, v := range reservationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidInsuranceType reports whether s is one of the enumerated tiers.
func ValidInsuranceType(s string) bool {
	for _, v := range insuranceTypes {
		if v == s {
			return true
		}
	}
	return false
}

// ReservationStatuses returns the enumerated statuses for error messages.
func ReservationStatuses() []string { return reservationStatuses }

// Reservation matches the Express Reservation model (Reservation.js).
// ReservationID is the public identifier; the numeric primary key stays internal.
type Reservation struct {
	ID              uint       `gorm:"primaryKey" json:"-"`
	ReservationID   string     `gorm:"column:reservation_id;uniqueIndex;not null" json:"reservationId"`
	ClientID        string     `gorm:"column:client_id;index;not null" json:"clientId"`
	CarID           string     `gorm:"column:car_id;index;not null" json:"carId"`
	CarModel        string     `gorm:"column:car_model;not null" json:"carModel"`
	CarBrand        string     `gorm:"column:car_brand;not null" json:"carBrand"`
	StartDate       time.Time  `gorm:"column:start_date;index;not null" json:"startDate"`
	EndDate         time.Time  `gorm:"column:end_date;not null" json:"endDate"`
	InsuranceType   string     `gorm:"column:insurance_type;type:varchar(20);default:'standard'" json:"insuranceType"`
	Status          string     `gorm:"column:status;type:varchar(20);index;default:'pending'" json:"status"`
	TotalDays       int        `gorm:"column:total_days;not null" json:"totalDays"`
	DailyRate       float64    `gorm:"column:daily_rate;type:decimal(18,2);not null" json:"dailyRate"`
	InsuranceAmount float64    `gorm:"column:insurance_amount;type:decimal(18,2);default:0" json:"insuranceAmount"`
	PromoCode       *string    `gorm:"column:promo_code;index" json:"promoCode"`
	DiscountAmount  float64    `gorm:"column:discount_amount;type:decimal(18,2);default:0" json:"discountAmount"`
	TotalAmount     float64    `gorm:"column:total_amount;type:decimal(18,2);not null" json:"totalAmount"`
	DepositAmount   float64    `gorm:"column:deposit_amount;type:decimal(18,2);default:0" json:"depositAmount"`
	DepositPaid     bool       `gorm:"column:deposit_paid;default:false" json:"depositPaid"`
	Notes           string     `gorm:"column:notes" json:"notes"`
	ContractRowID   *uint      `gorm:"column:contract_row_id" json:"-"`
	Contract        *Contract  `gorm:"foreignKey:ContractRowID" json:"contract,omitempty"`
	HoldExpiresAt   *time.Time `gorm:"column:hold_expires_at;index" json:"holdExpiresAt"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// BeforeCreate sets reservation_id if the caller did not (uuidv4, Express parity).
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ReservationID == "" {
		r.ReservationID = uuid.NewString()
	}
	return nil
}

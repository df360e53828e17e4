package pricing

import (
	"math"
	"time"

	"ekrini-reservation/internal/domain"
)

// Per-diem insurance cost by tier (currency units per day, Express parity).
var insurancePerDiem = map[string]float64{
	domain.InsuranceBasic:         10,
	domain.InsuranceStandard:      20,
	domain.InsurancePremium:       35,
	domain.InsuranceComprehensive: 50,
}

// DefaultDailyRate applies when the booking request carries no rate.
const DefaultDailyRate = 100

// DepositRate is the default deposit share of the total.
const DepositRate = 0.2

// Quote is the priced breakdown of a booking.
type Quote struct {
	TotalDays       int
	DailyRate       float64
	InsuranceAmount float64
	Subtotal        float64
	DiscountAmount  float64
	TotalAmount     float64
}

// TotalDays counts rental days, always rounding partial days up.
func TotalDays(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

// InsurancePerDiem returns the per-day insurance cost for a tier (0 if unknown).
func InsurancePerDiem(tier string) float64 {
	return insurancePerDiem[tier]
}

// ComputePrice computes the payable total. The discount is clamped so the
// total never goes negative.
func ComputePrice(dailyRate float64, totalDays int, insuranceType string, discountAmount float64) Quote {
	if dailyRate == 0 {
		dailyRate = DefaultDailyRate
	}
	insuranceAmount := float64(totalDays) * insurancePerDiem[insuranceType]
	subtotal := dailyRate*float64(totalDays) + insuranceAmount
	return Quote{
		TotalDays:       totalDays,
		DailyRate:       dailyRate,
		InsuranceAmount: insuranceAmount,
		Subtotal:        subtotal,
		DiscountAmount:  discountAmount,
		TotalAmount:     math.Max(0, subtotal-discountAmount),
	}
}

// DefaultDeposit returns the deposit to charge when none is supplied.
func DefaultDeposit(totalAmount float64) float64 {
	return totalAmount * DepositRate
}

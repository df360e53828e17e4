package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Contract statuses.
const (
	ContractDraft      = "draft"
	ContractSigned     = "signed"
	ContractActive     = "active"
	ContractCompleted  = "completed"
	ContractTerminated = "terminated"
)

var contractStatuses = []string{
	ContractDraft, ContractSigned, ContractActive, ContractCompleted, ContractTerminated,
}

// ValidContractStatus reports whether s is one of the enumerated statuses.
func ValidContractStatus(s string) bool {
	for _, v := range contractStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ContractStatuses returns the enumerated statuses for error messages.
func ContractStatuses() []string { return contractStatuses }

// Terms holds the contractual conditions generated from the reservation.
// Stored as a json column (same shape as the Mongoose sub-document).
type Terms struct {
	RentalPeriod       string   `json:"rentalPeriod"`
	InsuranceCoverage  string   `json:"insuranceCoverage"`
	Deductible         float64  `json:"deductible"`
	DailyRate          float64  `json:"dailyRate"`
	TotalAmount        float64  `json:"totalAmount"`
	DepositAmount      float64  `json:"depositAmount"`
	PaymentTerms       string   `json:"paymentTerms"`
	CancellationPolicy string   `json:"cancellationPolicy"`
	LateReturnFee      float64  `json:"lateReturnFee"`
	FuelPolicy         string   `json:"fuelPolicy"`
	MileageLimit       *float64 `json:"mileageLimit"`
	ExcessCharge       float64  `json:"excessCharge"`
}

func (t *Terms) Scan(value interface{}) error { return scanJSON(value, t) }

func (t Terms) Value() (driver.Value, error) { return valueJSON(t) }

// Rule is one contractual rule entry.
type Rule struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Rules is the ordered rules list, stored as a json column.
type Rules []Rule

func (r *Rules) Scan(value interface{}) error { return scanJSON(value, r) }

func (r Rules) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return valueJSON(r)
}

// Signature holds one party's raw signature bytes and signing time.
type Signature struct {
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Signature) Scan(value interface{}) error { return scanJSON(value, s) }

func (s Signature) Value() (driver.Value, error) { return valueJSON(s) }

// Version is one append-only snapshot of the contract's mutable state,
// taken before each signing event. Snapshot is the frozen JSON payload.
type Version struct {
	VersionAt time.Time      `json:"versionAt"`
	Snapshot  datatypes.JSON `json:"snapshot"`
	Notes     string         `json:"notes"`
}

// Versions is the append-only snapshot list, stored as a json column.
type Versions []Version

func (v *Versions) Scan(value interface{}) error { return scanJSON(value, v) }

func (v Versions) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	return valueJSON(v)
}

// Contract matches the Express Contract model (Contract.js). Exactly one per
// reservation, enforced by the unique index on reservation_row_id.
type Contract struct {
	ID              uint         `gorm:"primaryKey" json:"-"`
	ContractID      string       `gorm:"column:contract_id;uniqueIndex;not null" json:"contractId"`
	ReservationRowID uint        `gorm:"column:reservation_row_id;uniqueIndex;not null" json:"-"`
	Reservation     *Reservation `gorm:"foreignKey:ReservationRowID" json:"reservation,omitempty"`
	ClientID        string       `gorm:"column:client_id;index;not null" json:"clientId"`
	CarID           string       `gorm:"column:car_id;not null" json:"carId"`
	StartDate       time.Time    `gorm:"column:start_date;not null" json:"startDate"`
	EndDate         time.Time    `gorm:"column:end_date;not null" json:"endDate"`
	InsuranceType   string       `gorm:"column:insurance_type;type:varchar(20);not null" json:"insuranceType"`
	Terms           Terms        `gorm:"column:terms;type:json" json:"terms"`
	Rules           Rules        `gorm:"column:rules;type:json" json:"rules"`
	Status          string       `gorm:"column:status;type:varchar(20);index;default:'draft'" json:"status"`
	SignedAt        *time.Time   `gorm:"column:signed_at" json:"signedAt"`
	CompletedAt     *time.Time   `gorm:"column:completed_at" json:"completedAt"`
	PdfURL          string       `gorm:"column:pdf_url" json:"pdfUrl"`
	PdfFileName     string       `gorm:"column:pdf_file_name" json:"pdfFileName"`
	ClientSignature *Signature   `gorm:"column:client_signature;type:json" json:"clientSignature"`
	AgencySignature *Signature   `gorm:"column:agency_signature;type:json" json:"agencySignature"`
	Versions        Versions     `gorm:"column:versions;type:json" json:"versions"`
	FullySigned     bool         `gorm:"-" json:"fullySigned"`
	CreatedAt       time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

func (Contract) TableName() string {
	return "contracts"
}

// BeforeCreate sets contract_id if the caller did not.
func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ContractID == "" {
		c.ContractID = uuid.NewString()
	}
	return nil
}

// AfterFind derives FullySigned so reads always carry it.
func (c *Contract) AfterFind(tx *gorm.DB) error {
	c.RefreshFullySigned()
	return nil
}

// RefreshFullySigned recomputes the derived dual-signature flag.
func (c *Contract) RefreshFullySigned() {
	c.FullySigned = c.ClientSignature != nil && c.AgencySignature != nil
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("unsupported type for json column")
	}
}

func valueJSON(src interface{}) (driver.Value, error) {
	bs, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	return string(bs), nil
}

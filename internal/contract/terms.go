package contract

import (
	"fmt"

	"ekrini-reservation/internal/domain"
	"ekrini-reservation/internal/pricing"
)

// Deductible by insurance tier (currency units).
var deductibleByTier = map[string]float64{
	domain.InsuranceBasic:         1000,
	domain.InsuranceStandard:      500,
	domain.InsurancePremium:       250,
	domain.InsuranceComprehensive: 0,
}

// StandardRules returns the fixed base rule set plus the tier-specific
// deductible rule (Express ContractService.generateStandardRules).
func StandardRules(insuranceType string) domain.Rules {
	rules := domain.Rules{
		{
			Title:       "État du véhicule",
			Description: "Le véhicule doit être retourné dans le même état que lors de la location, hormis l'usure normale.",
			Category:    "vehicle-condition",
		},
		{
			Title:       "Carburant",
			Description: "Le véhicule doit être restitué avec le même niveau de carburant qu'à la location.",
			Category:    "fuel",
		},
		{
			Title:       "Permis de conduire",
			Description: "Le conducteur doit posséder un permis de conduire valide depuis au moins 2 ans.",
			Category:    "driving",
		},
		{
			Title:       "Interdiction de fumer",
			Description: "Il est strictement interdit de fumer à l'intérieur du véhicule.",
			Category:    "smoking",
		},
		{
			Title:       "Animaux domestiques",
			Description: "Les animaux domestiques ne sont pas autorisés dans le véhicule.",
			Category:    "pets",
		},
		{
			Title:       "Dommages",
			Description: "Le locataire est responsable de tous les dommages causés au véhicule pendant la période de location.",
			Category:    "damage",
		},
	}

	switch insuranceType {
	case domain.InsuranceBasic:
		rules = append(rules, domain.Rule{
			Title:       "Franchise basique",
			Description: "En cas de sinistre, une franchise de 1000€ s'applique.",
			Category:    "damage",
		})
	case domain.InsurancePremium:
		rules = append(rules, domain.Rule{
			Title:       "Franchise réduite",
			Description: "En cas de sinistre, une franchise de 250€ s'applique.",
			Category:    "damage",
		})
	case domain.InsuranceComprehensive:
		rules = append(rules, domain.Rule{
			Title:       "Couverture complète",
			Description: "Couverture complète de tous les sinistres. Aucune franchise.",
			Category:    "damage",
		})
	}

	return rules
}

// GenerateTerms derives the contractual terms from the reservation
// (Express ContractService.generateTerms).
func GenerateTerms(r *domain.Reservation) domain.Terms {
	rentalDays := pricing.TotalDays(r.StartDate, r.EndDate)

	deductible := deductibleByTier[domain.InsuranceBasic]
	if d, ok := deductibleByTier[r.InsuranceType]; ok {
		deductible = d
	}
	cancellationPolicy := "Annulation gratuite jusqu'à 48 heures avant la location."
	if r.InsuranceType == domain.InsuranceComprehensive {
		cancellationPolicy = "Annulation gratuite jusqu'à 24 heures avant la location."
	}

	return domain.Terms{
		RentalPeriod: fmt.Sprintf("Du %s au %s (%d jours)",
			r.StartDate.Format("02/01/2006"), r.EndDate.Format("02/01/2006"), rentalDays),
		InsuranceCoverage:  fmt.Sprintf("Couverture %s", r.InsuranceType),
		Deductible:         deductible,
		DailyRate:          r.DailyRate,
		TotalAmount:        r.TotalAmount,
		DepositAmount:      r.DepositAmount,
		PaymentTerms:       "Paiement intégral à la signature du contrat",
		CancellationPolicy: cancellationPolicy,
		LateReturnFee:      50,
		FuelPolicy:         "full-to-full",
		MileageLimit:       nil,
		ExcessCharge:       0.25,
	}
}

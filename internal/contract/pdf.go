package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ekrini-reservation/internal/domain"

	"github.com/phpdave11/gofpdf"
)

// PDFRenderer renders the rental contract document with gofpdf (the Express
// service used pdfkit; layout kept equivalent).
type PDFRenderer struct {
	Dir     string // output directory, created on demand
	BaseURL string // public URL prefix for the generated files
}

// Render writes the contract PDF to disk and returns its reference.
func (p *PDFRenderer) Render(c *domain.Contract, r *domain.Reservation, client *Client) (*Document, error) {
	fileName := fmt.Sprintf("contrat_%s_%d.pdf", c.ContractID, time.Now().UnixMilli())

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 10, "CONTRAT DE LOCATION DE VEHICULE")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Contrat N: %s", c.ContractID))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", time.Now().Format("02/01/2006")))
	pdf.Ln(10)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "1. INFORMATIONS GENERALES")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Locataire: %s %s", client.FirstName, client.LastName))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Email: %s", client.Email))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Telephone: %s", client.Phone))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "2. VEHICULE LOUE")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Marque: %s", r.CarBrand))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Modele: %s", r.CarModel))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("ID Vehicule: %s", r.CarID))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "3. PERIODE DE LOCATION")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Date de debut: %s", r.StartDate.Format("02/01/2006")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date de fin: %s", r.EndDate.Format("02/01/2006")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Nombre de jours: %d", r.TotalDays))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "4. ASSURANCE")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Type d'assurance: %s", c.Terms.InsuranceCoverage))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Franchise: %.0f EUR", c.Terms.Deductible))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "5. TARIFICATION")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pricingRows := [][3]string{
		{"Location quotidienne", fmt.Sprintf("%.2f EUR x %d jours", r.DailyRate, r.TotalDays), fmt.Sprintf("%.2f EUR", r.DailyRate*float64(r.TotalDays))},
		{"Assurance", r.InsuranceType, fmt.Sprintf("%.2f EUR", r.InsuranceAmount)},
		{"Depot de garantie", "", fmt.Sprintf("%.2f EUR", r.DepositAmount)},
		{"TOTAL", "", fmt.Sprintf("%.2f EUR", r.TotalAmount)},
	}
	for _, row := range pricingRows {
		if row[0] == "TOTAL" {
			pdf.SetFont("Helvetica", "B", 10)
		} else {
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.CellFormat(70, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(70, 6, row[1], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, row[2], "", 1, "R", false, 0, "")
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "6. CONDITIONS GENERALES")
	pdf.Ln(10)
	for i, rule := range c.Rules {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%d. %s", i+1, rule.Title))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, rule.Description, "", "L", false)
		pdf.Ln(4)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "7. SIGNATURE")
	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, "Le locataire declare accepter les conditions generales de location.", "", "L", false)
	pdf.Ln(20)
	pdf.Cell(90, 6, "Signature du locataire:")
	pdf.Cell(0, 6, "Signature de l'agence:")
	pdf.Ln(8)
	y := pdf.GetY()
	pdf.Line(10, y, 80, y)
	pdf.Line(110, y, 180, y)

	filePath := filepath.Join(p.Dir, fileName)
	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return nil, err
	}

	return &Document{
		URL:      fmt.Sprintf("%s/%s", p.BaseURL, fileName),
		FileName: fileName,
	}, nil
}

package contract

import (
	"encoding/base64"
	"path/filepath"
	"strconv"

	"ekrini-reservation/internal/domain"
	"ekrini-reservation/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the contract operations over HTTP.
type Handlers struct {
	Service *Service
	PdfDir  string
}

// CreateContract handles POST /api/contracts.
func (h *Handlers) CreateContract(c *fiber.Ctx) error {
	var body struct {
		ReservationID string `json:"reservationId"`
	}
	if err := c.BodyParser(&body); err != nil || body.ReservationID == "" {
		return response.Error(c, "reservationId est requis", fiber.StatusBadRequest)
	}

	contract, err := h.Service.Create(c.Context(), body.ReservationID)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la création du contrat")
	}
	return response.SuccessCreated(c, "Contrat créé avec succès", contract)
}

// GetContract handles GET /api/contracts/:contractId.
func (h *Handlers) GetContract(c *fiber.Ctx) error {
	contract, err := h.Service.Get(c.Context(), c.Params("contractId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération du contrat")
	}
	return response.Success(c, "", contract)
}

// GetAllContracts handles GET /api/contracts.
func (h *Handlers) GetAllContracts(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	contracts, pagination, err := h.Service.ListAll(c.Context(), ListOptions{
		Page:     page,
		Limit:    limit,
		Status:   c.Query("status"),
		ClientID: c.Query("clientId"),
	})
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des contrats")
	}
	return response.Success(c, "", fiber.Map{
		"contracts":  contracts,
		"pagination": pagination,
	})
}

// GetClientContracts handles GET /api/contracts/client/:clientId.
func (h *Handlers) GetClientContracts(c *fiber.Ctx) error {
	contracts, err := h.Service.ListByClient(c.Context(), c.Params("clientId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des contrats")
	}
	return response.SuccessList(c, len(contracts), contracts)
}

// GetContractsByStatus handles GET /api/contracts/status/:status.
func (h *Handlers) GetContractsByStatus(c *fiber.Ctx) error {
	contracts, err := h.Service.ListByStatus(c.Context(), c.Params("status"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des contrats")
	}
	return response.SuccessList(c, len(contracts), contracts)
}

// SignContract handles POST /api/contracts/:contractId/sign.
func (h *Handlers) SignContract(c *fiber.Ctx) error {
	var body struct {
		Signer    string `json:"signer"`
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "signer and signature are required", fiber.StatusBadRequest)
	}
	if body.Signer == "" || body.Signature == "" {
		return response.Error(c, "signer and signature are required", fiber.StatusBadRequest)
	}

	// Express decodes the signature with Buffer.from(s, "base64"); invalid
	// input degrades to whatever bytes decode.
	sigBytes, err := base64.StdEncoding.DecodeString(body.Signature)
	if err != nil {
		sigBytes = []byte(body.Signature)
	}

	contract, err := h.Service.Sign(c.Context(), c.Params("contractId"), body.Signer, sigBytes)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la signature du contrat")
	}
	return response.Success(c, "Contrat signé avec succès", fiber.Map{
		"contractId":  contract.ContractID,
		"fullySigned": contract.FullySigned,
	})
}

// GenerateContractPDF handles POST /api/contracts/:contractId/generate-pdf.
func (h *Handlers) GenerateContractPDF(c *fiber.Ctx) error {
	contract, doc, err := h.Service.GeneratePDF(c.Context(), c.Params("contractId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la génération du PDF")
	}
	return response.Success(c, "PDF généré avec succès", fiber.Map{
		"contractId":  contract.ContractID,
		"pdfUrl":      doc.URL,
		"pdfFileName": doc.FileName,
	})
}

// DownloadContractPDF handles GET /api/contracts/:contractId/download-pdf.
func (h *Handlers) DownloadContractPDF(c *fiber.Ctx) error {
	contract, err := h.Service.Get(c.Context(), c.Params("contractId"))
	if err != nil {
		return response.FromError(c, err, "Erreur lors du téléchargement")
	}
	if contract.PdfFileName == "" {
		return response.Error(c, "PDF non trouvé", fiber.StatusNotFound)
	}
	return c.Download(filepath.Join(h.PdfDir, contract.PdfFileName), contract.PdfFileName)
}

// UpdateContractStatus handles PUT /api/contracts/:contractId/status.
func (h *Handlers) UpdateContractStatus(c *fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "status est requis", fiber.StatusBadRequest)
	}

	contract, err := h.Service.UpdateStatus(c.Context(), c.Params("contractId"), body.Status)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la mise à jour du contrat")
	}
	return response.Success(c, "Statut du contrat mis à jour", contract)
}

// UpdateContractRules handles PUT /api/contracts/:contractId/rules.
func (h *Handlers) UpdateContractRules(c *fiber.Ctx) error {
	var body struct {
		Rules *domain.Rules `json:"rules"`
	}
	if err := c.BodyParser(&body); err != nil || body.Rules == nil {
		return response.Error(c, "Les règles doivent être un tableau", fiber.StatusBadRequest)
	}

	contract, err := h.Service.UpdateRules(c.Context(), c.Params("contractId"), *body.Rules)
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la mise à jour des règles")
	}
	return response.Success(c, "Règles du contrat mises à jour", contract)
}

// GetContractStats handles GET /api/contracts/stats/overview.
func (h *Handlers) GetContractStats(c *fiber.Ctx) error {
	stats, err := h.Service.GetStats(c.Context())
	if err != nil {
		return response.FromError(c, err, "Erreur lors de la récupération des statistiques")
	}
	return response.Success(c, "", stats)
}

// DeleteContract handles DELETE /api/contracts/:contractId.
func (h *Handlers) DeleteContract(c *fiber.Ctx) error {
	contract, err := h.Service.Delete(c.Context(), c.Params("contractId"))
	if err != nil {
		return response.FromError(c, err, "Erreur serveur lors de la suppression")
	}
	return response.Success(c, "Contrat supprimé avec succès", contract)
}

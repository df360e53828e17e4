package app

import (
	"time"

	"ekrini-reservation/internal/config"
	"ekrini-reservation/internal/contract"
	"ekrini-reservation/internal/emails"
	"ekrini-reservation/internal/fleet"
	"ekrini-reservation/internal/infrastructure/database"
	"ekrini-reservation/internal/middleware"
	"ekrini-reservation/internal/pkg/clock"
	"ekrini-reservation/internal/promotion"
	"ekrini-reservation/internal/reservation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration, plus the hold reaper (not started; main owns its lifecycle).
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, *reservation.Reaper, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	app.Use(cors.New())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "OK",
			"service":   "reservation-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Rendered contract PDFs (Express served /uploads statically).
	app.Static(cfg.ContractsBaseURL, cfg.ContractsDir)

	var reaper *reservation.Reaper
	if db != nil {
		reservationService := &reservation.Service{
			DB:        db,
			Fleet:     &fleet.HTTPClient{BaseURL: cfg.FleetServiceURL},
			Promos:    &promotion.HTTPClient{BaseURL: cfg.PromotionServiceURL},
			Holds:     &reservation.HoldIndex{Rdb: rdb},
			Clock:     clock.Real{},
			HoldHours: cfg.HoldHours,
		}
		reservationHandlers := &reservation.Handlers{
			Service: reservationService,
			Mailer:  &emails.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom},
		}

		resGroup := app.Group("/api/reservations")
		resGroup.Post("/", reservationHandlers.CreateReservation)
		resGroup.Get("/search/by-car-model", reservationHandlers.SearchByCarModel)
		resGroup.Get("/by-status/:status", reservationHandlers.GetByStatus)
		resGroup.Get("/period", reservationHandlers.GetByDateRange)
		resGroup.Get("/stats/overview", reservationHandlers.GetStats)
		resGroup.Get("/availability/check", reservationHandlers.CheckAvailability)
		resGroup.Get("/client/:clientId", reservationHandlers.GetClientReservations)
		resGroup.Get("/:reservationId", reservationHandlers.GetReservation)
		resGroup.Put("/:reservationId/cancel", reservationHandlers.CancelReservation)
		resGroup.Put("/:reservationId/confirm", reservationHandlers.ConfirmReservation)
		resGroup.Put("/:reservationId/release-hold", reservationHandlers.ReleaseHold)
		resGroup.Put("/:reservationId", reservationHandlers.UpdateReservation)
		resGroup.Delete("/:reservationId", reservationHandlers.DeleteReservation)

		contractService := &contract.Service{
			DB:        db,
			Renderer:  &contract.PDFRenderer{Dir: cfg.ContractsDir, BaseURL: cfg.ContractsBaseURL},
			Directory: &contract.HTTPDirectory{BaseURL: cfg.AuthServiceURL},
			Clock:     clock.Real{},
		}
		contractHandlers := &contract.Handlers{Service: contractService, PdfDir: cfg.ContractsDir}

		conGroup := app.Group("/api/contracts")
		conGroup.Post("/", contractHandlers.CreateContract)
		conGroup.Get("/", contractHandlers.GetAllContracts)
		conGroup.Get("/stats/overview", contractHandlers.GetContractStats)
		conGroup.Get("/status/:status", contractHandlers.GetContractsByStatus)
		conGroup.Get("/client/:clientId", contractHandlers.GetClientContracts)
		conGroup.Get("/:contractId/download-pdf", contractHandlers.DownloadContractPDF)
		conGroup.Get("/:contractId", contractHandlers.GetContract)
		conGroup.Post("/:contractId/sign", contractHandlers.SignContract)
		conGroup.Post("/:contractId/generate-pdf", contractHandlers.GenerateContractPDF)
		conGroup.Put("/:contractId/status", contractHandlers.UpdateContractStatus)
		conGroup.Put("/:contractId/rules", contractHandlers.UpdateContractRules)
		conGroup.Delete("/:contractId", contractHandlers.DeleteContract)

		reaper = &reservation.Reaper{
			Service:  reservationService,
			Interval: time.Duration(cfg.SweepIntervalSec) * time.Second,
		}
	}

	return app, db, rdb, reaper, nil
}

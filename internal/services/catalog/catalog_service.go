package catalog

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/seedbuilders/agency-portal-api/internal/config"
	"github.com/seedbuilders/agency-portal-api/internal/db"
	"github.com/seedbuilders/agency-portal-api/internal/models"
	"github.com/seedbuilders/agency-portal-api/internal/utils"
)

// CatalogService serves the agency's service catalogue and plans.
type CatalogService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(cfg *config.Config) *CatalogService {
	return &CatalogService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetServices returns all services in the catalogue.
func (s *CatalogService) GetServices(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, description, created_at
		FROM services
		ORDER BY title
	`)
	if err != nil {
		log.Printf("Failed to query services: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load services"})
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Title, &svc.Description, &svc.CreatedAt); err != nil {
			log.Printf("Failed to scan service row: %v", err)
			continue
		}
		services = append(services, svc)
	}

	return c.JSON(fiber.Map{
		"services": services,
		"count":    len(services),
	})
}

// GetService returns one service together with its plans.
func (s *CatalogService) GetService(c fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var svc models.Service
	err = db.Pool.QueryRow(ctx, `
		SELECT id, title, description, created_at
		FROM services
		WHERE id = $1
	`, serviceID).Scan(&svc.ID, &svc.Title, &svc.Description, &svc.CreatedAt)

	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, service_id, name, amount_kobo, currency, features, created_at
		FROM plans
		WHERE service_id = $1
		ORDER BY amount_kobo
	`, serviceID)
	if err != nil {
		log.Printf("Failed to query plans: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load plans"})
	}
	defer rows.Close()

	for rows.Next() {
		var plan models.Plan
		if err := rows.Scan(&plan.ID, &plan.ServiceID, &plan.Name, &plan.AmountKobo,
			&plan.Currency, &plan.Features, &plan.CreatedAt); err != nil {
			log.Printf("Failed to scan plan row: %v", err)
			continue
		}
		svc.Plans = append(svc.Plans, plan)
	}

	return c.JSON(fiber.Map{"service": svc})
}

package servicerequest

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seedbuilders/agency-portal-api/internal/config"
	"github.com/seedbuilders/agency-portal-api/internal/db"
	"github.com/seedbuilders/agency-portal-api/internal/models"
	"github.com/seedbuilders/agency-portal-api/internal/utils"
)

// ServiceRequestService handles the lifecycle of client service requests.
type ServiceRequestService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewServiceRequestService creates a new ServiceRequestService instance.
func NewServiceRequestService(cfg *config.Config) *ServiceRequestService {
	return &ServiceRequestService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateServiceRequest creates a new request in PENDING_APPROVAL together
// with its conversation thread. The two rows are written in one transaction
// so every request always has exactly one conversation.
func (s *ServiceRequestService) CreateServiceRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var requestData struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ServiceID   string `json:"service_id,omitempty"`
		PlanID      string `json:"plan_id,omitempty"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Failed to read request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	requestData.Title = strings.TrimSpace(requestData.Title)
	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}

	var serviceUUID, planUUID *uuid.UUID
	if requestData.ServiceID != "" {
		parsed, err := uuid.Parse(requestData.ServiceID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service ID"})
		}
		serviceUUID = &parsed
	}
	if requestData.PlanID != "" {
		parsed, err := uuid.Parse(requestData.PlanID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid plan ID"})
		}
		planUUID = &parsed
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Failed to begin transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	defer tx.Rollback(ctx)

	requestID := uuid.New()
	conversationID := uuid.New()
	now := time.Now()

	_, err = tx.Exec(ctx, `
		INSERT INTO service_requests (id, user_id, service_id, plan_id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, requestID, userUUID, serviceUUID, planUUID, requestData.Title, requestData.Description,
		models.StatusPendingApproval, now, now)

	if err != nil {
		log.Printf("Failed to create service request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create service request"})
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (id, service_request_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, conversationID, requestID, now, now)

	if err != nil {
		log.Printf("Failed to create conversation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create conversation"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Failed to commit transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"service_request": models.ServiceRequest{
			ID:          requestID,
			UserID:      userUUID,
			ServiceID:   serviceUUID,
			PlanID:      planUUID,
			Title:       requestData.Title,
			Description: requestData.Description,
			Status:      models.StatusPendingApproval,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		"conversation_id": conversationID,
		"success":         true,
	})
}

// GetServiceRequest returns one request; only the owner or an admin may see it.
func (s *ServiceRequestService) GetServiceRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	role, _ := c.Locals("role").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	requestUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service request ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var req models.ServiceRequest
	err = db.Pool.QueryRow(ctx, `
		SELECT id, user_id, service_id, plan_id, title, description, status, created_at, updated_at
		FROM service_requests
		WHERE id = $1
	`, requestUUID).Scan(&req.ID, &req.UserID, &req.ServiceID, &req.PlanID, &req.Title,
		&req.Description, &req.Status, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service request not found"})
		}
		log.Printf("Failed to query service request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load service request"})
	}

	if req.UserID != userUUID && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this service request"})
	}

	return c.JSON(fiber.Map{"service_request": req})
}

// GetServiceRequests returns the caller's requests.
func (s *ServiceRequestService) GetServiceRequests(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, service_id, plan_id, title, description, status, created_at, updated_at
		FROM service_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userUUID)
	if err != nil {
		log.Printf("Failed to query service requests: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load service requests"})
	}
	defer rows.Close()

	requests := scanServiceRequests(rows)

	return c.JSON(fiber.Map{
		"service_requests": requests,
		"count":            len(requests),
	})
}

// GetAllServiceRequests returns every request in the system (admin only).
func (s *ServiceRequestService) GetAllServiceRequests(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, service_id, plan_id, title, description, status, created_at, updated_at
		FROM service_requests
		ORDER BY created_at DESC
	`)
	if err != nil {
		log.Printf("Failed to query service requests: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load service requests"})
	}
	defer rows.Close()

	requests := scanServiceRequests(rows)

	return c.JSON(fiber.Map{
		"service_requests": requests,
		"count":            len(requests),
	})
}

// UpdateStatus moves a request to a new status (admin only). Completed and
// cancelled requests are terminal and reject further transitions.
func (s *ServiceRequestService) UpdateStatus(c fiber.Ctx) error {
	requestUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service request ID"})
	}

	var requestData struct {
		Status string `json:"status"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if !models.ValidStatus(requestData.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown status"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var currentStatus string
	err = db.Pool.QueryRow(ctx, `
		SELECT status FROM service_requests WHERE id = $1
	`, requestUUID).Scan(&currentStatus)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service request not found"})
		}
		log.Printf("Failed to query service request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load service request"})
	}

	if models.TerminalStatus(currentStatus) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Service request is already " + currentStatus})
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE service_requests
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, requestData.Status, time.Now(), requestUUID)

	if err != nil {
		log.Printf("Failed to update status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update status"})
	}

	return c.JSON(fiber.Map{
		"status":  requestData.Status,
		"success": true,
	})
}

// scanServiceRequests collects rows into a slice, skipping bad rows.
func scanServiceRequests(rows pgx.Rows) []models.ServiceRequest {
	var requests []models.ServiceRequest
	for rows.Next() {
		var req models.ServiceRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.ServiceID, &req.PlanID, &req.Title,
			&req.Description, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			log.Printf("Failed to scan service request row: %v", err)
			continue
		}
		requests = append(requests, req)
	}
	return requests
}

package invoice

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
	"github.com/seedbuilders/agency-portal-api/internal/payments"
	"github.com/seedbuilders/agency-portal-api/internal/utils"
)

// InvoiceService raises invoices against service requests and drives
// payment initiation through Paystack.
type InvoiceService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	paystack   *payments.Client
}

// NewInvoiceService creates a new InvoiceService instance.
func NewInvoiceService(cfg *config.Config) *InvoiceService {
	return &InvoiceService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		paystack:   payments.NewClient(cfg.PaystackConfig.SecretKey),
	}
}

// CreateInvoice raises an invoice for a service request (admin only).
func (s *InvoiceService) CreateInvoice(c fiber.Ctx) error {
	var requestData struct {
		ServiceRequestID string `json:"service_request_id"`
		AmountKobo       int64  `json:"amount_kobo"`
		Currency         string `json:"currency"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	requestUUID, err := uuid.Parse(requestData.ServiceRequestID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service request ID"})
	}

	if requestData.AmountKobo <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}

	currency := strings.ToUpper(requestData.Currency)
	if currency == "" {
		currency = "NGN"
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		SELECT user_id FROM service_requests WHERE id = $1
	`, requestUUID).Scan(&ownerID)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service request not found"})
		}
		log.Printf("Failed to look up service request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create invoice"})
	}

	invoice := models.Invoice{
		ID:               uuid.New(),
		ServiceRequestID: requestUUID,
		UserID:           ownerID,
		Reference:        "INV-" + uuid.NewString(),
		AmountKobo:       requestData.AmountKobo,
		Currency:         currency,
		Status:           models.InvoicePending,
		CreatedAt:        time.Now(),
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO invoices (id, service_request_id, user_id, reference, amount_kobo, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, invoice.ID, invoice.ServiceRequestID, invoice.UserID, invoice.Reference,
		invoice.AmountKobo, invoice.Currency, invoice.Status, invoice.CreatedAt)

	if err != nil {
		log.Printf("Failed to insert invoice: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create invoice"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"invoice": invoice,
		"success": true,
	})
}

// GetInvoices returns the caller's invoices.
func (s *InvoiceService) GetInvoices(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, service_request_id, user_id, reference, amount_kobo, currency, status, payment_url, created_at, paid_at
		FROM invoices
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userUUID)
	if err != nil {
		log.Printf("Failed to query invoices: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load invoices"})
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		var paymentURL *string
		if err := rows.Scan(&inv.ID, &inv.ServiceRequestID, &inv.UserID, &inv.Reference,
			&inv.AmountKobo, &inv.Currency, &inv.Status, &paymentURL, &inv.CreatedAt, &inv.PaidAt); err != nil {
			log.Printf("Failed to scan invoice row: %v", err)
			continue
		}
		if paymentURL != nil {
			inv.PaymentURL = *paymentURL
		}
		invoices = append(invoices, inv)
	}

	return c.JSON(fiber.Map{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// InitiatePayment starts a Paystack transaction for an invoice and returns
// the authorization URL the client is redirected to.
func (s *InvoiceService) InitiatePayment(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	invoiceUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid invoice ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var inv models.Invoice
	err = db.Pool.QueryRow(ctx, `
		SELECT id, user_id, reference, amount_kobo, currency, status
		FROM invoices
		WHERE id = $1
	`, invoiceUUID).Scan(&inv.ID, &inv.UserID, &inv.Reference, &inv.AmountKobo, &inv.Currency, &inv.Status)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invoice not found"})
		}
		log.Printf("Failed to look up invoice: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to initiate payment"})
	}

	if inv.UserID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this invoice"})
	}

	if inv.Status == models.InvoicePaid {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Invoice is already paid"})
	}

	user, err := db.GetUserByID(userUUID)
	if err != nil {
		log.Printf("Failed to look up user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to initiate payment"})
	}

	// The invoice reference doubles as the Paystack reference, so retrying
	// initiation never produces a second charge.
	data, err := s.paystack.InitializeTransaction(ctx, payments.InitializeRequest{
		Email:       user.Email,
		Amount:      inv.AmountKobo,
		Currency:    inv.Currency,
		Reference:   inv.Reference,
		CallbackURL: s.cfg.PaystackConfig.CallbackURL,
	})
	if err != nil {
		log.Printf("Failed to initialize Paystack transaction: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider is unavailable"})
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE invoices SET payment_url = $1 WHERE id = $2
	`, data.AuthorizationURL, invoiceUUID)
	if err != nil {
		log.Printf("Failed to store payment URL: %v", err)
	}

	return c.JSON(fiber.Map{
		"authorization_url": data.AuthorizationURL,
		"reference":         data.Reference,
		"success":           true,
	})
}

// VerifyPayment checks the transaction state with Paystack and marks the
// invoice paid on success.
func (s *InvoiceService) VerifyPayment(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	invoiceUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid invoice ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var reference string
	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		SELECT reference, user_id FROM invoices WHERE id = $1
	`, invoiceUUID).Scan(&reference, &ownerID)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invoice not found"})
		}
		log.Printf("Failed to look up invoice: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify payment"})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this invoice"})
	}

	data, err := s.paystack.VerifyTransaction(ctx, reference)
	if err != nil {
		log.Printf("Failed to verify Paystack transaction: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider is unavailable"})
	}

	if data.Status == "success" {
		paidAt := time.Now()
		if data.PaidAt != nil {
			paidAt = *data.PaidAt
		}
		_, err = db.Pool.Exec(ctx, `
			UPDATE invoices SET status = $1, paid_at = $2 WHERE id = $3
		`, models.InvoicePaid, paidAt, invoiceUUID)
		if err != nil {
			log.Printf("Failed to mark invoice paid: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record payment"})
		}
	}

	return c.JSON(fiber.Map{
		"status":  data.Status,
		"paid":    data.Status == "success",
		"success": true,
	})
}

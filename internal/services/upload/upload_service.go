package upload

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/seedbuilders/agency-portal-api/internal/config"
	"github.com/seedbuilders/agency-portal-api/internal/utils"
)

// UploadService issues signed Cloudinary upload parameters so the portal's
// multi-step request forms can attach briefs and creative assets directly.
type UploadService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewUploadService creates a new UploadService instance.
func NewUploadService(cfg *config.Config) *UploadService {
	return &UploadService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GenerateUploadParams returns a signed parameter set for a direct upload.
func (s *UploadService) GenerateUploadParams(c fiber.Ctx) error {
	// Attachments are grouped per service request; generate an id when the
	// form has not created the request yet.
	requestID := c.Query("request_id")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	folder := s.cfg.CloudinaryConfig.UploadFolder + "/" + requestID

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", folder)
	params.Set("upload_preset", s.cfg.CloudinaryConfig.UploadPreset)

	signature, err := api.SignParameters(params, s.cfg.CloudinaryConfig.APISecret)
	if err != nil {
		log.Printf("Failed to sign upload params: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign upload parameters"})
	}

	return c.JSON(fiber.Map{
		"timestamp":     timestamp,
		"signature":     signature,
		"api_key":       s.cfg.CloudinaryConfig.APIKey,
		"cloud_name":    s.cfg.CloudinaryConfig.CloudName,
		"folder":        folder,
		"upload_preset": s.cfg.CloudinaryConfig.UploadPreset,
		"request_id":    requestID,
	})
}

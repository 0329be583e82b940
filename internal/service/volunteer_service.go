package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

type volunteerRepository interface {
	List(ctx context.Context) ([]models.Volunteer, error)
	FindByName(ctx context.Context, name string) (*models.Volunteer, error)
	Create(ctx context.Context, volunteer *models.Volunteer) error
}

// VolunteerService manages the volunteer roster. Names are the identity key;
// there are no accounts or passwords.
type VolunteerService struct {
	repo      volunteerRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVolunteerService constructs the service.
func NewVolunteerService(repo volunteerRepository, validate *validator.Validate, logger *zap.Logger) *VolunteerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolunteerService{repo: repo, validator: validate, logger: logger}
}

// CreateVolunteerRequest describes the registration payload.
type CreateVolunteerRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=120"`
	IsAdmin bool   `json:"is_admin"`
}

// List returns all volunteers.
func (s *VolunteerService) List(ctx context.Context) ([]models.Volunteer, error) {
	volunteers, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to list volunteers")
	}
	return volunteers, nil
}

// Create registers a new volunteer name.
func (s *VolunteerService) Create(ctx context.Context, req CreateVolunteerRequest) (*models.Volunteer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid volunteer payload")
	}

	if existing, err := s.repo.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "volunteer name already registered")
	} else if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to check volunteer name")
	}

	volunteer := &models.Volunteer{Name: req.Name, IsAdmin: req.IsAdmin}
	if err := s.repo.Create(ctx, volunteer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to create volunteer")
	}
	s.logger.Info("volunteer registered", zap.String("name", volunteer.Name), zap.Bool("is_admin", volunteer.IsAdmin))
	return volunteer, nil
}

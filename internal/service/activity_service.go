package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

type activityRepository interface {
	List(ctx context.Context) ([]models.ActivityType, error)
	FindByName(ctx context.Context, name string) (*models.ActivityType, error)
	Create(ctx context.Context, activity *models.ActivityType) error
}

// ActivityService manages activity types. Slots reference them by name.
type ActivityService struct {
	repo      activityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs the service.
func NewActivityService(repo activityRepository, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, validator: validate, logger: logger}
}

// CreateActivityRequest describes the admin payload for a new activity type.
type CreateActivityRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// List returns all activity types.
func (s *ActivityService) List(ctx context.Context) ([]models.ActivityType, error) {
	activities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to list activity types")
	}
	return activities, nil
}

// Create registers a new activity type.
func (s *ActivityService) Create(ctx context.Context, req CreateActivityRequest) (*models.ActivityType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity type payload")
	}

	if existing, err := s.repo.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity type already exists")
	} else if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to check activity type name")
	}

	activity := &models.ActivityType{Name: req.Name, Description: req.Description, Color: req.Color}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to create activity type")
	}
	s.logger.Info("activity type created", zap.String("name", activity.Name))
	return activity, nil
}

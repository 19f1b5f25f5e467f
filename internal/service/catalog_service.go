package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type catalogRepository interface {
	ListBranches(ctx context.Context) ([]models.Branch, error)
	FindBranchByID(ctx context.Context, id string) (*models.Branch, error)
	CreateBranch(ctx context.Context, branch *models.Branch) error
	UpdateBranch(ctx context.Context, branch *models.Branch) error
	ListSources(ctx context.Context) ([]models.EnquirySource, error)
	CreateSource(ctx context.Context, source *models.EnquirySource) error
	UpdateSource(ctx context.Context, source *models.EnquirySource) error
	ListCourses(ctx context.Context) ([]models.Course, error)
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	ListServices(ctx context.Context) ([]models.Service, error)
	FindServiceByID(ctx context.Context, id string) (*models.Service, error)
	CreateService(ctx context.Context, service *models.Service) error
	UpdateService(ctx context.Context, service *models.Service) error
}

// BranchRequest creates or updates a branch.
type BranchRequest struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

// SourceRequest creates or updates an enquiry source.
type SourceRequest struct {
	Name   string `json:"name" validate:"required"`
	Active *bool  `json:"active,omitempty"`
}

// CourseRequest creates or updates a course.
type CourseRequest struct {
	Name           string  `json:"name" validate:"required"`
	DurationMonths *int    `json:"duration_months,omitempty" validate:"omitempty,min=1"`
	Fee            float64 `json:"fee" validate:"gte=0"`
	Active         *bool   `json:"active,omitempty"`
}

// ServiceRequest creates or updates a billable service.
type ServiceRequest struct {
	Name   string  `json:"name" validate:"required"`
	Price  float64 `json:"price" validate:"gte=0"`
	Active *bool   `json:"active,omitempty"`
}

// CatalogService manages master data: branches, enquiry sources, courses and
// billable services.
type CatalogService struct {
	repo      catalogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, validator: validate, logger: logger}
}

// ListBranches returns all branches.
func (s *CatalogService) ListBranches(ctx context.Context) ([]models.Branch, error) {
	branches, err := s.repo.ListBranches(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
	}
	return branches, nil
}

// CreateBranch adds a branch.
func (s *CatalogService) CreateBranch(ctx context.Context, req BranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}
	branch := &models.Branch{Name: req.Name, Address: req.Address, Phone: req.Phone, Active: activeOrDefault(req.Active)}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create branch")
	}
	return branch, nil
}

// UpdateBranch rewrites a branch.
func (s *CatalogService) UpdateBranch(ctx context.Context, id string, req BranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}
	branch, err := s.repo.FindBranchByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	branch.Name = req.Name
	branch.Address = req.Address
	branch.Phone = req.Phone
	if req.Active != nil {
		branch.Active = *req.Active
	}
	if err := s.repo.UpdateBranch(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update branch")
	}
	return branch, nil
}

// ListSources returns all enquiry sources.
func (s *CatalogService) ListSources(ctx context.Context) ([]models.EnquirySource, error) {
	sources, err := s.repo.ListSources(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enquiry sources")
	}
	return sources, nil
}

// CreateSource adds an enquiry source.
func (s *CatalogService) CreateSource(ctx context.Context, req SourceRequest) (*models.EnquirySource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid source payload")
	}
	source := &models.EnquirySource{Name: req.Name, Active: activeOrDefault(req.Active)}
	if err := s.repo.CreateSource(ctx, source); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enquiry source")
	}
	return source, nil
}

// ListCourses returns all courses.
func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// CreateCourse adds a course.
func (s *CatalogService) CreateCourse(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Name: req.Name, DurationMonths: req.DurationMonths, Fee: req.Fee, Active: activeOrDefault(req.Active)}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// UpdateCourse rewrites a course.
func (s *CatalogService) UpdateCourse(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindCourseByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	course.Name = req.Name
	course.DurationMonths = req.DurationMonths
	course.Fee = req.Fee
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// ListServices returns all billable services.
func (s *CatalogService) ListServices(ctx context.Context) ([]models.Service, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list services")
	}
	return services, nil
}

// CreateService adds a billable service.
func (s *CatalogService) CreateService(ctx context.Context, req ServiceRequest) (*models.Service, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}
	service := &models.Service{Name: req.Name, Price: req.Price, Active: activeOrDefault(req.Active)}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service")
	}
	return service, nil
}

// UpdateService rewrites a billable service.
func (s *CatalogService) UpdateService(ctx context.Context, id string, req ServiceRequest) (*models.Service, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}
	service, err := s.repo.FindServiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
	}
	service.Name = req.Name
	service.Price = req.Price
	if req.Active != nil {
		service.Active = *req.Active
	}
	if err := s.repo.UpdateService(ctx, service); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update service")
	}
	return service, nil
}

func activeOrDefault(active *bool) bool {
	if active == nil {
		return true
	}
	return *active
}

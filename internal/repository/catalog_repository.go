package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// CatalogRepository persists the master-data entities: branches, enquiry
// sources, courses and services.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListBranches returns all branches ordered by name.
func (r *CatalogRepository) ListBranches(ctx context.Context) ([]models.Branch, error) {
	const query = `SELECT id, name, address, phone, active, created_at, updated_at FROM branches ORDER BY name ASC`
	var branches []models.Branch
	if err := r.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

// FindBranchByID returns a branch by its ID.
func (r *CatalogRepository) FindBranchByID(ctx context.Context, id string) (*models.Branch, error) {
	const query = `SELECT id, name, address, phone, active, created_at, updated_at FROM branches WHERE id = $1`
	var branch models.Branch
	if err := r.db.GetContext(ctx, &branch, query, id); err != nil {
		return nil, err
	}
	return &branch, nil
}

// CreateBranch persists a new branch.
func (r *CatalogRepository) CreateBranch(ctx context.Context, branch *models.Branch) error {
	prepareCatalogRow(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
	const query = `INSERT INTO branches (id, name, address, phone, active, created_at, updated_at)
	VALUES (:id, :name, :address, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// UpdateBranch rewrites a branch record.
func (r *CatalogRepository) UpdateBranch(ctx context.Context, branch *models.Branch) error {
	branch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE branches SET name = :name, address = :address, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	return nil
}

// ListSources returns all enquiry sources ordered by name.
func (r *CatalogRepository) ListSources(ctx context.Context) ([]models.EnquirySource, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM enquiry_sources ORDER BY name ASC`
	var sources []models.EnquirySource
	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list enquiry sources: %w", err)
	}
	return sources, nil
}

// CreateSource persists a new enquiry source.
func (r *CatalogRepository) CreateSource(ctx context.Context, source *models.EnquirySource) error {
	prepareCatalogRow(&source.ID, &source.CreatedAt, &source.UpdatedAt)
	const query = `INSERT INTO enquiry_sources (id, name, active, created_at, updated_at)
	VALUES (:id, :name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, source); err != nil {
		return fmt.Errorf("create enquiry source: %w", err)
	}
	return nil
}

// UpdateSource rewrites an enquiry source record.
func (r *CatalogRepository) UpdateSource(ctx context.Context, source *models.EnquirySource) error {
	source.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enquiry_sources SET name = :name, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, source); err != nil {
		return fmt.Errorf("update enquiry source: %w", err)
	}
	return nil
}

// ListCourses returns all courses ordered by name.
func (r *CatalogRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, duration_months, fee, active, created_at, updated_at FROM courses ORDER BY name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindCourseByID returns a course by its ID.
func (r *CatalogRepository) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, duration_months, fee, active, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse persists a new course.
func (r *CatalogRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	prepareCatalogRow(&course.ID, &course.CreatedAt, &course.UpdatedAt)
	const query = `INSERT INTO courses (id, name, duration_months, fee, active, created_at, updated_at)
	VALUES (:id, :name, :duration_months, :fee, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateCourse rewrites a course record.
func (r *CatalogRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, duration_months = :duration_months, fee = :fee, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// ListServices returns all services ordered by name.
func (r *CatalogRepository) ListServices(ctx context.Context) ([]models.Service, error) {
	const query = `SELECT id, name, price, active, created_at, updated_at FROM services ORDER BY name ASC`
	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// FindServiceByID returns a service by its ID.
func (r *CatalogRepository) FindServiceByID(ctx context.Context, id string) (*models.Service, error) {
	const query = `SELECT id, name, price, active, created_at, updated_at FROM services WHERE id = $1`
	var service models.Service
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		return nil, err
	}
	return &service, nil
}

// CreateService persists a new service.
func (r *CatalogRepository) CreateService(ctx context.Context, service *models.Service) error {
	prepareCatalogRow(&service.ID, &service.CreatedAt, &service.UpdatedAt)
	const query = `INSERT INTO services (id, name, price, active, created_at, updated_at)
	VALUES (:id, :name, :price, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// UpdateService rewrites a service record.
func (r *CatalogRepository) UpdateService(ctx context.Context, service *models.Service) error {
	service.UpdatedAt = time.Now().UTC()
	const query = `UPDATE services SET name = :name, price = :price, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

func prepareCatalogRow(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

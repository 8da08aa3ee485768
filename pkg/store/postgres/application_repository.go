package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/loanflow/loanflow/pkg/model"
	"github.com/loanflow/loanflow/pkg/store"
)

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Save inserts new applications and updates existing ones guarded by their
// version. An update that matches no row returns store.ErrConcurrentUpdate.
func (r *ApplicationRepository) Save(ctx context.Context, app *model.Application) (*model.Application, error) {
	if app.ID == 0 {
		if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
			return nil, err
		}
		return app, nil
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ? AND version = ?", app.ID, app.Version).
		Updates(map[string]interface{}{
			"status":     app.Status,
			"version":    app.Version + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrConcurrentUpdate
	}

	saved := *app
	saved.Version++
	saved.UpdatedAt = now
	return &saved, nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id int64) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepository) ListByStatus(ctx context.Context, status model.ApplicationStatus, limit, offset int) ([]model.Application, error) {
	if limit <= 0 {
		limit = 50
	}
	var apps []model.Application
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&apps).Error
	return apps, err
}

type LoanTypeRepository struct {
	db *gorm.DB
}

func NewLoanTypeRepository(db *gorm.DB) *LoanTypeRepository {
	return &LoanTypeRepository{db: db}
}

func (r *LoanTypeRepository) FindByID(ctx context.Context, id int64) (*model.LoanType, error) {
	var loanType model.LoanType
	err := r.db.WithContext(ctx).First(&loanType, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &loanType, nil
}

func (r *LoanTypeRepository) List(ctx context.Context) ([]model.LoanType, error) {
	var loanTypes []model.LoanType
	err := r.db.WithContext(ctx).Order("id ASC").Find(&loanTypes).Error
	return loanTypes, err
}

func (r *LoanTypeRepository) Create(ctx context.Context, loanType *model.LoanType) error {
	err := r.db.WithContext(ctx).Create(loanType).Error
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

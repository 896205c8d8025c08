package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/errors"
)

type monitorRepository struct {
	db *gorm.DB
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(db *gorm.DB) MonitorRepository {
	return &monitorRepository{db: db}
}

func (r *monitorRepository) Get(ctx context.Context, id string) (*entities.Monitor, error) {
	var m entities.Monitor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(ErrMonitorNotFound, "monitor", id)
		}
		return nil, dbError(err, "get_monitor", "monitor_id", id)
	}
	return &m, nil
}

func (r *monitorRepository) ListByCompany(ctx context.Context, companyCode string) ([]*entities.Monitor, error) {
	var monitors []*entities.Monitor
	err := r.db.WithContext(ctx).
		Where("company_code = ?", companyCode).
		Order("id ASC").
		Find(&monitors).Error
	if err != nil {
		return nil, dbError(err, "list_monitors", "company_code", companyCode)
	}
	return monitors, nil
}

func (r *monitorRepository) Upsert(ctx context.Context, monitor *entities.Monitor) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(monitor).Error
	if err != nil {
		return dbError(err, "upsert_monitor", "monitor_id", monitor.ID)
	}
	return nil
}

type engineRepository struct {
	db *gorm.DB
}

// NewEngineRepository creates a new EngineRepository.
func NewEngineRepository(db *gorm.DB) EngineRepository {
	return &engineRepository{db: db}
}

func (r *engineRepository) Get(ctx context.Context, id string) (*entities.Engine, error) {
	var e entities.Engine
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(ErrEngineNotFound, "engine", id)
		}
		return nil, dbError(err, "get_engine", "engine_id", id)
	}
	return &e, nil
}

func (r *engineRepository) ListAll(ctx context.Context) ([]*entities.Engine, error) {
	var engines []*entities.Engine
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&engines).Error; err != nil {
		return nil, dbError(err, "list_engines")
	}
	return engines, nil
}

func (r *engineRepository) Upsert(ctx context.Context, engine *entities.Engine) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(engine).Error
	if err != nil {
		return dbError(err, "upsert_engine", "engine_id", engine.ID)
	}
	return nil
}

type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetByCode(ctx context.Context, companyCode string) (*entities.Company, error) {
	var c entities.Company
	if err := r.db.WithContext(ctx).Where("company_code = ?", companyCode).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(ErrCompanyNotFound, "company", companyCode)
		}
		return nil, dbError(err, "get_company", "company_code", companyCode)
	}
	return &c, nil
}

func (r *companyRepository) Upsert(ctx context.Context, company *entities.Company) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "locale", "updated_at"}),
		}).
		Create(company).Error
	if err != nil {
		return dbError(err, "upsert_company", "company_code", company.CompanyCode)
	}
	return nil
}

type notificationSettingsRepository struct {
	db *gorm.DB
}

// NewNotificationSettingsRepository creates a new NotificationSettingsRepository.
func NewNotificationSettingsRepository(db *gorm.DB) NotificationSettingsRepository {
	return &notificationSettingsRepository{db: db}
}

func (r *notificationSettingsRepository) GetByCompany(ctx context.Context, companyCode string) (*entities.NotificationSetting, error) {
	var s entities.NotificationSetting
	if err := r.db.WithContext(ctx).Where("company_code = ?", companyCode).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(ErrNotificationSettingsNotFound, "notification_settings", companyCode)
		}
		return nil, dbError(err, "get_notification_settings", "company_code", companyCode)
	}
	return &s, nil
}

func (r *notificationSettingsRepository) Upsert(ctx context.Context, setting *entities.NotificationSetting) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"telegram_group_id", "zalo_group_id", "telegram_enabled", "updated_at"}),
		}).
		Create(setting).Error
	if err != nil {
		return dbError(err, "upsert_notification_settings", "company_code", setting.CompanyCode)
	}
	return nil
}

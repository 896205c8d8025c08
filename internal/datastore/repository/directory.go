package repository

import (
	"context"

	"github.com/tphakala/securitas/internal/datastore/entities"
)

// MonitorRepository reads monitors.
type MonitorRepository interface {
	Get(ctx context.Context, id string) (*entities.Monitor, error)
	ListByCompany(ctx context.Context, companyCode string) ([]*entities.Monitor, error)
	Upsert(ctx context.Context, monitor *entities.Monitor) error
}

// EngineRepository reads the engine catalog.
type EngineRepository interface {
	Get(ctx context.Context, id string) (*entities.Engine, error)
	ListAll(ctx context.Context) ([]*entities.Engine, error)
	Upsert(ctx context.Context, engine *entities.Engine) error
}

// CompanyRepository reads companies by their business code.
type CompanyRepository interface {
	GetByCode(ctx context.Context, companyCode string) (*entities.Company, error)
	Upsert(ctx context.Context, company *entities.Company) error
}

// NotificationSettingsRepository reads per-company alert channel settings.
type NotificationSettingsRepository interface {
	GetByCompany(ctx context.Context, companyCode string) (*entities.NotificationSetting, error)
	Upsert(ctx context.Context, setting *entities.NotificationSetting) error
}

// Package directory defines the read-only collaborators the detection
// pipeline consults: monitors, engines, companies and per-company
// notification settings.
//
// The datastore repositories satisfy these interfaces directly. Cached wraps
// them with a TTL cache for the lookups made on every ingestion and dispatch.
// Returned entities are shared and must be treated as read-only.
package directory

import (
	"context"

	"github.com/tphakala/securitas/internal/datastore"
	"github.com/tphakala/securitas/internal/datastore/entities"
)

// MonitorDirectory resolves monitors. Get fails with a NotFound error.
type MonitorDirectory interface {
	Get(ctx context.Context, id string) (*entities.Monitor, error)
	ListByCompany(ctx context.Context, companyCode string) ([]*entities.Monitor, error)
}

// EngineCatalog resolves engine display metadata.
type EngineCatalog interface {
	Get(ctx context.Context, id string) (*entities.Engine, error)
	ListAll(ctx context.Context) ([]*entities.Engine, error)
}

// CompanyDirectory resolves companies by business code.
type CompanyDirectory interface {
	GetByCode(ctx context.Context, companyCode string) (*entities.Company, error)
}

// NotificationSettings resolves the alert channel settings of a company.
type NotificationSettings interface {
	GetByCompany(ctx context.Context, companyCode string) (*entities.NotificationSetting, error)
}

// Directory bundles all collaborators.
type Directory struct {
	Monitors  MonitorDirectory
	Engines   EngineCatalog
	Companies CompanyDirectory
	Settings  NotificationSettings
}

// FromStore returns a Directory backed directly by the store repositories.
func FromStore(store *datastore.Store) *Directory {
	return &Directory{
		Monitors:  store.Monitors,
		Engines:   store.Engines,
		Companies: store.Companies,
		Settings:  store.NotificationSettings,
	}
}

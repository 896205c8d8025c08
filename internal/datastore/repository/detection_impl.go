package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/errors"
)

const (
	detectionsTable = "detections"
	monitorsTable   = "monitors"
	companiesTable  = "companies"
)

// detectionRepository implements DetectionRepository.
type detectionRepository struct {
	db *gorm.DB
}

// NewDetectionRepository creates a new DetectionRepository.
func NewDetectionRepository(db *gorm.DB) DetectionRepository {
	return &detectionRepository{db: db}
}

// col qualifies a detections column so that joined queries stay unambiguous.
func col(name string) string {
	return detectionsTable + "." + name
}

// ============================================================================
// CRUD Operations
// ============================================================================

func (r *detectionRepository) Create(ctx context.Context, det *entities.Detection) error {
	if det.Version == 0 {
		det.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(det).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return conflictError(ErrDuplicateDetection, det.ID)
		}
		return dbError(err, "create_detection", "detection_id", det.ID)
	}
	return nil
}

func (r *detectionRepository) Get(ctx context.Context, id string) (*entities.Detection, error) {
	var det entities.Detection
	err := r.db.WithContext(ctx).Where(col("id")+" = ?", id).First(&det).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(ErrDetectionNotFound, "detection", id)
		}
		return nil, dbError(err, "get_detection", "detection_id", id)
	}
	return &det, nil
}

func (r *detectionRepository) GetMany(ctx context.Context, ids []string) ([]*entities.Detection, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var dets []*entities.Detection
	if err := r.db.WithContext(ctx).Where(col("id")+" IN ?", ids).Find(&dets).Error; err != nil {
		return nil, dbError(err, "get_detections", "count", len(ids))
	}
	return dets, nil
}

func (r *detectionRepository) Save(ctx context.Context, det *entities.Detection) error {
	prev := det.Version
	det.Version = prev + 1

	result := r.db.WithContext(ctx).
		Model(det).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(det)
	if result.Error != nil {
		det.Version = prev
		return dbError(result.Error, "save_detection", "detection_id", det.ID)
	}
	if result.RowsAffected == 0 {
		det.Version = prev
		return conflictError(ErrVersionConflict, det.ID)
	}
	return nil
}

func (r *detectionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Detection{})
	if result.Error != nil {
		return dbError(result.Error, "delete_detection", "detection_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError(ErrDetectionNotFound, "detection", id)
	}
	return nil
}

// ============================================================================
// Query Operations
// ============================================================================

// applyDetectionFilter adds the enumerated predicates to query.
func applyDetectionFilter(query *gorm.DB, filter *DetectionFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.MonitorID != "" {
		query = query.Where(col("monitor_id")+" = ?", filter.MonitorID)
	}
	if filter.EngineID != "" {
		query = query.Where(col("engine_id")+" = ?", filter.EngineID)
	}
	if filter.Status != nil {
		query = query.Where(col("status")+" = ?", *filter.Status)
	}
	if filter.FeedbackStatus != nil {
		query = query.Where(col("feedback_status")+" = ?", *filter.FeedbackStatus)
	}
	if filter.Approved != nil {
		query = query.Where(col("approved")+" = ?", *filter.Approved)
	}
	if filter.Alert != nil {
		query = query.Where(col("alert")+" = ?", *filter.Alert)
	}
	if filter.Unread != nil {
		query = query.Where(col("unread")+" = ?", *filter.Unread)
	}
	if filter.From != nil {
		query = query.Where(col("timestamp")+" >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where(col("timestamp")+" <= ?", filter.To.UTC())
	}
	if filter.District != "" {
		query = query.Where(col("district")+" = ?", filter.District)
	}
	if filter.SuspectedOffense != "" {
		query = query.Where(col("suspected_offense")+" = ?", filter.SuspectedOffense)
	}
	if filter.VehicleType != "" {
		query = query.Where(col("vehicle_type")+" = ?", filter.VehicleType)
	}
	if filter.LicensePlate != "" {
		query = query.Where(col("license_plate")+" LIKE ?", likePattern(filter.LicensePlate))
	}
	return query
}

// paginate applies newest-first ordering, limit and offset.
func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	query = query.Order(col("timestamp") + " DESC").Order(col("id") + " DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func (r *detectionRepository) List(ctx context.Context, filter *DetectionFilter, limit, offset int) ([]*entities.Detection, int64, error) {
	var dets []*entities.Detection
	var total int64

	query := applyDetectionFilter(r.db.WithContext(ctx).Model(&entities.Detection{}), filter)

	countQuery := query.Session(&gorm.Session{})
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "count_detections")
	}

	if err := paginate(query, limit, offset).Find(&dets).Error; err != nil {
		return nil, 0, dbError(err, "list_detections")
	}
	return dets, total, nil
}

func (r *detectionRepository) Search(ctx context.Context, filter *SearchFilter, limit, offset int) ([]*SearchResult, int64, error) {
	if filter == nil {
		filter = &SearchFilter{}
	}
	var results []*SearchResult
	var total int64

	query := r.db.WithContext(ctx).Table(detectionsTable).
		Joins(fmt.Sprintf("LEFT JOIN %s ON %s.id = %s",
			monitorsTable, monitorsTable, col("monitor_id"))).
		Joins(fmt.Sprintf("LEFT JOIN %s ON %s.company_code = %s.company_code",
			companiesTable, companiesTable, monitorsTable))

	query = applyDetectionFilter(query, &filter.DetectionFilter)

	if filter.DetectionID != "" {
		query = query.Where(col("id")+" = ?", filter.DetectionID)
	}
	if filter.CompanyCode != "" {
		query = query.Where(monitorsTable+".company_code = ?", filter.CompanyCode)
	}
	if filter.MonitorName != "" {
		query = query.Where(monitorsTable+".name LIKE ?", likePattern(filter.MonitorName))
	}
	if filter.CompanyName != "" {
		query = query.Where(companiesTable+".name LIKE ?", likePattern(filter.CompanyName))
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		query = query.Where(
			fmt.Sprintf("(%s LIKE ? OR %s.name LIKE ? OR %s.name LIKE ?)", col("id"), monitorsTable, companiesTable),
			pattern, pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "count_search")
	}

	selectQuery := query.Select(fmt.Sprintf("%s.*, %s.name AS monitor_name, %s.company_code AS company_code, %s.name AS company_name",
		detectionsTable, monitorsTable, monitorsTable, companiesTable))
	if err := paginate(selectQuery, limit, offset).Find(&results).Error; err != nil {
		return nil, 0, dbError(err, "search_detections")
	}
	return results, total, nil
}

func (r *detectionRepository) ListForMonitors(ctx context.Context, monitorIDs []string, from, to time.Time) ([]*entities.Detection, error) {
	if len(monitorIDs) == 0 {
		return nil, nil
	}
	var dets []*entities.Detection
	err := r.db.WithContext(ctx).
		Where(col("monitor_id")+" IN ?", monitorIDs).
		Where(col("timestamp")+" >= ? AND "+col("timestamp")+" <= ?", from.UTC(), to.UTC()).
		Order(col("timestamp") + " ASC").
		Order(col("id") + " ASC").
		Find(&dets).Error
	if err != nil {
		return nil, dbError(err, "list_detections_for_monitors", "monitor_count", len(monitorIDs))
	}
	return dets, nil
}

func (r *detectionRepository) Transaction(ctx context.Context, fn func(tx DetectionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&detectionRepository{db: tx})
	})
}

// likePattern wraps s for a substring LIKE match.
func likePattern(s string) string {
	return "%" + s + "%"
}

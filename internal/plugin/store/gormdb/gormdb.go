// Package gormdb implements RecordStore over GORM, registered twice: as the
// "postgres" plugin for deployments that already run Postgres, and as the
// "sqlite" plugin for single-node installs. Primary keys are UUIDs (the
// canonical 36-char form the dual-key resolver classifies).
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/firedesk/records-service/internal/config"
	"github.com/firedesk/records-service/internal/model"
	registrymigrate "github.com/firedesk/records-service/internal/registry/migrate"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	registrystore.Register(registrystore.Plugin{Name: "postgres", Loader: loaderFor("postgres")})
	registrystore.Register(registrystore.Plugin{Name: "sqlite", Loader: loaderFor("sqlite")})
	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &gormMigrator{}})
}

func dialector(kind, dbURL string) gorm.Dialector {
	if kind == "sqlite" {
		return sqlite.Open(dbURL)
	}
	return postgres.Open(dbURL)
}

func loaderFor(kind string) registrystore.Loader {
	return func(ctx context.Context) (registrystore.RecordStore, error) {
		cfg := config.FromContext(ctx)
		db, err := gorm.Open(dialector(kind, cfg.DBURL), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", kind, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying db: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		return &GormStore{db: db}, nil
	}
}

type gormMigrator struct{}

func (m *gormMigrator) Name() string { return "sql-schema" }

func (m *gormMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || (cfg.DatastoreType != "postgres" && cfg.DatastoreType != "sqlite") {
		return nil // skip if not using a SQL backend
	}
	if !cfg.DatastoreMigrateAtStart {
		return nil
	}

	log.Info("Running migration", "name", m.Name())
	db, err := gorm.Open(dialector(cfg.DatastoreType, cfg.DBURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("sql migration: failed to connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.WithContext(ctx).AutoMigrate(&recordRow{}, &counterRow{}); err != nil {
		return fmt.Errorf("sql migration: auto-migrate: %w", err)
	}
	log.Info("SQL schema migration complete")
	return nil
}

// GormStore implements RecordStore using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewWithDB wraps an already-open GORM handle. Used by tests.
func NewWithDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

type recordRow struct {
	ID               string              `gorm:"column:id;primaryKey;size:36"`
	Kind             string              `gorm:"column:kind;size:32;index:idx_records_kind_created,priority:1"`
	BusinessID       string              `gorm:"column:business_id;size:64;uniqueIndex"`
	BuildingType     string              `gorm:"column:building_type"`
	BuildingName     string              `gorm:"column:building_name"`
	Address          string              `gorm:"column:address"`
	OwnerName        string              `gorm:"column:owner_name"`
	Contact          string              `gorm:"column:contact"`
	Floors           int                 `gorm:"column:floors"`
	MaxOccupancy     int                 `gorm:"column:max_occupancy"`
	ConstructionYear int                 `gorm:"column:construction_year"`
	Checklist        model.Checklist     `gorm:"column:checklist;serializer:json"`
	Attachments      model.AttachmentSet `gorm:"column:attachments;serializer:json"`
	Status           string              `gorm:"column:status;size:16;index"`
	Remarks          string              `gorm:"column:remarks"`
	ReviewedBy       string              `gorm:"column:reviewed_by"`
	CreatedAt        time.Time           `gorm:"column:created_at;index:idx_records_kind_created,priority:2"`
	LastUpdated      time.Time           `gorm:"column:last_updated"`
}

func (recordRow) TableName() string { return "records" }

type counterRow struct {
	Name string `gorm:"column:name;primaryKey;size:64"`
	Seq  int64  `gorm:"column:seq;not null"`
}

func (counterRow) TableName() string { return "counters" }

func toRow(rec *model.Record) *recordRow {
	return &recordRow{
		ID:               rec.ID,
		Kind:             string(rec.Kind),
		BusinessID:       rec.BusinessID,
		BuildingType:     rec.Subject.BuildingType,
		BuildingName:     rec.Subject.BuildingName,
		Address:          rec.Subject.Address,
		OwnerName:        rec.Subject.OwnerName,
		Contact:          rec.Subject.Contact,
		Floors:           rec.Subject.Floors,
		MaxOccupancy:     rec.Subject.MaxOccupancy,
		ConstructionYear: rec.Subject.ConstructionYear,
		Checklist:        rec.Checklist,
		Attachments:      rec.Attachments,
		Status:           string(rec.Status),
		Remarks:          rec.Remarks,
		ReviewedBy:       rec.ReviewedBy,
		CreatedAt:        rec.CreatedAt,
		LastUpdated:      rec.LastUpdated,
	}
}

func (r *recordRow) toModel() *model.Record {
	return &model.Record{
		ID:         r.ID,
		Kind:       model.RecordKind(r.Kind),
		BusinessID: r.BusinessID,
		Subject: model.Subject{
			BuildingType:     r.BuildingType,
			BuildingName:     r.BuildingName,
			Address:          r.Address,
			OwnerName:        r.OwnerName,
			Contact:          r.Contact,
			Floors:           r.Floors,
			MaxOccupancy:     r.MaxOccupancy,
			ConstructionYear: r.ConstructionYear,
		},
		Checklist:   r.Checklist,
		Attachments: r.Attachments,
		Status:      model.Status(r.Status),
		Remarks:     r.Remarks,
		ReviewedBy:  r.ReviewedBy,
		CreatedAt:   r.CreatedAt,
		LastUpdated: r.LastUpdated,
	}
}

func (s *GormStore) Insert(ctx context.Context, rec *model.Record) (*model.Record, error) {
	row := toRow(rec)
	row.ID = uuid.New().String()
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &registrystore.ConflictError{Message: "business identifier already exists: " + rec.BusinessID}
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return row.toModel(), nil
}

func (s *GormStore) FindByKey(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	return s.findOne(ctx, "id = ? AND kind = ?", key, kind)
}

func (s *GormStore) FindByBusinessID(ctx context.Context, kind model.RecordKind, businessID string) (*model.Record, error) {
	return s.findOne(ctx, "business_id = ? AND kind = ?", businessID, kind)
}

func (s *GormStore) findOne(ctx context.Context, query string, id string, kind model.RecordKind) (*model.Record, error) {
	var row recordRow
	if err := s.db.WithContext(ctx).First(&row, query, id, string(kind)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &registrystore.NotFoundError{Resource: "record", ID: id}
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return row.toModel(), nil
}

func (s *GormStore) List(ctx context.Context, q registrystore.ListQuery) ([]model.Record, error) {
	tx := s.db.WithContext(ctx).Where("kind = ?", string(q.Kind))
	if q.Status != nil {
		tx = tx.Where("status = ?", string(*q.Status))
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		tx = tx.Where(
			"LOWER(business_id) LIKE ? OR LOWER(building_name) LIKE ? OR LOWER(owner_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	tx = tx.Order("created_at DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []recordRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]model.Record, len(rows))
	for i := range rows {
		out[i] = *rows[i].toModel()
	}
	return out, nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, kind model.RecordKind, key string, patch registrystore.StatusPatch) (*model.Record, error) {
	set := map[string]any{
		"status":       string(patch.Status),
		"last_updated": time.Now(),
	}
	if patch.Remarks != nil {
		set["remarks"] = *patch.Remarks
	}
	if patch.ReviewedBy != nil {
		set["reviewed_by"] = *patch.ReviewedBy
	}
	return s.updateAndReload(ctx, kind, key, set)
}

func (s *GormStore) UpdateSubject(ctx context.Context, kind model.RecordKind, key string, subject model.Subject, checklist model.Checklist) (*model.Record, error) {
	return s.updateAndReload(ctx, kind, key, map[string]any{
		"building_type":     subject.BuildingType,
		"building_name":     subject.BuildingName,
		"address":           subject.Address,
		"owner_name":        subject.OwnerName,
		"contact":           subject.Contact,
		"floors":            subject.Floors,
		"max_occupancy":     subject.MaxOccupancy,
		"construction_year": subject.ConstructionYear,
		"checklist":         checklist,
		"last_updated":      time.Now(),
	})
}

func (s *GormStore) updateAndReload(ctx context.Context, kind model.RecordKind, key string, set map[string]any) (*model.Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&recordRow{}).
			Where("id = ? AND kind = ?", key, string(kind)).
			Updates(set)
		if res.Error != nil {
			return fmt.Errorf("update record: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &registrystore.NotFoundError{Resource: "record", ID: key}
		}
		return tx.First(&row, "id = ?", key).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *GormStore) Delete(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ? AND kind = ?", key, string(kind)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &registrystore.NotFoundError{Resource: "record", ID: key}
			}
			return fmt.Errorf("find record: %w", err)
		}
		return tx.Delete(&recordRow{}, "id = ?", key).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *GormStore) CountByStatus(ctx context.Context, kind model.RecordKind) (*registrystore.StatusCounts, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Select("status, COUNT(*) AS count").
		Where("kind = ?", string(kind)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	counts := &registrystore.StatusCounts{ByStatus: map[model.Status]int64{}}
	for _, status := range model.Statuses() {
		counts.ByStatus[status] = 0
	}
	for _, row := range rows {
		counts.ByStatus[model.Status(row.Status)] = row.Count
		counts.Total += row.Count
	}
	return counts, nil
}

// NextSequence atomically increments the named counter. The increment is a
// single UPDATE, so the row lock (Postgres) or serialized writer (SQLite)
// makes concurrent reservations distinct; first use creates the row and
// retries once if another request won the creation race.
func (s *GormStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&counterRow{}).
			Where("name = ?", name).
			UpdateColumn("seq", gorm.Expr("seq + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&counterRow{Name: name, Seq: 1}).Error; err == nil {
				seq = 1
				return nil
			} else if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			if err := tx.Model(&counterRow{}).
				Where("name = ?", name).
				UpdateColumn("seq", gorm.Expr("seq + 1")).Error; err != nil {
				return err
			}
		}
		var row counterRow
		if err := tx.First(&row, "name = ?", name).Error; err != nil {
			return err
		}
		seq = row.Seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("next sequence %q: %w", name, err)
	}
	return seq, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Package sqlstore implements the store primitives on top of gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nexsite/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is returned for requests the schema would reject.
	ErrInvalidInput = errors.New("invalid input")
)

// Store keeps content and leads in a SQL database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New wraps an opened and migrated gorm handle.
func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb, now: time.Now}
}

// ListContent returns items matching filter ordered by display order, then creation time.
func (s *Store) ListContent(ctx context.Context, filter db.ContentFilter) ([]db.ContentItem, error) {
	query := s.db.WithContext(ctx).Model(&db.ContentItem{})
	if filter.Section != "" {
		query = query.Where("section = ?", filter.Section)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var items []db.ContentItem
	if err := query.Order("display_order ASC, created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}

// CreateContent inserts a new item and returns the persisted record.
func (s *Store) CreateContent(ctx context.Context, input db.ContentInput) (*db.ContentItem, error) {
	if strings.TrimSpace(input.Section) == "" || strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("create content: %w", ErrInvalidInput)
	}

	item := input.Item()
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	return &item, nil
}

// UpdateContent writes the set fields of patch and returns the updated record.
func (s *Store) UpdateContent(ctx context.Context, id string, patch db.ContentPatch) (*db.ContentItem, error) {
	var item db.ContentItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if patch.IsEmpty() {
			return nil
		}

		cols := patch.Columns()
		updatedAt := s.now()
		if !updatedAt.After(item.UpdatedAt) {
			updatedAt = item.UpdatedAt.Add(time.Millisecond)
		}
		cols["updated_at"] = updatedAt
		if err := tx.Model(&db.ContentItem{}).Where("id = ?", id).UpdateColumns(cols).Error; err != nil {
			return err
		}
		return tx.First(&item, "id = ?", id).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update content %s: %w", id, err)
	}
	return &item, nil
}

// DeleteContent removes an item. Deleting a missing id is not an error.
func (s *Store) DeleteContent(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&db.ContentItem{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete content %s: %w", id, err)
	}
	return nil
}

// CreateLead inserts a consultation request with status new.
func (s *Store) CreateLead(ctx context.Context, lead db.LeadRequest) (*db.LeadRequest, error) {
	lead.ID = ""
	lead.Status = db.LeadStatusNew
	if err := s.db.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return &lead, nil
}

// ListLeads returns every request, newest first.
func (s *Store) ListLeads(ctx context.Context) ([]db.LeadRequest, error) {
	var leads []db.LeadRequest
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

// UpdateLeadStatus changes the status of one request.
func (s *Store) UpdateLeadStatus(ctx context.Context, id string, status db.LeadStatus) error {
	if !status.Valid() {
		return fmt.Errorf("update lead %s: %w", id, ErrInvalidInput)
	}
	res := s.db.WithContext(ctx).Model(&db.LeadRequest{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update lead %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update lead %s: %w", id, ErrNotFound)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database handle unavailable: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/customs-tracker-api/customs"
	"github.com/kendall-kelly/customs-tracker-api/models"
	"gorm.io/gorm"
)

// CustomsCollection is the change-feed collection name of custom orders
const CustomsCollection = "customs"

// ErrCustomNotFound is returned when no custom has the requested id
var ErrCustomNotFound = errors.New("custom not found")

// CustomFilter narrows FetchAll. Zero values match everything.
// Model matches model names by substring, ignoring case.
type CustomFilter struct {
	Status models.CustomStatus
	Model  string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// CustomStore is the persistence service behind the customs tracker
type CustomStore interface {
	// FetchAll returns customs newest first
	FetchAll(ctx context.Context, filter CustomFilter) ([]models.Custom, error)
	Get(ctx context.Context, id string) (models.Custom, error)
	Insert(ctx context.Context, custom *models.Custom) error
	// Update writes the given columns in a single statement
	Update(ctx context.Context, id string, changes customs.Changes) error
	// RecordTransition writes a status change and its history row in one transaction
	RecordTransition(ctx context.Context, id string, changes customs.Changes, entry models.CustomStatusHistory) error
	// Delete removes the custom and its history permanently
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]models.CustomStatusHistory, error)
}

// GormCustomStore implements CustomStore on gorm and announces committed writes
type GormCustomStore struct {
	db        *gorm.DB
	publisher ChangePublisher
}

// NewGormCustomStore creates a store. A nil publisher disables change notifications.
func NewGormCustomStore(db *gorm.DB, publisher ChangePublisher) *GormCustomStore {
	return &GormCustomStore{db: db, publisher: publisher}
}

// FetchAll returns customs newest first
func (s *GormCustomStore) FetchAll(ctx context.Context, filter CustomFilter) ([]models.Custom, error) {
	query := s.db.WithContext(ctx).Model(&models.Custom{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if model := strings.ToLower(strings.TrimSpace(filter.Model)); model != "" {
		query = query.Where(`LOWER(model_name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(model)+"%")
	}

	var list []models.Custom
	if err := query.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch customs: %w", err)
	}
	if list == nil {
		list = []models.Custom{}
	}
	return list, nil
}

// Get loads one custom by id
func (s *GormCustomStore) Get(ctx context.Context, id string) (models.Custom, error) {
	var custom models.Custom
	if err := s.db.WithContext(ctx).First(&custom, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Custom{}, ErrCustomNotFound
		}
		return models.Custom{}, fmt.Errorf("failed to load custom: %w", err)
	}
	return custom, nil
}

// Insert creates the custom, assigning its id
func (s *GormCustomStore) Insert(ctx context.Context, custom *models.Custom) error {
	if err := s.db.WithContext(ctx).Create(custom).Error; err != nil {
		return fmt.Errorf("failed to create custom: %w", err)
	}
	record := *custom
	s.publish(ctx, ChangeEvent{Type: ChangeInsert, ID: custom.ID, Record: &record})
	return nil
}

// Update writes the given columns
func (s *GormCustomStore) Update(ctx context.Context, id string, changes customs.Changes) error {
	if changes.Empty() {
		return nil
	}
	if err := updateColumns(s.db.WithContext(ctx), id, changes); err != nil {
		return err
	}
	s.publishUpdate(ctx, id)
	return nil
}

// RecordTransition writes the status columns and the history row atomically
func (s *GormCustomStore) RecordTransition(ctx context.Context, id string, changes customs.Changes, entry models.CustomStatusHistory) error {
	if changes.Empty() {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateColumns(tx, id, changes); err != nil {
			return err
		}
		entry.CustomID = id
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publishUpdate(ctx, id)
	return nil
}

// Delete removes the custom and its status history
func (s *GormCustomStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("custom_id = ?", id).Delete(&models.CustomStatusHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete status history: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Custom{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete custom: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrCustomNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, ChangeEvent{Type: ChangeDelete, ID: id})
	return nil
}

// History returns the status changes of a custom, oldest first
func (s *GormCustomStore) History(ctx context.Context, id string) ([]models.CustomStatusHistory, error) {
	var entries []models.CustomStatusHistory
	if err := s.db.WithContext(ctx).
		Where("custom_id = ?", id).
		Order("changed_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch status history: %w", err)
	}
	if entries == nil {
		entries = []models.CustomStatusHistory{}
	}
	return entries, nil
}

func updateColumns(db *gorm.DB, id string, changes customs.Changes) error {
	result := db.Model(&models.Custom{}).Where("id = ?", id).Updates(map[string]interface{}(changes))
	if result.Error != nil {
		return fmt.Errorf("failed to update custom: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCustomNotFound
	}
	return nil
}

// publishUpdate announces the committed row. A failed re-read only costs the notification.
func (s *GormCustomStore) publishUpdate(ctx context.Context, id string) {
	if s.publisher == nil {
		return
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		s.publish(ctx, ChangeEvent{Type: ChangeUpdate, ID: id})
		return
	}
	s.publish(ctx, ChangeEvent{Type: ChangeUpdate, ID: id, Record: &record})
}

func (s *GormCustomStore) publish(ctx context.Context, event ChangeEvent) {
	if s.publisher == nil {
		return
	}
	event.Collection = CustomsCollection
	event.CommittedAt = time.Now().UTC()
	s.publisher.Publish(ctx, event)
}

package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/customs-tracker-api/customs"
	"github.com/kendall-kelly/customs-tracker-api/metrics"
	"github.com/kendall-kelly/customs-tracker-api/models"
	"github.com/kendall-kelly/customs-tracker-api/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Command names used for metrics and logs
const (
	CommandCreate            = "create"
	CommandUpdateDescription = "update_description"
	CommandUpdateDueDate     = "update_due_date"
	CommandUpdateDownpayment = "update_downpayment"
	CommandAddAttachments    = "add_attachments"
	CommandRemoveAttachment  = "remove_attachment"
	CommandDelete            = "delete"
)

// CustomListQuery filters listings. Status must be empty or a known status;
// Model matches model names case-insensitively by substring.
type CustomListQuery struct {
	Status string
	Model  string
}

// TransitionRequest asks to move a custom to Status
type TransitionRequest struct {
	Status       string
	ChatterName  string
	EndorserName string
	Actor        string // authenticated staff subject, recorded as changed_by
}

// ExportRow is one custom with download links for its attachments
type ExportRow struct {
	Custom         models.Custom
	AttachmentURLs []string
}

// CustomService runs every custom order command against the store. A command loads
// the record, computes the change with the customs package, persists it and only
// then returns the confirmed custom. A failed write returns the store's error and
// nothing is applied.
type CustomService struct {
	store       CustomStore
	attachments AttachmentService
	clock       utils.Clock
	metrics     *metrics.Metrics
}

var customServiceInstance *CustomService

// InitCustomService initializes the custom service
func InitCustomService(store CustomStore, attachments AttachmentService, clock utils.Clock, m *metrics.Metrics) *CustomService {
	customServiceInstance = NewCustomService(store, attachments, clock, m)
	return customServiceInstance
}

// GetCustomService returns the initialized custom service instance
func GetCustomService() *CustomService {
	return customServiceInstance
}

// SetCustomService sets the custom service instance (primarily for testing)
func SetCustomService(service *CustomService) {
	customServiceInstance = service
}

func NewCustomService(store CustomStore, attachments AttachmentService, clock utils.Clock, m *metrics.Metrics) *CustomService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &CustomService{
		store:       store,
		attachments: attachments,
		clock:       clock,
		metrics:     m,
	}
}

// Now returns the service clock's time
func (s *CustomService) Now() time.Time {
	return s.clock.Now()
}

// List returns matching customs, newest first
func (s *CustomService) List(ctx context.Context, query CustomListQuery) ([]models.Custom, error) {
	status, err := customs.ParseStatus(query.Status)
	if err != nil {
		return nil, err
	}
	return s.store.FetchAll(ctx, CustomFilter{Status: status, Model: query.Model})
}

// Get returns one custom
func (s *CustomService) Get(ctx context.Context, id string) (models.Custom, error) {
	return s.store.Get(ctx, id)
}

// Board returns the kanban columns, optionally limited to matching model names
func (s *CustomService) Board(ctx context.Context, model string) ([]customs.Column, error) {
	list, err := s.List(ctx, CustomListQuery{Model: model})
	if err != nil {
		return nil, err
	}
	return customs.Board(list), nil
}

// ModelNames returns the distinct model names across all customs
func (s *CustomService) ModelNames(ctx context.Context) ([]string, error) {
	list, err := s.store.FetchAll(ctx, CustomFilter{})
	if err != nil {
		return nil, err
	}
	return customs.ModelNames(list), nil
}

// History returns the status changes of a custom, oldest first
func (s *CustomService) History(ctx context.Context, id string) ([]models.CustomStatusHistory, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

// Create validates the draft, uploads its files and inserts the custom.
// Uploaded files are removed again when the insert fails.
func (s *CustomService) Create(ctx context.Context, draft customs.CustomDraft, files []*multipart.FileHeader) (models.Custom, error) {
	now := s.clock.Now()
	custom, err := customs.NewCustom(draft, now)
	if err != nil {
		s.metrics.RecordCommand(CommandCreate, metrics.ResultRejected)
		return models.Custom{}, err
	}
	custom.ID = uuid.NewString()

	paths, err := s.uploadAttachments(ctx, custom.ID, files)
	if err != nil {
		s.metrics.RecordCommand(CommandCreate, metrics.ResultFailed)
		return models.Custom{}, err
	}
	custom, _ = customs.AppendAttachments(custom, paths, now)

	if err := s.store.Insert(ctx, &custom); err != nil {
		s.metrics.RecordCommand(CommandCreate, metrics.ResultFailed)
		s.discardAttachments(ctx, custom.ID, paths)
		return models.Custom{}, err
	}

	s.metrics.RecordCommand(CommandCreate, metrics.ResultApplied)
	zap.L().Info("custom created",
		zap.String("custom_id", custom.ID),
		zap.String("model_name", custom.ModelName),
		zap.String("status", string(custom.Status)),
		zap.Int("attachments", len(custom.Attachments)),
	)
	return custom, nil
}

// Transition moves a custom to a new status and records the change in its history.
// Requesting the current status returns the custom unchanged without writing.
func (s *CustomService) Transition(ctx context.Context, id string, req TransitionRequest) (models.Custom, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Custom{}, err
	}

	target := models.CustomStatus(strings.TrimSpace(req.Status))
	now := s.clock.Now()
	updated, changes, err := customs.RequestTransition(current, target, customs.TransitionContext{
		ChatterName:  req.ChatterName,
		EndorserName: req.EndorserName,
	}, now)
	if err != nil {
		s.metrics.RecordTransition(string(current.Status), transitionLabel(target), metrics.ResultRejected)
		return models.Custom{}, err
	}
	if changes.Empty() {
		s.metrics.RecordTransition(string(current.Status), string(target), metrics.ResultNoop)
		return current, nil
	}

	oldStatus := current.Status
	entry := models.CustomStatusHistory{
		CustomID:    id,
		OldStatus:   &oldStatus,
		NewStatus:   target,
		ChatterName: optionalString(req.ChatterName),
		ChangedBy:   optionalString(req.Actor),
		ChangedAt:   now,
	}
	if err := s.store.RecordTransition(ctx, id, changes, entry); err != nil {
		s.metrics.RecordTransition(string(oldStatus), string(target), metrics.ResultFailed)
		return models.Custom{}, err
	}

	s.metrics.RecordTransition(string(oldStatus), string(target), metrics.ResultApplied)
	zap.L().Info("custom status changed",
		zap.String("custom_id", id),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(target)),
		zap.String("changed_by", req.Actor),
	)
	return updated, nil
}

// UpdateDescription replaces the description while the custom is still editable
func (s *CustomService) UpdateDescription(ctx context.Context, id, description string) (models.Custom, error) {
	return s.apply(ctx, CommandUpdateDescription, id, func(custom models.Custom, now time.Time) (models.Custom, customs.Changes, error) {
		return customs.SetDescription(custom, description, now)
	})
}

// UpdateDueDate sets the due date, or clears it when due is nil
func (s *CustomService) UpdateDueDate(ctx context.Context, id string, due *models.Date) (models.Custom, error) {
	return s.apply(ctx, CommandUpdateDueDate, id, func(custom models.Custom, now time.Time) (models.Custom, customs.Changes, error) {
		return customs.SetDueDate(custom, due, now)
	})
}

// UpdateDownpayment records a new downpayment amount
func (s *CustomService) UpdateDownpayment(ctx context.Context, id string, amount decimal.Decimal) (models.Custom, error) {
	return s.apply(ctx, CommandUpdateDownpayment, id, func(custom models.Custom, now time.Time) (models.Custom, customs.Changes, error) {
		return customs.SetDownpayment(custom, amount, now)
	})
}

// AddAttachments uploads files and appends them to the custom's attachment list
func (s *CustomService) AddAttachments(ctx context.Context, id string, files []*multipart.FileHeader) (models.Custom, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Custom{}, err
	}
	if len(files) == 0 {
		return current, nil
	}

	paths, err := s.uploadAttachments(ctx, id, files)
	if err != nil {
		s.metrics.RecordCommand(CommandAddAttachments, metrics.ResultFailed)
		return models.Custom{}, err
	}

	updated, changes := customs.AppendAttachments(current, paths, s.clock.Now())
	if err := s.store.Update(ctx, id, changes); err != nil {
		s.metrics.RecordCommand(CommandAddAttachments, metrics.ResultFailed)
		s.discardAttachments(ctx, id, paths)
		return models.Custom{}, err
	}

	s.metrics.RecordCommand(CommandAddAttachments, metrics.ResultApplied)
	return updated, nil
}

// RemoveAttachment drops path from the custom, then deletes the stored file
func (s *CustomService) RemoveAttachment(ctx context.Context, id, path string) (models.Custom, error) {
	updated, err := s.apply(ctx, CommandRemoveAttachment, id, func(custom models.Custom, now time.Time) (models.Custom, customs.Changes, error) {
		return customs.RemoveAttachment(custom, path, now)
	})
	if err != nil {
		return models.Custom{}, err
	}
	s.discardAttachments(ctx, id, []string{path})
	return updated, nil
}

// Delete permanently removes the custom, its history and its files
func (s *CustomService) Delete(ctx context.Context, id string) error {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.metrics.RecordCommand(CommandDelete, metrics.ResultFailed)
		return err
	}

	s.metrics.RecordCommand(CommandDelete, metrics.ResultApplied)
	s.discardAttachments(ctx, id, current.AttachmentPaths())
	zap.L().Info("custom deleted", zap.String("custom_id", id), zap.String("model_name", current.ModelName))
	return nil
}

// AttachmentURL returns a download link for one of the custom's attachments
func (s *CustomService) AttachmentURL(ctx context.Context, id, path string) (string, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !hasAttachment(current, path) || !utils.AttachmentBelongsTo(id, path) {
		return "", &customs.ValidationError{
			Code:    customs.CodeAttachmentNotFound,
			Message: fmt.Sprintf("attachment %q is not part of this custom", path),
		}
	}
	return s.attachments.AttachmentURL(ctx, path)
}

// Export returns the matching customs with download links for their attachments.
// A link that cannot be generated is left out and logged.
func (s *CustomService) Export(ctx context.Context, query CustomListQuery) ([]ExportRow, error) {
	list, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(list))
	for _, custom := range list {
		urls := make([]string, 0, len(custom.Attachments))
		for _, path := range custom.Attachments {
			if !utils.AttachmentBelongsTo(custom.ID, path) {
				continue
			}
			url, err := s.attachments.AttachmentURL(ctx, path)
			if err != nil {
				zap.L().Warn("skipping attachment in export",
					zap.Error(err),
					zap.String("custom_id", custom.ID),
					zap.String("path", path),
				)
				continue
			}
			urls = append(urls, url)
		}
		rows = append(rows, ExportRow{Custom: custom, AttachmentURLs: urls})
	}
	return rows, nil
}

type editFunc func(custom models.Custom, now time.Time) (models.Custom, customs.Changes, error)

func (s *CustomService) apply(ctx context.Context, command, id string, edit editFunc) (models.Custom, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Custom{}, err
	}

	updated, changes, err := edit(current, s.clock.Now())
	if err != nil {
		s.metrics.RecordCommand(command, metrics.ResultRejected)
		return models.Custom{}, err
	}
	if changes.Empty() {
		s.metrics.RecordCommand(command, metrics.ResultNoop)
		return current, nil
	}
	if err := s.store.Update(ctx, id, changes); err != nil {
		s.metrics.RecordCommand(command, metrics.ResultFailed)
		return models.Custom{}, err
	}

	s.metrics.RecordCommand(command, metrics.ResultApplied)
	return updated, nil
}

func (s *CustomService) uploadAttachments(ctx context.Context, customID string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.attachments == nil {
		return nil, fmt.Errorf("attachment storage is not configured")
	}
	return s.attachments.UploadAttachments(ctx, customID, files)
}

// discardAttachments removes files no record points to anymore. Only files stored under the
// custom's own folder are touched. Failures leave an orphaned file and are only logged.
func (s *CustomService) discardAttachments(ctx context.Context, customID string, paths []string) {
	if s.attachments == nil {
		return
	}
	owned := make([]string, 0, len(paths))
	for _, path := range paths {
		if utils.AttachmentBelongsTo(customID, path) {
			owned = append(owned, path)
			continue
		}
		zap.L().Warn("not removing attachment outside the custom's folder",
			zap.String("custom_id", customID),
			zap.String("path", path),
		)
	}
	paths = owned
	if len(paths) == 0 {
		return
	}
	if err := s.attachments.DeleteAttachments(ctx, paths...); err != nil {
		zap.L().Warn("failed to remove attachments", zap.Error(err), zap.Strings("paths", paths))
	}
}

func hasAttachment(custom models.Custom, path string) bool {
	for _, p := range custom.Attachments {
		if p == path {
			return true
		}
	}
	return false
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// transitionLabel keeps unknown user input out of metric labels
func transitionLabel(target models.CustomStatus) string {
	if target.Valid() {
		return string(target)
	}
	return "invalid"
}

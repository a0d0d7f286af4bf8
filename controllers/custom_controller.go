package controllers

import (
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/customs-tracker-api/customs"
	"github.com/kendall-kelly/customs-tracker-api/middleware"
	"github.com/kendall-kelly/customs-tracker-api/models"
	"github.com/kendall-kelly/customs-tracker-api/services"
	"github.com/shopspring/decimal"
)

// CustomView is a custom with the flags a board needs to render it
type CustomView struct {
	models.Custom
	IsOverdue          bool                  `json:"is_overdue"`
	CanEditDescription bool                  `json:"can_edit_description"`
	AllowedTransitions []models.CustomStatus `json:"allowed_transitions"`
}

// BoardColumnView is one kanban column
type BoardColumnView struct {
	Status  models.CustomStatus `json:"status"`
	Title   string              `json:"title"`
	Count   int                 `json:"count"`
	Customs []CustomView        `json:"customs"`
}

// CreateCustomRequest represents the request body for creating a custom
type CreateCustomRequest struct {
	ModelName      string          `json:"model_name" binding:"required"`
	FanDisplayName string          `json:"fan_display_name"`
	FanUsername    string          `json:"fan_username"`
	Description    string          `json:"description" binding:"required"`
	CustomType     string          `json:"custom_type"`
	SaleDate       *models.Date    `json:"sale_date" binding:"required"`
	DueDate        *models.Date    `json:"due_date"`
	Downpayment    decimal.Decimal `json:"downpayment"`
	FullPrice      decimal.Decimal `json:"full_price"`
	Status         string          `json:"status"`
	SaleBy         string          `json:"sale_by" binding:"required"`
	// Attachments are only accepted as uploaded files. Paths sent here are rejected.
	Attachments    []string        `json:"attachments"`
}

// TransitionRequest represents the request body for moving a custom to another column
type TransitionRequest struct {
	Status       string `json:"status" binding:"required"`
	ChatterName  string `json:"chatter_name"`
	EndorserName string `json:"endorser_name"`
}

// UpdateDescriptionRequest represents the request body for editing the description
type UpdateDescriptionRequest struct {
	Description string `json:"description" binding:"required"`
}

// UpdateDueDateRequest sets the due date. A null due_date clears it.
type UpdateDueDateRequest struct {
	DueDate *models.Date `json:"due_date"`
}

// UpdateDownpaymentRequest represents the request body for recording a downpayment
type UpdateDownpaymentRequest struct {
	Downpayment *decimal.Decimal `json:"downpayment" binding:"required"`
}

func newCustomView(custom models.Custom, now time.Time) CustomView {
	return CustomView{
		Custom:             custom,
		IsOverdue:          customs.IsOverdue(custom, now),
		CanEditDescription: customs.CanEditDescription(custom),
		AllowedTransitions: customs.AllowedTargets(custom.Status),
	}
}

func newCustomViews(list []models.Custom, now time.Time) []CustomView {
	views := make([]CustomView, 0, len(list))
	for _, custom := range list {
		views = append(views, newCustomView(custom, now))
	}
	return views
}

func (r CreateCustomRequest) draft() customs.CustomDraft {
	return customs.CustomDraft{
		ModelName:      r.ModelName,
		FanDisplayName: r.FanDisplayName,
		FanUsername:    r.FanUsername,
		Description:    r.Description,
		CustomType:     r.CustomType,
		SaleDate:       r.SaleDate,
		DueDate:        r.DueDate,
		Downpayment:    r.Downpayment,
		FullPrice:      r.FullPrice,
		Status:         models.CustomStatus(strings.TrimSpace(r.Status)),
		SaleBy:         r.SaleBy,
	}
}

// ListCustoms handles GET /api/v1/customs - lists customs newest first, filtered by status and model
func ListCustoms(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	list, err := service.List(c.Request.Context(), services.CustomListQuery{
		Status: c.Query("status"),
		Model:  c.Query("model"),
	})
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to retrieve customs")
		return
	}

	respondOK(c, http.StatusOK, newCustomViews(list, service.Now()))
}

// GetCustomBoard handles GET /api/v1/customs/board - the customs grouped into kanban columns
func GetCustomBoard(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	columns, err := service.Board(c.Request.Context(), c.Query("model"))
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to retrieve board")
		return
	}

	now := service.Now()
	board := make([]BoardColumnView, 0, len(columns))
	for _, column := range columns {
		board = append(board, BoardColumnView{
			Status:  column.Status,
			Title:   column.Title,
			Count:   column.Count,
			Customs: newCustomViews(column.Customs, now),
		})
	}
	respondOK(c, http.StatusOK, board)
}

// GetModelNames handles GET /api/v1/customs/models - distinct model names for the filter
func GetModelNames(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	names, err := service.ModelNames(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to retrieve model names")
		return
	}
	respondOK(c, http.StatusOK, names)
}

// CreateCustom handles POST /api/v1/customs - accepts JSON, or multipart form fields with attachment files
func CreateCustom(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	var draft customs.CustomDraft
	var files []*multipart.FileHeader
	if c.ContentType() == "multipart/form-data" {
		var err error
		draft, files, err = parseMultipartDraft(c)
		if err != nil {
			bindingError(c, err)
			return
		}
	} else {
		var req CreateCustomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		if len(req.Attachments) > 0 {
			respondError(c, http.StatusBadRequest, customs.CodeForeignAttachment,
				"Attachments must be uploaded as files", "send the files as multipart/form-data or use POST /customs/:id/attachments")
			return
		}
		draft = req.draft()
	}

	custom, err := service.Create(c.Request.Context(), draft, files)
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to create custom")
		return
	}

	respondOK(c, http.StatusCreated, newCustomView(custom, service.Now()))
}

// GetCustom handles GET /api/v1/customs/:id
func GetCustom(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	custom, err := service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to retrieve custom")
		return
	}
	respondOK(c, http.StatusOK, newCustomView(custom, service.Now()))
}

// TransitionCustom handles POST /api/v1/customs/:id/transitions - moves a custom to another status
func TransitionCustom(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	// anonymous requests only happen with auth disabled in tests
	actor, _ := middleware.GetUserID(c)

	custom, err := service.Transition(c.Request.Context(), c.Param("id"), services.TransitionRequest{
		Status:       req.Status,
		ChatterName:  req.ChatterName,
		EndorserName: req.EndorserName,
		Actor:        actor,
	})
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to update custom status")
		return
	}
	respondOK(c, http.StatusOK, newCustomView(custom, service.Now()))
}

// UpdateCustomDescription handles PATCH /api/v1/customs/:id/description
func UpdateCustomDescription(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	var req UpdateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	custom, err := service.UpdateDescription(c.Request.Context(), c.Param("id"), req.Description)
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to update description")
		return
	}
	respondOK(c, http.StatusOK, newCustomView(custom, service.Now()))
}

// UpdateCustomDueDate handles PATCH /api/v1/customs/:id/due-date
func UpdateCustomDueDate(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	var req UpdateDueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	custom, err := service.UpdateDueDate(c.Request.Context(), c.Param("id"), req.DueDate)
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to update due date")
		return
	}
	respondOK(c, http.StatusOK, newCustomView(custom, service.Now()))
}

// UpdateCustomDownpayment handles PATCH /api/v1/customs/:id/downpayment
func UpdateCustomDownpayment(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	var req UpdateDownpaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	custom, err := service.UpdateDownpayment(c.Request.Context(), c.Param("id"), *req.Downpayment)
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to update downpayment")
		return
	}
	respondOK(c, http.StatusOK, newCustomView(custom, service.Now()))
}

// GetCustomHistory handles GET /api/v1/customs/:id/history - status changes, oldest first
func GetCustomHistory(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	history, err := service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to retrieve status history")
		return
	}
	respondOK(c, http.StatusOK, history)
}

// DeleteCustom handles DELETE /api/v1/customs/:id - removes the custom and its attachments permanently
func DeleteCustom(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	if err := service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to delete custom")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Custom deleted",
	})
}

// parseMultipartDraft reads a create request sent as multipart/form-data
func parseMultipartDraft(c *gin.Context) (customs.CustomDraft, []*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return customs.CustomDraft{}, nil, err
	}

	draft := customs.CustomDraft{
		ModelName:      c.PostForm("model_name"),
		FanDisplayName: c.PostForm("fan_display_name"),
		FanUsername:    c.PostForm("fan_username"),
		Description:    c.PostForm("description"),
		CustomType:     c.PostForm("custom_type"),
		Status:         models.CustomStatus(strings.TrimSpace(c.PostForm("status"))),
		SaleBy:         c.PostForm("sale_by"),
	}

	if draft.SaleDate, err = optionalDate(c.PostForm("sale_date")); err != nil {
		return customs.CustomDraft{}, nil, err
	}
	if draft.DueDate, err = optionalDate(c.PostForm("due_date")); err != nil {
		return customs.CustomDraft{}, nil, err
	}
	if draft.Downpayment, err = optionalAmount(c.PostForm("downpayment")); err != nil {
		return customs.CustomDraft{}, nil, err
	}
	if draft.FullPrice, err = optionalAmount(c.PostForm("full_price")); err != nil {
		return customs.CustomDraft{}, nil, err
	}

	return draft, form.File["attachments"], nil
}

func optionalDate(value string) (*models.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	date, err := models.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func optionalAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

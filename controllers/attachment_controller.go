package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/customs-tracker-api/utils"
)

// UploadAttachments handles POST /api/v1/customs/:id/attachments - appends uploaded files to a custom
func UploadAttachments(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart form with attachment files", err.Error())
		return
	}
	files := form.File["attachments"]
	if len(files) == 0 {
		respondError(c, http.StatusBadRequest, "NO_FILE", "No files were uploaded. Use the 'attachments' field")
		return
	}

	custom, err := service.AddAttachments(c.Request.Context(), c.Param("id"), files)
	if err != nil {
		respondServiceError(c, err, "STORAGE_ERROR", "Failed to upload attachments")
		return
	}
	respondOK(c, http.StatusOK, newCustomView(custom, service.Now()))
}

// RemoveAttachment handles DELETE /api/v1/customs/:id/attachments?path= - detaches and deletes one file
func RemoveAttachment(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Attachment path is required")
		return
	}

	custom, err := service.RemoveAttachment(c.Request.Context(), c.Param("id"), path)
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to remove attachment")
		return
	}
	respondOK(c, http.StatusOK, newCustomView(custom, service.Now()))
}

// GetAttachmentURL handles GET /api/v1/customs/:id/attachments/url?path= - a short-lived download link
func GetAttachmentURL(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Attachment path is required")
		return
	}

	url, err := service.AttachmentURL(c.Request.Context(), c.Param("id"), path)
	if err != nil {
		respondServiceError(c, err, "STORAGE_ERROR", "Failed to generate attachment URL")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"path": path,
		"name": utils.AttachmentName(path),
		"url":  url,
	})
}

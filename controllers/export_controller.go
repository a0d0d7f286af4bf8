package controllers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/customs-tracker-api/models"
	"github.com/kendall-kelly/customs-tracker-api/services"
	"github.com/kendall-kelly/customs-tracker-api/utils"
	"github.com/shopspring/decimal"
)

const notSpecified = "Not specified"

var exportHeader = []string{
	"Custom ID", "Model Name", "Fan Display Name", "Fan Username", "Custom Type", "Description",
	"Sale Date", "Due Date", "Downpayment", "Full Price", "Status", "Sold By", "Endorsed By", "Sent By",
	"Created At", "Updated At", "Attachment URLs",
}

var whitespace = regexp.MustCompile(`\s+`)

// ExportCustoms handles GET /api/v1/customs/export - downloads matching customs as CSV
// with download links for their attachments
func ExportCustoms(c *gin.Context) {
	service, ok := customService(c)
	if !ok {
		return
	}

	query := services.CustomListQuery{
		Status: c.Query("status"),
		Model:  c.Query("model"),
	}
	rows, err := service.Export(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err, "DATABASE_ERROR", "Failed to export customs")
		return
	}
	if len(rows) == 0 {
		respondError(c, http.StatusNotFound, "NO_DATA", "No customs found for the selected criteria")
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(query, service.Now())))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(exportHeader); err != nil {
		_ = c.Error(err)
		return
	}
	for _, row := range rows {
		if err := writer.Write(exportRecord(row)); err != nil {
			_ = c.Error(err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = c.Error(err)
	}
}

func exportRecord(row services.ExportRow) []string {
	custom := row.Custom
	return []string{
		custom.ID,
		custom.ModelName,
		custom.FanDisplayName,
		custom.FanUsername,
		orNotSpecified(custom.CustomType),
		custom.Description,
		custom.SaleDate.String(),
		dateOrNotSpecified(custom.DueDate),
		formatAmount(custom.Downpayment),
		formatAmount(custom.FullPrice),
		string(custom.Status),
		custom.SaleBy,
		pointerOrNotSpecified(custom.EndorsedBy),
		pointerOrNotSpecified(custom.SentBy),
		custom.CreatedAt.UTC().Format(time.RFC3339),
		custom.UpdatedAt.UTC().Format(time.RFC3339),
		strings.Join(row.AttachmentURLs, "\n"),
	}
}

func exportFilename(query services.CustomListQuery, now time.Time) string {
	status := strings.TrimSpace(query.Status)
	if status == "" {
		status = "all"
	}
	model := "All-Models"
	if trimmed := strings.TrimSpace(query.Model); trimmed != "" {
		model = whitespace.ReplaceAllString(trimmed, "-")
	}
	return utils.SanitizeFilename(fmt.Sprintf("customs-%s-%s-%s.csv", status, model, models.DateOf(now).String()))
}

func formatAmount(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

func orNotSpecified(value string) string {
	if strings.TrimSpace(value) == "" {
		return notSpecified
	}
	return value
}

func pointerOrNotSpecified(value *string) string {
	if value == nil {
		return notSpecified
	}
	return orNotSpecified(*value)
}

func dateOrNotSpecified(date *models.Date) string {
	if date == nil {
		return notSpecified
	}
	return date.String()
}

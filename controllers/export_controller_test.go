package controllers

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kendall-kelly/customs-tracker-api/models"
	"github.com/kendall-kelly/customs-tracker-api/services"
	"github.com/kendall-kelly/customs-tracker-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, body string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportCustoms(t *testing.T) {
	env := setupCustomTest(t)

	endorsed := env.createCustom(t, "Luna", models.StatusEndorsed)
	files := testutil.NewFileHeaders(t, "attachments",
		testutil.TestFile{Name: "a.png", Content: []byte("a")},
		testutil.TestFile{Name: "b.png", Content: []byte("b")},
	)
	endorsed, err := env.service.AddAttachments(context.Background(), endorsed.ID, files)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	env.createCustom(t, "Stella", models.StatusEndorsed)
	env.createCustom(t, "Luna", models.StatusPartiallyPaid)

	t.Run("Filtered by status and model", func(t *testing.T) {
		w, _ := env.do(t, http.MethodGet, "/api/v1/customs/export?status=endorsed&model=luna", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="customs-endorsed-luna-2024-06-01.csv"`, w.Header().Get("Content-Disposition"))

		records := readCSV(t, w.Body.String())
		require.Len(t, records, 2)
		assert.Equal(t, exportHeader, records[0])

		row := records[1]
		assert.Equal(t, endorsed.ID, row[0])
		assert.Equal(t, "Luna", row[1])
		assert.Equal(t, "fan", row[3])
		assert.Equal(t, "Not specified", row[4])
		assert.Equal(t, "2024-05-01", row[6])
		assert.Equal(t, "Not specified", row[7])
		assert.Equal(t, "$50.00", row[8])
		assert.Equal(t, "$100.00", row[9])
		assert.Equal(t, "endorsed", row[10])
		assert.Equal(t, "Alex", row[12])
		assert.Equal(t, "Not specified", row[13])

		urls := strings.Split(row[16], "\n")
		require.Len(t, urls, 2)
		assert.Contains(t, urls[0], endorsed.Attachments[0])
		assert.Contains(t, urls[1], endorsed.Attachments[1])
	})

	t.Run("All statuses when none is given", func(t *testing.T) {
		w, _ := env.do(t, http.MethodGet, "/api/v1/customs/export", nil)
		require.Equal(t, http.StatusOK, w.Code)

		assert.Contains(t, w.Header().Get("Content-Disposition"), "customs-all-All-Models-")
		assert.Len(t, readCSV(t, w.Body.String()), 4)
	})

	t.Run("Missing files are left out", func(t *testing.T) {
		require.NoError(t, env.blobs.Remove(context.Background(), endorsed.Attachments[0]))

		w, _ := env.do(t, http.MethodGet, "/api/v1/customs/export?status=endorsed&model=luna", nil)
		require.Equal(t, http.StatusOK, w.Code)

		records := readCSV(t, w.Body.String())
		require.Len(t, records, 2)
		assert.NotContains(t, records[1][16], "\n")
		assert.Contains(t, records[1][16], endorsed.Attachments[1])
	})

	t.Run("No matches", func(t *testing.T) {
		w, response := env.do(t, http.MethodGet, "/api/v1/customs/export?status=refunded", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NO_DATA", errorCode(t, response))
	})

	t.Run("Unknown status", func(t *testing.T) {
		w, response := env.do(t, http.MethodGet, "/api/v1/customs/export?status=lost", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_STATUS", errorCode(t, response))
	})
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    services.CustomListQuery
		expected string
	}{
		{"Defaults", services.CustomListQuery{}, "customs-all-All-Models-2024-06-01.csv"},
		{"Model with spaces", services.CustomListQuery{Status: "done", Model: "Luna  Rose"}, "customs-done-Luna-Rose-2024-06-01.csv"},
		{"Header injection", services.CustomListQuery{Model: `x"; evil=1`}, "customs-all-x_-evil_1-2024-06-01.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exportFilename(tt.query, now))
		})
	}
}

package customs

import (
	"sort"

	"github.com/kendall-kelly/customs-tracker-api/models"
)

// Column is one kanban column
type Column struct {
	Status  models.CustomStatus `json:"status"`
	Title   string              `json:"title"`
	Count   int                 `json:"count"`
	Customs []models.Custom     `json:"customs"`
}

// PartitionByStatus groups customs by status, keeping their input order inside each group.
// Every status has an entry, empty ones included.
func PartitionByStatus(list []models.Custom) map[models.CustomStatus][]models.Custom {
	buckets := make(map[models.CustomStatus][]models.Custom, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		buckets[status] = []models.Custom{}
	}
	for _, custom := range list {
		if _, ok := buckets[custom.Status]; !ok {
			continue
		}
		buckets[custom.Status] = append(buckets[custom.Status], custom)
	}
	return buckets
}

// Board returns the partition as columns in lifecycle order
func Board(list []models.Custom) []Column {
	buckets := PartitionByStatus(list)
	columns := make([]Column, 0, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		columns = append(columns, Column{
			Status:  status,
			Title:   status.Title(),
			Count:   len(buckets[status]),
			Customs: buckets[status],
		})
	}
	return columns
}

// ModelNames returns the distinct model names, sorted
func ModelNames(list []models.Custom) []string {
	seen := make(map[string]struct{}, len(list))
	names := make([]string, 0, len(list))
	for _, custom := range list {
		if _, ok := seen[custom.ModelName]; ok {
			continue
		}
		seen[custom.ModelName] = struct{}{}
		names = append(names, custom.ModelName)
	}
	sort.Strings(names)
	return names
}

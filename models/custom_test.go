package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestCustomTableNames(t *testing.T) {
	assert.Equal(t, "customs", Custom{}.TableName(), "Table name should be 'customs'")
	assert.Equal(t, "custom_status_history", CustomStatusHistory{}.TableName())
}

func TestCustomStatusValid(t *testing.T) {
	for _, status := range AllStatuses {
		assert.True(t, status.Valid(), "%s should be valid", status)
	}
	assert.False(t, CustomStatus("shipped").Valid())
	assert.False(t, CustomStatus("").Valid())
}

func TestCustomStatusTitle(t *testing.T) {
	tests := []struct {
		status CustomStatus
		title  string
	}{
		{StatusPartiallyPaid, "Partially Paid"},
		{StatusFullyPaid, "Fully Paid"},
		{StatusEndorsed, "Endorsed"},
		{StatusDone, "Done"},
		{StatusRefunded, "Refunded"},
		{CustomStatus("other"), "other"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.title, tt.status.Title())
		})
	}
}

func TestCustomBeforeCreate(t *testing.T) {
	custom := Custom{ModelName: "Ava"}
	assert.NoError(t, custom.BeforeCreate(nil))
	assert.NotEmpty(t, custom.ID, "ID should be assigned")
	assert.NotNil(t, custom.Attachments, "Attachments should never be stored as null")

	// An existing id is kept
	custom = Custom{ID: "fixed-id"}
	assert.NoError(t, custom.BeforeCreate(nil))
	assert.Equal(t, "fixed-id", custom.ID)

	entry := CustomStatusHistory{}
	assert.NoError(t, entry.BeforeCreate(nil))
	assert.NotEmpty(t, entry.ID)
}

func TestCustomAttachmentPathsIsACopy(t *testing.T) {
	custom := Custom{Attachments: datatypes.JSONSlice[string]{"a.png", "b.png"}}

	paths := custom.AttachmentPaths()
	paths[0] = "changed.png"

	assert.Equal(t, []string{"changed.png", "b.png"}, paths)
	assert.Equal(t, "a.png", custom.Attachments[0], "the entity should not change")
}

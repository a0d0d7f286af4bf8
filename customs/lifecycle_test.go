package customs

import (
	"fmt"
	"testing"
	"time"

	"github.com/kendall-kelly/customs-tracker-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createdAt = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	later     = time.Date(2024, 1, 2, 12, 30, 0, 0, time.UTC)
)

func newTestCustom(status models.CustomStatus) models.Custom {
	return models.Custom{
		ID:          "c-1",
		ModelName:   "Luna",
		Description: "Birthday video",
		SaleDate:    models.NewDate(2024, time.January, 1),
		Downpayment: decimal.NewFromInt(100),
		FullPrice:   decimal.NewFromInt(500),
		Status:      status,
		SaleBy:      "Sam",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// fullContext satisfies every guarded transition
var fullContext = TransitionContext{ChatterName: "Bob", EndorserName: "Alice"}

func TestRequestTransition_SameStatusIsNoOp(t *testing.T) {
	for _, status := range models.AllStatuses {
		t.Run(string(status), func(t *testing.T) {
			custom := newTestCustom(status)

			got, changes, err := RequestTransition(custom, status, TransitionContext{}, later)

			require.NoError(t, err)
			assert.True(t, changes.Empty(), "no-op must not produce a write")
			assert.Equal(t, custom, got, "no field may change")
			assert.Equal(t, createdAt, got.UpdatedAt, "updated_at must not be bumped")
		})
	}
}

func TestRequestTransition_TransitionTable(t *testing.T) {
	allowed := map[models.CustomStatus][]models.CustomStatus{
		models.StatusPartiallyPaid: {models.StatusFullyPaid, models.StatusEndorsed, models.StatusDone, models.StatusRefunded},
		models.StatusFullyPaid:     {models.StatusPartiallyPaid, models.StatusEndorsed, models.StatusDone, models.StatusRefunded},
		models.StatusEndorsed:      {models.StatusPartiallyPaid, models.StatusFullyPaid, models.StatusDone, models.StatusRefunded},
		models.StatusDone:          {models.StatusRefunded},
		models.StatusRefunded:      {},
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			if from == to {
				continue
			}
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				expected := containsStatus(allowed[from], to)

				got, changes, err := RequestTransition(newTestCustom(from), to, fullContext, later)

				if expected {
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
					assert.Equal(t, to, changes["status"])
					assert.Equal(t, later, changes["updated_at"])
					assert.Equal(t, later, got.UpdatedAt)
					return
				}
				require.Error(t, err)
				assert.True(t, IsInvalidTransition(err), "expected InvalidTransitionError, got %v", err)
				assert.Nil(t, changes)
				assert.Equal(t, from, got.Status)
			})
		}
	}
}

func containsStatus(list []models.CustomStatus, s models.CustomStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func TestAllowedTargets_EveryStatusHandled(t *testing.T) {
	for _, status := range models.AllStatuses {
		if status == models.StatusRefunded {
			assert.Empty(t, AllowedTargets(status), "refunded is terminal")
			continue
		}
		assert.NotEmpty(t, AllowedTargets(status), "status %s has no outgoing transitions", status)
		assert.Contains(t, AllowedTargets(status), models.StatusRefunded, "every live status can be refunded")
	}
}

func TestRequestTransition_RefundedToDoneFails(t *testing.T) {
	_, _, err := RequestTransition(newTestCustom(models.StatusRefunded), models.StatusDone, TransitionContext{}, later)

	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, models.StatusRefunded, tErr.From)
	assert.Equal(t, models.StatusDone, tErr.To)
}

func TestRequestTransition_UnknownStatus(t *testing.T) {
	_, _, err := RequestTransition(newTestCustom(models.StatusFullyPaid), models.CustomStatus("shipped"), TransitionContext{}, later)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, CodeInvalidStatus, vErr.Code)
}

func TestRequestTransition_GuardedFields(t *testing.T) {
	tests := []struct {
		name      string
		target    models.CustomStatus
		context   TransitionContext
		wantCode  string
		checkDone func(t *testing.T, got models.Custom, changes Changes)
	}{
		{
			name:     "endorsed without endorser",
			target:   models.StatusEndorsed,
			context:  TransitionContext{},
			wantCode: CodeEndorserRequired,
		},
		{
			name:     "endorsed with blank endorser",
			target:   models.StatusEndorsed,
			context:  TransitionContext{EndorserName: "   "},
			wantCode: CodeEndorserRequired,
		},
		{
			name:     "endorsed ignores chatter name",
			target:   models.StatusEndorsed,
			context:  TransitionContext{ChatterName: "Bob"},
			wantCode: CodeEndorserRequired,
		},
		{
			name:    "endorsed with endorser",
			target:  models.StatusEndorsed,
			context: TransitionContext{EndorserName: "Alice"},
			checkDone: func(t *testing.T, got models.Custom, changes Changes) {
				require.NotNil(t, got.EndorsedBy)
				assert.Equal(t, "Alice", *got.EndorsedBy)
				assert.Equal(t, models.StatusEndorsed, got.Status)
				assert.Equal(t, "Alice", changes["endorsed_by"])
				assert.NotContains(t, changes, "sent_by")
			},
		},
		{
			name:     "done without chatter",
			target:   models.StatusDone,
			context:  TransitionContext{EndorserName: "Alice"},
			wantCode: CodeChatterRequired,
		},
		{
			name:    "done with chatter",
			target:  models.StatusDone,
			context: TransitionContext{ChatterName: " Bob "},
			checkDone: func(t *testing.T, got models.Custom, changes Changes) {
				require.NotNil(t, got.SentBy)
				assert.Equal(t, "Bob", *got.SentBy)
				assert.Equal(t, "Bob", changes["sent_by"])
				assert.Nil(t, got.EndorsedBy)
			},
		},
		{
			name:    "refunded needs no context",
			target:  models.StatusRefunded,
			context: TransitionContext{},
			checkDone: func(t *testing.T, got models.Custom, changes Changes) {
				assert.Equal(t, models.StatusRefunded, got.Status)
				assert.Len(t, changes, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			custom := newTestCustom(models.StatusPartiallyPaid)

			got, changes, err := RequestTransition(custom, tt.target, tt.context, later)

			if tt.wantCode != "" {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantCode, vErr.Code)
				assert.Nil(t, changes)
				assert.Equal(t, custom, got, "custom must be unchanged on failure")
				return
			}
			require.NoError(t, err)
			tt.checkDone(t, got, changes)
		})
	}
}

func TestRequestTransition_EndorsedByKeptAfterLeavingEndorsed(t *testing.T) {
	custom := newTestCustom(models.StatusFullyPaid)

	custom, _, err := RequestTransition(custom, models.StatusEndorsed, TransitionContext{EndorserName: "Alice"}, later)
	require.NoError(t, err)
	custom, changes, err := RequestTransition(custom, models.StatusFullyPaid, TransitionContext{}, later.Add(time.Hour))
	require.NoError(t, err)

	require.NotNil(t, custom.EndorsedBy)
	assert.Equal(t, "Alice", *custom.EndorsedBy)
	assert.NotContains(t, changes, "endorsed_by", "history fields are never cleared")
}

func TestCanEditDescription(t *testing.T) {
	tests := []struct {
		status models.CustomStatus
		want   bool
	}{
		{models.StatusPartiallyPaid, true},
		{models.StatusFullyPaid, true},
		{models.StatusEndorsed, false},
		{models.StatusDone, false},
		{models.StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, CanEditDescription(newTestCustom(tt.status)))
		})
	}
}

func TestSetDescription(t *testing.T) {
	t.Run("editable status", func(t *testing.T) {
		got, changes, err := SetDescription(newTestCustom(models.StatusFullyPaid), "Two videos", later)

		require.NoError(t, err)
		assert.Equal(t, "Two videos", got.Description)
		assert.Equal(t, Changes{"description": "Two videos", "updated_at": later}, changes)
	})

	t.Run("locked once endorsed", func(t *testing.T) {
		custom := newTestCustom(models.StatusEndorsed)

		got, changes, err := SetDescription(custom, "Two videos", later)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, CodeDescriptionLocked, vErr.Code)
		assert.Nil(t, changes)
		assert.Equal(t, custom, got)
	})

	t.Run("blank description", func(t *testing.T) {
		_, _, err := SetDescription(newTestCustom(models.StatusPartiallyPaid), "  ", later)
		assert.True(t, IsValidationError(err))
	})
}

func TestSetDueDate(t *testing.T) {
	due := models.NewDate(2024, time.February, 14)

	for _, status := range models.AllStatuses {
		t.Run("set in "+string(status), func(t *testing.T) {
			got, changes, err := SetDueDate(newTestCustom(status), &due, later)

			require.NoError(t, err)
			require.NotNil(t, got.DueDate)
			assert.Equal(t, due, *got.DueDate)
			assert.Equal(t, later, got.UpdatedAt)
			assert.Equal(t, later, changes["updated_at"])
		})
	}

	t.Run("clear", func(t *testing.T) {
		custom := newTestCustom(models.StatusDone)
		custom.DueDate = &due

		got, changes, err := SetDueDate(custom, nil, later)

		require.NoError(t, err)
		assert.Nil(t, got.DueDate)
		assert.Contains(t, changes, "due_date")
		assert.Nil(t, changes["due_date"])
	})

	t.Run("does not alias the argument", func(t *testing.T) {
		arg := due
		got, _, _ := SetDueDate(newTestCustom(models.StatusFullyPaid), &arg, later)
		arg = models.NewDate(2030, time.January, 1)
		assert.Equal(t, due, *got.DueDate)
	})
}

func TestSetDownpayment(t *testing.T) {
	t.Run("negative amount", func(t *testing.T) {
		custom := newTestCustom(models.StatusPartiallyPaid)

		got, changes, err := SetDownpayment(custom, decimal.NewFromInt(-1), later)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, CodeNegativeAmount, vErr.Code)
		assert.Nil(t, changes)
		assert.Equal(t, custom, got)
	})

	t.Run("valid amount", func(t *testing.T) {
		got, changes, err := SetDownpayment(newTestCustom(models.StatusPartiallyPaid), decimal.NewFromInt(50), later)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(50).Equal(got.Downpayment))
		assert.Equal(t, later, got.UpdatedAt)
		assert.Contains(t, changes, "downpayment")
	})

	t.Run("above full price is accepted", func(t *testing.T) {
		got, _, err := SetDownpayment(newTestCustom(models.StatusPartiallyPaid), decimal.NewFromInt(900), later)

		require.NoError(t, err)
		assert.True(t, got.Downpayment.GreaterThan(got.FullPrice))
	})
}

func TestIsOverdue(t *testing.T) {
	due := models.NewDate(2024, time.January, 1)
	withDue := newTestCustom(models.StatusFullyPaid)
	withDue.DueDate = &due

	assert.False(t, IsOverdue(withDue, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), "the due date itself is not overdue")
	assert.True(t, IsOverdue(withDue, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)))
	assert.False(t, IsOverdue(withDue, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)))

	noDue := newTestCustom(models.StatusFullyPaid)
	for _, now := range []time.Time{{}, createdAt, time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)} {
		assert.False(t, IsOverdue(noDue, now), "no due date is never overdue")
	}
}

// TestEndToEndLifecycle walks a custom across the board the way staff would drag it
func TestEndToEndLifecycle(t *testing.T) {
	sale := models.NewDate(2024, time.March, 1)
	custom, err := NewCustom(CustomDraft{
		ModelName:   "Luna",
		Description: "Custom video",
		SaleDate:    &sale,
		Downpayment: decimal.NewFromInt(100),
		FullPrice:   decimal.NewFromInt(500),
		SaleBy:      "Sam",
	}, createdAt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyPaid, custom.Status)
	assert.Nil(t, custom.DueDate)

	custom, _, err = RequestTransition(custom, models.StatusFullyPaid, TransitionContext{}, later)
	require.NoError(t, err)

	custom, _, err = RequestTransition(custom, models.StatusDone, TransitionContext{ChatterName: "Bob"}, later)
	require.NoError(t, err)
	require.NotNil(t, custom.SentBy)
	assert.Equal(t, "Bob", *custom.SentBy)

	_, _, err = RequestTransition(custom, models.StatusFullyPaid, TransitionContext{}, later)
	assert.True(t, IsInvalidTransition(err), "done is delivery-final")

	custom, _, err = RequestTransition(custom, models.StatusRefunded, TransitionContext{}, later)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, custom.Status)

	for _, status := range models.AllStatuses {
		if status == models.StatusRefunded {
			continue
		}
		_, _, err = RequestTransition(custom, status, fullContext, later)
		assert.True(t, IsInvalidTransition(err), "refunded is terminal, %s must be rejected", status)
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Endorsed ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusEndorsed, status)

	status, err = ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, models.CustomStatus(""), status)

	_, err = ParseStatus("shipped")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, CodeInvalidStatus, vErr.Code)
}

package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taharajati/habit-tracker/internal/storage/memory"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

func TestSummarizeMoods(t *testing.T) {
	assert.Equal(t, habit.MoodStats{}, SummarizeMoods(nil))

	got := SummarizeMoods([]habit.MoodEntry{{Level: 4}, {Level: 2}, {Level: 5}})
	assert.Equal(t, habit.MoodStats{Average: 3.67, Lowest: 2, Highest: 5, Count: 3}, got)
}

func TestService_Moods(t *testing.T) {
	svc := New(memory.New(), 0)
	ctx := context.Background()

	for _, m := range []habit.MoodEntry{
		{Day: day("2024-02-20"), Level: 1},
		{Day: day("2024-03-25"), Level: 2, Note: "rough start"},
		{Day: day("2024-03-25"), Level: 4, Note: "better"},
		{Day: day("2024-03-30"), Level: 5},
	} {
		_, err := svc.RecordMood(ctx, "alice", m)
		require.NoError(t, err)
	}

	report, err := svc.Moods(ctx, "alice", "week", day("2024-03-31"))
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-24"), report.From)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, day("2024-03-30"), report.Entries[0].Day)
	assert.Equal(t, "better", report.Entries[1].Note)
	assert.Equal(t, habit.MoodStats{Average: 4.5, Lowest: 4, Highest: 5, Count: 2}, report.Stats)

	report, err = svc.Moods(ctx, "alice", "", day("2024-03-31"))
	require.NoError(t, err)
	assert.Len(t, report.Entries, 2, "default window is 30 days")

	report, err = svc.Moods(ctx, "alice", "year", day("2024-03-31"))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Stats.Count)
	assert.Equal(t, 1, report.Stats.Lowest)

	_, err = svc.Moods(ctx, "alice", "decade", day("2024-03-31"))
	assert.ErrorIs(t, err, habit.ErrInvalidOperation)

	_, err = svc.RecordMood(ctx, "alice", habit.MoodEntry{Day: day("2024-03-31"), Level: 0})
	assert.ErrorIs(t, err, habit.ErrInvalidOperation)
}

package reactions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"channel-service/internal/models"
)

func TestToggleAddsWhenAbsent(t *testing.T) {
	existing := models.ReactionList{{UserID: 1, Emoji: "👍"}}

	got := Toggle(existing, 2, "👍")

	assert.Equal(t, models.ReactionList{
		{UserID: 1, Emoji: "👍"},
		{UserID: 2, Emoji: "👍"},
	}, got)
}

func TestToggleRemovesWhenPresent(t *testing.T) {
	existing := models.ReactionList{
		{UserID: 1, Emoji: "👍"},
		{UserID: 2, Emoji: "👍"},
		{UserID: 1, Emoji: "🎉"},
	}

	got := Toggle(existing, 1, "👍")

	assert.Equal(t, models.ReactionList{
		{UserID: 2, Emoji: "👍"},
		{UserID: 1, Emoji: "🎉"},
	}, got)
}

func TestToggleSameUserDifferentEmojiIsIndependent(t *testing.T) {
	existing := models.ReactionList{{UserID: 1, Emoji: "👍"}}

	got := Toggle(existing, 1, "🎉")

	assert.Equal(t, models.ReactionList{
		{UserID: 1, Emoji: "👍"},
		{UserID: 1, Emoji: "🎉"},
	}, got)
}

func TestToggleTwiceRestoresOriginal(t *testing.T) {
	existing := models.ReactionList{{UserID: 1, Emoji: "👍"}}

	once := Toggle(existing, 2, "🎉")
	twice := Toggle(once, 2, "🎉")

	assert.Equal(t, existing, twice)
}

func TestToggleDoesNotMutateInput(t *testing.T) {
	existing := models.ReactionList{
		{UserID: 1, Emoji: "👍"},
		{UserID: 2, Emoji: "🎉"},
	}
	snapshot := append(models.ReactionList{}, existing...)

	Toggle(existing, 1, "👍")
	Toggle(existing, 3, "🚀")

	assert.Equal(t, snapshot, existing)
}

func TestToggleEmptyList(t *testing.T) {
	got := Toggle(nil, 7, "👍")

	assert.Equal(t, models.ReactionList{{UserID: 7, Emoji: "👍"}}, got)
}

func TestSummarizeGroupsByFirstAppearance(t *testing.T) {
	list := models.ReactionList{
		{UserID: 1, Emoji: "👍"},
		{UserID: 2, Emoji: "🎉"},
		{UserID: 3, Emoji: "👍"},
	}

	got := Summarize(list)

	assert.Equal(t, []Summary{
		{Emoji: "👍", Count: 2, UserIDs: []int{1, 3}},
		{Emoji: "🎉", Count: 1, UserIDs: []int{2}},
	}, got)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}

// Package reactions implements the pure (user, emoji) set-toggle over a
// message's ordered reaction sequence. Persistence callers must run Toggle
// inside a single read-modify-write against the stored row.
package reactions

import "channel-service/internal/models"

// Toggle removes the (userID, emoji) entry when present, appends it
// otherwise. The relative order of surviving entries is preserved and the
// input slice is never mutated.
func Toggle(existing models.ReactionList, userID int, emoji string) models.ReactionList {
	out := make(models.ReactionList, 0, len(existing)+1)
	removed := false
	for _, r := range existing {
		if r.UserID == userID && r.Emoji == emoji {
			removed = true
			continue
		}
		out = append(out, r)
	}
	if !removed {
		out = append(out, models.Reaction{UserID: userID, Emoji: emoji})
	}
	return out
}

// Summary is the per-emoji view derived from a reaction sequence.
type Summary struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	UserIDs []int  `json:"user_ids"`
}

// Summarize groups a reaction sequence by emoji, in order of each emoji's
// first appearance.
func Summarize(list models.ReactionList) []Summary {
	byEmoji := make(map[string]int, len(list))
	summaries := make([]Summary, 0, len(list))
	for _, r := range list {
		idx, ok := byEmoji[r.Emoji]
		if !ok {
			idx = len(summaries)
			byEmoji[r.Emoji] = idx
			summaries = append(summaries, Summary{Emoji: r.Emoji})
		}
		summaries[idx].Count++
		summaries[idx].UserIDs = append(summaries[idx].UserIDs, r.UserID)
	}
	return summaries
}

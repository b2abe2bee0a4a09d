package game

// DigestSize is how many turns the agent-facing history digest carries.
const DigestSize = 5

// DigestEntry is the compact form of a history item shown to agents.
type DigestEntry struct {
	Turn    int    `json:"turn"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
}

// Digest condenses the newest DigestSize history items.
func Digest(history []HistoryItem) []DigestEntry {
	start := max(0, len(history)-DigestSize)
	out := make([]DigestEntry, 0, len(history)-start)
	for _, h := range history[start:] {
		out = append(out, DigestEntry{
			Turn:    h.Verdict.TurnID,
			Action:  h.Action,
			Outcome: h.Verdict.Narrative.Content,
		})
	}
	return out
}

// PreviousNarrative returns the narrative of the newest history item, or "".
func PreviousNarrative(history []HistoryItem) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Verdict.Narrative.Content
}

package game

// PublicIntelLog is an intel log without its reliability grade.
type PublicIntelLog struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// PublicQuest is the quest view returned to clients. The hidden agenda and
// reliability grades never leave the server.
type PublicQuest struct {
	VisibleObjectives []Objective      `json:"visible_objectives"`
	IntelLogs         []PublicIntelLog `json:"intel_logs"`
}

// SanitizeQuest strips hidden fields. A nil quest yields nil.
func SanitizeQuest(q *QuestState) *PublicQuest {
	if q == nil {
		return nil
	}
	out := &PublicQuest{
		VisibleObjectives: append([]Objective{}, q.VisibleObjectives...),
		IntelLogs:         make([]PublicIntelLog, 0, len(q.IntelLogs)),
	}
	for _, l := range q.IntelLogs {
		out.IntelLogs = append(out.IntelLogs, PublicIntelLog{Source: l.Source, Content: l.Content})
	}
	return out
}

package game

type Environment struct {
	Time        string `json:"time"` // "HH:MM"
	Weather     string `json:"weather"`
	Location    string `json:"location"`
	SubLocation string `json:"sub_location,omitempty"`
	Region      string `json:"region,omitempty"`
}

// WorldState is mutated only by the turn merge.
type WorldState struct {
	WorldID       string         `json:"world_id"`
	TurnCount     int            `json:"turn_count"`
	Environment   Environment    `json:"environment"`
	Flags         map[string]any `json:"flags"`
	ActiveThreats []string       `json:"active_threats"`
	PresentNPCs   []string       `json:"present_npcs,omitempty"`
}

// Clone returns a copy that shares no slices or maps with w.
func (w WorldState) Clone() WorldState {
	out := w
	out.ActiveThreats = append([]string{}, w.ActiveThreats...)
	if w.PresentNPCs != nil {
		out.PresentNPCs = append([]string{}, w.PresentNPCs...)
	}
	out.Flags = make(map[string]any, len(w.Flags))
	for k, v := range w.Flags {
		out.Flags[k] = v
	}
	return out
}

type Objective struct {
	ID     string          `json:"id"`
	Text   string          `json:"text"`
	Status ObjectiveStatus `json:"status"`
}

type IntelLog struct {
	Source      string      `json:"source"`
	Content     string      `json:"content"`
	Reliability Reliability `json:"reliability"`
}

// QuestState is replaced wholesale whenever the quest agent runs.
type QuestState struct {
	VisibleObjectives []Objective `json:"visible_objectives"`
	IntelLogs         []IntelLog  `json:"intel_logs"`
	HiddenAgenda      string      `json:"hidden_agenda"`
}

// EmptyQuest is the quest state used before the quest agent has ever run.
func EmptyQuest() QuestState {
	return QuestState{
		VisibleObjectives: []Objective{},
		IntelLogs:         []IntelLog{},
		HiddenAgenda:      "",
	}
}

type EnvCore struct {
	Time     string `json:"time"`
	Location string `json:"location"`
	Weather  string `json:"weather"`
}

type SenseItem struct {
	ID          string      `json:"id"`
	Category    string      `json:"category"`
	Summary     string      `json:"summary"`
	Details     string      `json:"details"`
	ThreatLevel ThreatLevel `json:"threat_level"`
}

// EnvState is a sensory snapshot derived from the latest narrative.
type EnvState struct {
	Core   EnvCore     `json:"core"`
	Senses []SenseItem `json:"senses"`
}

// EnvStateFromWorld is the snapshot used when generation fails.
func EnvStateFromWorld(w WorldState) EnvState {
	return EnvState{
		Core: EnvCore{
			Time:     w.Environment.Time,
			Location: w.Environment.Location,
			Weather:  w.Environment.Weather,
		},
		Senses: []SenseItem{},
	}
}

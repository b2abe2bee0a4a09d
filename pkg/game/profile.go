package game

// PlayerStatus is terminal once dead or ascended.
type PlayerStatus string

const (
	StatusAlive    PlayerStatus = "alive"
	StatusDead     PlayerStatus = "dead"
	StatusAscended PlayerStatus = "ascended"
)

// IsTerminal reports whether no further turns should be played.
func (s PlayerStatus) IsTerminal() bool {
	return s == StatusDead || s == StatusAscended
}

type Stats struct {
	HP        int  `json:"hp"`
	MaxHP     int  `json:"max_hp"`
	Power     int  `json:"power"` // generic combat/physical capability
	Agility   *int `json:"agility,omitempty"`
	Intellect *int `json:"intellect,omitempty"`
	Charisma  *int `json:"charisma,omitempty"`
	Luck      *int `json:"luck,omitempty"`
}

type InventoryItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        ItemType `json:"type"`
}

type Trait struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Effect string `json:"effect"`
}

// Talent, Aptitude and Background describe a customized character.
type Talent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       int    `json:"level"` // 1-5
}

type Aptitude struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Value    int    `json:"value"` // 1-100
	Category string `json:"category"`
}

type Background struct {
	Origin     string `json:"origin"`
	Occupation string `json:"occupation"`
	Motivation string `json:"motivation"`
	Flaw       string `json:"flaw"`
}

type Customization struct {
	Gender      string     `json:"gender"`
	Age         *int       `json:"age,omitempty"`
	Appearance  string     `json:"appearance,omitempty"`
	Personality string     `json:"personality,omitempty"`
	Talents     []Talent   `json:"talents"`
	Aptitudes   []Aptitude `json:"aptitudes"`
	Background  Background `json:"background"`
	CustomNotes string     `json:"customNotes,omitempty"`
}

// NPCPersonality and NPCRelationship make up the player's social network.
type NPCPersonality struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Appearance  string   `json:"appearance"`
	Personality string   `json:"personality"`
	Motivation  string   `json:"motivation"`
	Quirks      []string `json:"quirks"`
	SpeechStyle string   `json:"speech_style"`
	Secrets     string   `json:"secrets,omitempty"`
}

type NPCRelationship struct {
	NPCID            string   `json:"npc_id"`
	NPCName          string   `json:"npc_name"`
	Disposition      string   `json:"disposition"`
	TrustLevel       int      `json:"trust_level"` // -100 to 100
	InteractionCount int      `json:"interaction_count"`
	LastInteraction  string   `json:"last_interaction,omitempty"`
	Notes            []string `json:"notes"`
}

type Social struct {
	KnownNPCs     []NPCPersonality  `json:"known_npcs"`
	Relationships []NPCRelationship `json:"relationships"`
}

// PlayerProfile is the player's character for one run.
// Invariant: 0 <= HP <= MaxHP and Power >= 0 after every merge.
type PlayerProfile struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CurrentWorldID string          `json:"current_world_id"`
	Status         PlayerStatus    `json:"status"`
	Stats          Stats           `json:"stats"`
	Inventory      []InventoryItem `json:"inventory"`
	Traits         []Trait         `json:"traits"`
	Customization  *Customization  `json:"customization,omitempty"`
	Social         *Social         `json:"social,omitempty"`
}

// Clone returns a copy that shares no slices with p.
func (p PlayerProfile) Clone() PlayerProfile {
	out := p
	out.Inventory = append([]InventoryItem(nil), p.Inventory...)
	out.Traits = append([]Trait(nil), p.Traits...)
	if out.Inventory == nil {
		out.Inventory = []InventoryItem{}
	}
	if out.Traits == nil {
		out.Traits = []Trait{}
	}
	return out
}

// HasItem reports whether an item with the given id is in the inventory.
func (p PlayerProfile) HasItem(id string) bool {
	for _, item := range p.Inventory {
		if item.ID == id {
			return true
		}
	}
	return false
}

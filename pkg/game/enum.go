package game

import "encoding/json"

// decodeEnum decodes a JSON string into one of the allowed values. Anything
// else, including non-string JSON, decodes to the fallback.
func decodeEnum[T ~string](data []byte, allowed []T, fallback T) T {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fallback
	}
	for _, a := range allowed {
		if T(s) == a {
			return a
		}
	}
	return fallback
}

// RiskLevel grades how dangerous a presented option is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	*r = decodeEnum(data, []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}, RiskMedium)
	return nil
}

// OptionType classifies a presented option.
type OptionType string

const (
	OptionAction      OptionType = "action"
	OptionStealth     OptionType = "stealth"
	OptionObservation OptionType = "observation"
	OptionInteract    OptionType = "interact"
	OptionExamine     OptionType = "examine"
)

func (o *OptionType) UnmarshalJSON(data []byte) error {
	*o = decodeEnum(data, []OptionType{OptionAction, OptionStealth, OptionObservation, OptionInteract, OptionExamine}, OptionAction)
	return nil
}

// ItemType classifies an inventory item.
type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemTool       ItemType = "tool"
	ItemConsumable ItemType = "consumable"
	ItemKey        ItemType = "key"
	ItemMisc       ItemType = "misc"
)

func (i *ItemType) UnmarshalJSON(data []byte) error {
	*i = decodeEnum(data, []ItemType{ItemWeapon, ItemTool, ItemConsumable, ItemKey, ItemMisc}, ItemMisc)
	return nil
}

// ObjectiveStatus is the progress of a visible quest objective.
type ObjectiveStatus string

const (
	ObjectiveActive    ObjectiveStatus = "active"
	ObjectiveCompleted ObjectiveStatus = "completed"
	ObjectiveFailed    ObjectiveStatus = "failed"
)

func (s *ObjectiveStatus) UnmarshalJSON(data []byte) error {
	*s = decodeEnum(data, []ObjectiveStatus{ObjectiveActive, ObjectiveCompleted, ObjectiveFailed}, ObjectiveActive)
	return nil
}

// Reliability is how trustworthy an intel log is. Never sent to clients.
type Reliability string

const (
	ReliabilityLow     Reliability = "low"
	ReliabilityMed     Reliability = "med"
	ReliabilityHigh    Reliability = "high"
	ReliabilityUnknown Reliability = "unknown"
)

func (r *Reliability) UnmarshalJSON(data []byte) error {
	*r = decodeEnum(data, []Reliability{ReliabilityLow, ReliabilityMed, ReliabilityHigh, ReliabilityUnknown}, ReliabilityUnknown)
	return nil
}

// ThreatLevel colours a sensory item. Unlike the other enums it is strict:
// unknown values are a validation failure.
type ThreatLevel string

const (
	ThreatSafe    ThreatLevel = "safe"
	ThreatNotice  ThreatLevel = "notice"
	ThreatWarning ThreatLevel = "warning"
	ThreatDanger  ThreatLevel = "danger"
)

// Valid reports whether t is a known threat level.
func (t ThreatLevel) Valid() bool {
	switch t {
	case ThreatSafe, ThreatNotice, ThreatWarning, ThreatDanger:
		return true
	}
	return false
}

// AtlasCategory classifies a lore entry recorded in the atlas.
type AtlasCategory string

const (
	AtlasLocation AtlasCategory = "location"
	AtlasNPC      AtlasCategory = "npc"
	AtlasRule     AtlasCategory = "rule"
	AtlasSecret   AtlasCategory = "secret"
	AtlasItem     AtlasCategory = "item"
)

func (c *AtlasCategory) UnmarshalJSON(data []byte) error {
	*c = decodeEnum(data, []AtlasCategory{AtlasLocation, AtlasNPC, AtlasRule, AtlasSecret, AtlasItem}, AtlasSecret)
	return nil
}

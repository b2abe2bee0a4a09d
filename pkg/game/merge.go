package game

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type InventoryAction string

const (
	InventoryAdd    InventoryAction = "add"
	InventoryRemove InventoryAction = "remove"
)

type InventoryUpdate struct {
	Action InventoryAction `json:"action"`
	Item   InventoryItem   `json:"item"`
}

// addSat adds a and b, saturating at the int range.
func addSat(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

// ClampHP applies change to hp and clamps the result to [0, maxHP].
func ClampHP(hp, change, maxHP int) int {
	next := addSat(hp, change)
	if next < 0 {
		return 0
	}
	if next > maxHP {
		return maxHP
	}
	return next
}

// ApplyPower applies change to power with a floor of zero.
func ApplyPower(power, change int) int {
	return max(0, addSat(power, change))
}

// ApplyInventoryUpdates returns a new inventory with the updates applied in
// order. Adding an id that is already present is a no-op.
func ApplyInventoryUpdates(inventory []InventoryItem, updates []InventoryUpdate) []InventoryItem {
	out := append([]InventoryItem{}, inventory...)
	for _, u := range updates {
		switch u.Action {
		case InventoryAdd:
			if !containsItem(out, u.Item.ID) {
				out = append(out, u.Item)
			}
		case InventoryRemove:
			kept := out[:0]
			for _, item := range out {
				if item.ID != u.Item.ID {
					kept = append(kept, item)
				}
			}
			out = kept
		}
	}
	return out
}

func containsItem(items []InventoryItem, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// NextStatus resolves the player status after a verdict. Death wins over
// victory.
func NextStatus(current PlayerStatus, isDeath, isVictory bool) PlayerStatus {
	switch {
	case isDeath:
		return StatusDead
	case isVictory:
		return StatusAscended
	default:
		return current
	}
}

// UnionThreats appends emerging threats not already present, preserving
// first-seen order.
func UnionThreats(existing, emerging []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(emerging))
	out := make([]string, 0, len(existing)+len(emerging))
	for _, list := range [][]string{existing, emerging} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// AdvanceClock adds minutes to an "HH:MM" clock, wrapping at midnight.
// Strings that do not look like a clock are returned unchanged.
func AdvanceClock(clock string, minutes int) string {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(clock))
	if m == nil {
		return clock
	}
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])

	const day = 24 * 60
	total := ((hours*60+mins+minutes)%day + day) % day
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

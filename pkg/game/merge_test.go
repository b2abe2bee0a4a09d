package game

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClampHP(t *testing.T) {
	tests := []struct {
		name   string
		hp     int
		change int
		maxHP  int
		want   int
	}{
		{"damage", 50, -20, 100, 30},
		{"heal", 50, 20, 100, 70},
		{"floor at zero", 10, -50, 100, 0},
		{"ceiling at max", 90, 50, 100, 100},
		{"no change", 42, 0, 100, 42},
		{"huge heal", 50, math.MaxInt, 100, 100},
		{"huge damage", 50, math.MinInt, 100, 0},
		{"near max hp overflow", math.MaxInt - 1, 10, math.MaxInt, math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampHP(tt.hp, tt.change, tt.maxHP); got != tt.want {
				t.Errorf("ClampHP(%d, %d, %d) = %d, want %d", tt.hp, tt.change, tt.maxHP, got, tt.want)
			}
		})
	}
}

func TestApplyPower(t *testing.T) {
	if got := ApplyPower(10, -3); got != 7 {
		t.Errorf("ApplyPower(10, -3) = %d, want 7", got)
	}
	if got := ApplyPower(2, -5); got != 0 {
		t.Errorf("ApplyPower(2, -5) = %d, want 0", got)
	}
	if got := ApplyPower(5, 100); got != 105 {
		t.Errorf("ApplyPower(5, 100) = %d, want 105", got)
	}
	if got := ApplyPower(5, math.MaxInt); got != math.MaxInt {
		t.Errorf("ApplyPower(5, MaxInt) = %d, want MaxInt", got)
	}
	if got := ApplyPower(5, math.MinInt); got != 0 {
		t.Errorf("ApplyPower(5, MinInt) = %d, want 0", got)
	}
}

func TestApplyInventoryUpdates(t *testing.T) {
	knife := InventoryItem{ID: "knife", Name: "Knife", Type: ItemWeapon}
	rope := InventoryItem{ID: "rope", Name: "Rope", Type: ItemTool}
	lamp := InventoryItem{ID: "lamp", Name: "Lamp", Type: ItemTool}

	tests := []struct {
		name      string
		inventory []InventoryItem
		updates   []InventoryUpdate
		want      []InventoryItem
	}{
		{
			name:      "add new item",
			inventory: []InventoryItem{knife},
			updates:   []InventoryUpdate{{Action: InventoryAdd, Item: rope}},
			want:      []InventoryItem{knife, rope},
		},
		{
			name:      "add is idempotent by id",
			inventory: []InventoryItem{knife},
			updates:   []InventoryUpdate{{Action: InventoryAdd, Item: InventoryItem{ID: "knife", Name: "Other Knife"}}},
			want:      []InventoryItem{knife},
		},
		{
			name:      "remove by id",
			inventory: []InventoryItem{knife, rope, lamp},
			updates:   []InventoryUpdate{{Action: InventoryRemove, Item: InventoryItem{ID: "rope"}}},
			want:      []InventoryItem{knife, lamp},
		},
		{
			name:      "remove missing id is a no-op",
			inventory: []InventoryItem{knife},
			updates:   []InventoryUpdate{{Action: InventoryRemove, Item: InventoryItem{ID: "ghost"}}},
			want:      []InventoryItem{knife},
		},
		{
			name:      "updates apply in order",
			inventory: []InventoryItem{},
			updates: []InventoryUpdate{
				{Action: InventoryAdd, Item: lamp},
				{Action: InventoryRemove, Item: lamp},
				{Action: InventoryAdd, Item: rope},
			},
			want: []InventoryItem{rope},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]InventoryItem{}, tt.inventory...)
			got := ApplyInventoryUpdates(tt.inventory, tt.updates)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("inventory mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(before, tt.inventory); diff != "" {
				t.Errorf("input inventory was mutated (-before +after):\n%s", diff)
			}
		})
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		current PlayerStatus
		death   bool
		victory bool
		want    PlayerStatus
	}{
		{"unchanged", StatusAlive, false, false, StatusAlive},
		{"death", StatusAlive, true, false, StatusDead},
		{"victory", StatusAlive, false, true, StatusAscended},
		{"death wins over victory", StatusAlive, true, true, StatusDead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStatus(tt.current, tt.death, tt.victory); got != tt.want {
				t.Errorf("NextStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnionThreats(t *testing.T) {
	got := UnionThreats([]string{"wolves", "fog"}, []string{"fog", "bandits", "wolves", "bandits"})
	want := []string{"wolves", "fog", "bandits"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnionThreats mismatch (-want +got):\n%s", diff)
	}

	if got := UnionThreats(nil, nil); len(got) != 0 {
		t.Errorf("UnionThreats(nil, nil) = %v, want empty", got)
	}
}

func TestAdvanceClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"18:00", "18:05"},
		{"23:58", "00:03"},
		{"9:59", "10:04"},
		{" 07:30 ", "07:35"},
		{"Unknown", "Unknown"},
		{"7:3", "7:3"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := AdvanceClock(tt.in, 5); got != tt.want {
				t.Errorf("AdvanceClock(%q, 5) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

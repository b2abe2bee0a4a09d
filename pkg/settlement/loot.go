package settlement

import "github.com/jwebster45206/adventure-engine/pkg/game"

// LootSource says where a chosen reward comes from.
type LootSource string

const (
	SourceLootPool  LootSource = "loot_pool"
	SourceInventory LootSource = "inventory"
)

func (s LootSource) Valid() bool {
	return s == SourceLootPool || s == SourceInventory
}

const (
	defaultLootDescription = "An item brought back from the fog."
	defaultLootSideEffect  = "No known side effects."
)

// FindLoot returns the pool entry with the given id.
func FindLoot(pool []LootItem, id string) (LootItem, bool) {
	for _, l := range pool {
		if l.ID == id {
			return l, true
		}
	}
	return LootItem{}, false
}

// InventoryLoot turns an inventory item into a reward.
func InventoryLoot(item game.InventoryItem) LootItem {
	desc := item.Description
	if desc == "" {
		desc = defaultLootDescription
	}
	return LootItem{
		ID:          item.ID,
		Name:        item.Name,
		Description: desc,
		Type:        LootItemType,
		SideEffect:  defaultLootSideEffect,
	}
}

package store

import (
	"time"

	"github.com/google/uuid"
)

type ItemType string

const (
	ItemTypeIcon     ItemType = "icon"
	ItemTypeTitle    ItemType = "title"
	ItemTypeCosmetic ItemType = "cosmetic"
	ItemTypeBanner   ItemType = "banner"
)

func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeIcon, ItemTypeTitle, ItemTypeCosmetic, ItemTypeBanner:
		return true
	}
	return false
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityLegendary:
		return true
	}
	return false
}

type Item struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Type        ItemType  `json:"type" db:"type"`
	Price       int       `json:"price" db:"price"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Rarity      Rarity    `json:"rarity" db:"rarity"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type InventoryItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	ItemID      uuid.UUID `json:"item_id" db:"item_id"`
	ItemType    ItemType  `json:"item_type" db:"item_type"`
	PurchasedAt time.Time `json:"purchased_at" db:"purchased_at"`
	Equipped    bool      `json:"equipped" db:"equipped"`
	Item        *Item     `json:"store_items,omitempty"`
}

type Purchase struct {
	InventoryItem *InventoryItem `json:"inventory_item"`
	AmountPaid    int            `json:"amount_paid"`
	RemainingGold int            `json:"remaining_gold"`
}

type EquipResult struct {
	InventoryID uuid.UUID   `json:"inventory_id"`
	ItemType    ItemType    `json:"item_type"`
	Equipped    bool        `json:"equipped"`
	Unequipped  []uuid.UUID `json:"unequipped"`
}

type PurchaseItemRequest struct {
	ItemID string `json:"item_id"`
}

type CreateItemRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Type        ItemType `json:"type"`
	Price       int      `json:"price"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Rarity      Rarity   `json:"rarity"`
}

// UpdateItemRequest patches an item. The type is fixed once players own it.
type UpdateItemRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *int    `json:"price,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	Rarity      *Rarity `json:"rarity,omitempty"`
}

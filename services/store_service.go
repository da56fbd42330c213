package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"darkQuestsAPI/internal/store"
)

const itemColumns = `id, name, description, type, price, image_url, rarity, created_at, updated_at`

type StoreService struct {
	db DB
}

func NewStoreService(db DB) *StoreService {
	return &StoreService{db: db}
}

func scanItem(row pgx.Row) (*store.Item, error) {
	item := &store.Item{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Type,
		&item.Price,
		&item.ImageURL,
		&item.Rarity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns the catalogue ordered by type, then price.
func (s *StoreService) ListItems(ctx context.Context) ([]*store.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM store_items ORDER BY type ASC, price ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, persistErr("list store items", err)
	}
	defer rows.Close()

	items := make([]*store.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, persistErr("scan store item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list store items", err)
	}

	return items, nil
}

func (s *StoreService) GetItem(ctx context.Context, itemID uuid.UUID) (*store.Item, error) {
	item, err := scanItem(s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM store_items WHERE id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, persistErr("get store item", err)
	}
	return item, nil
}

// ListInventory returns the player's owned items joined with their catalogue entry.
func (s *StoreService) ListInventory(ctx context.Context, userID string) ([]*store.InventoryItem, error) {
	query := `
	SELECT
		ui.id,
		ui.user_id,
		ui.item_id,
		ui.item_type,
		ui.purchased_at,
		ui.equipped,
		si.id,
		si.name,
		si.description,
		si.type,
		si.price,
		si.image_url,
		si.rarity,
		si.created_at,
		si.updated_at
	FROM user_inventory ui
	JOIN store_items si ON si.id = ui.item_id
	WHERE ui.user_id = $1
	ORDER BY ui.purchased_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, persistErr("list inventory", err)
	}
	defer rows.Close()

	inventory := make([]*store.InventoryItem, 0)
	for rows.Next() {
		inv := &store.InventoryItem{Item: &store.Item{}}
		err := rows.Scan(
			&inv.ID,
			&inv.UserID,
			&inv.ItemID,
			&inv.ItemType,
			&inv.PurchasedAt,
			&inv.Equipped,
			&inv.Item.ID,
			&inv.Item.Name,
			&inv.Item.Description,
			&inv.Item.Type,
			&inv.Item.Price,
			&inv.Item.ImageURL,
			&inv.Item.Rarity,
			&inv.Item.CreatedAt,
			&inv.Item.UpdatedAt,
		)
		if err != nil {
			return nil, persistErr("scan inventory item", err)
		}
		inventory = append(inventory, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list inventory", err)
	}

	return inventory, nil
}

// PurchaseItem debits the item's price and grants ownership in one
// transaction. The player row is locked before the balance check, so the
// returned balance is the one the debit was applied to.
func (s *StoreService) PurchaseItem(ctx context.Context, userID string, itemID uuid.UUID) (*store.Purchase, error) {
	purchase, err := s.purchaseItem(ctx, userID, itemID)
	storePurchasesTotal.WithLabelValues(purchaseOutcome(err)).Inc()
	return purchase, err
}

func (s *StoreService) purchaseItem(ctx context.Context, userID string, itemID uuid.UUID) (*store.Purchase, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	item, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM store_items WHERE id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, persistErr("load store item", err)
	}

	var currentGold int
	err = tx.QueryRow(ctx, `SELECT gold FROM player_stats WHERE user_id = $1 FOR UPDATE`, userID).Scan(&currentGold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, persistErr("lock player balance", err)
	}

	if currentGold < item.Price {
		return nil, fmt.Errorf("%w: %s costs %d, balance is %d", ErrInsufficientFunds, item.Name, item.Price, currentGold)
	}

	inv := &store.InventoryItem{
		UserID:   userID,
		ItemID:   item.ID,
		ItemType: item.Type,
		Item:     item,
	}
	err = tx.QueryRow(ctx, `
	INSERT INTO user_inventory (id, user_id, item_id, item_type, purchased_at, equipped)
	VALUES ($1, $2, $3, $4, NOW(), FALSE)
	ON CONFLICT (user_id, item_id) DO NOTHING
	RETURNING id, purchased_at
	`, uuid.New(), userID, item.ID, string(item.Type)).Scan(&inv.ID, &inv.PurchasedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyOwned
		}
		return nil, persistErr("grant store item", err)
	}

	var remaining int
	err = tx.QueryRow(ctx, `
	UPDATE player_stats
	SET gold = gold - $2, updated_at = NOW()
	WHERE user_id = $1 AND gold >= $2
	RETURNING gold
	`, userID, item.Price).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, persistErr("debit souls", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit purchase", err)
	}

	soulsSpentTotal.Add(float64(item.Price))
	log.Printf("Player %s bought %s for %d souls", userID, item.Name, item.Price)

	return &store.Purchase{
		InventoryItem: inv,
		AmountPaid:    item.Price,
		RemainingGold: remaining,
	}, nil
}

func purchaseOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrAlreadyOwned):
		return "already_owned"
	case IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// EquipItem toggles an owned item. Equipping unequips every other item of the
// same type; toggling an equipped item unequips it. The rows of that type are
// locked for the duration of the swap.
func (s *StoreService) EquipItem(ctx context.Context, userID string, inventoryID uuid.UUID) (*store.EquipResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var itemType store.ItemType
	err = tx.QueryRow(ctx,
		`SELECT item_type FROM user_inventory WHERE id = $1 AND user_id = $2`,
		inventoryID, userID,
	).Scan(&itemType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}
		return nil, persistErr("load inventory item", err)
	}

	rows, err := tx.Query(ctx, `
	SELECT id, equipped
	FROM user_inventory
	WHERE user_id = $1 AND item_type = $2
	ORDER BY id
	FOR UPDATE
	`, userID, string(itemType))
	if err != nil {
		return nil, persistErr("lock inventory", err)
	}

	var (
		found          bool
		targetEquipped bool
		equippedOthers []uuid.UUID
	)
	for rows.Next() {
		var (
			id       uuid.UUID
			equipped bool
		)
		if err := rows.Scan(&id, &equipped); err != nil {
			rows.Close()
			return nil, persistErr("scan inventory", err)
		}
		switch {
		case id == inventoryID:
			found = true
			targetEquipped = equipped
		case equipped:
			equippedOthers = append(equippedOthers, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, persistErr("lock inventory", err)
	}
	if !found {
		return nil, ErrInventoryItemNotFound
	}

	result := &store.EquipResult{
		InventoryID: inventoryID,
		ItemType:    itemType,
		Unequipped:  make([]uuid.UUID, 0),
	}

	if targetEquipped {
		if _, err := tx.Exec(ctx, `UPDATE user_inventory SET equipped = FALSE WHERE id = $1`, inventoryID); err != nil {
			return nil, persistErr("unequip item", err)
		}
		result.Equipped = false
		result.Unequipped = append(result.Unequipped, inventoryID)
	} else {
		if len(equippedOthers) > 0 {
			_, err := tx.Exec(ctx, `
			UPDATE user_inventory
			SET equipped = FALSE
			WHERE user_id = $1 AND item_type = $2 AND equipped AND id <> $3
			`, userID, string(itemType), inventoryID)
			if err != nil {
				return nil, persistErr("unequip siblings", err)
			}
			result.Unequipped = append(result.Unequipped, equippedOthers...)
		}
		if _, err := tx.Exec(ctx, `UPDATE user_inventory SET equipped = TRUE WHERE id = $1`, inventoryID); err != nil {
			return nil, persistErr("equip item", err)
		}
		result.Equipped = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit equip", err)
	}

	equipTogglesTotal.WithLabelValues(string(itemType), strconv.FormatBool(result.Equipped)).Inc()
	return result, nil
}

func (s *StoreService) CreateItem(ctx context.Context, req *store.CreateItemRequest) (*store.Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("name is required")
	}
	if !req.Type.IsValid() {
		return nil, validationErr("unknown item type %q", req.Type)
	}
	if !req.Rarity.IsValid() {
		return nil, validationErr("unknown rarity %q", req.Rarity)
	}
	if req.Price < 0 {
		return nil, validationErr("price must not be negative")
	}

	query := `
	INSERT INTO store_items (id, name, description, type, price, image_url, rarity, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	RETURNING ` + itemColumns

	item, err := scanItem(s.db.QueryRow(ctx, query,
		uuid.New(),
		name,
		req.Description,
		string(req.Type),
		req.Price,
		req.ImageURL,
		string(req.Rarity),
	))
	if err != nil {
		return nil, persistErr("create store item", err)
	}
	return item, nil
}

// UpdateItem applies the non-nil fields of req.
func (s *StoreService) UpdateItem(ctx context.Context, itemID uuid.UUID, req *store.UpdateItemRequest) (*store.Item, error) {
	var name *string
	if req.Name != nil {
		n := strings.TrimSpace(*req.Name)
		if n == "" {
			return nil, validationErr("name must not be empty")
		}
		name = &n
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, validationErr("price must not be negative")
	}
	var rarity *string
	if req.Rarity != nil {
		if !req.Rarity.IsValid() {
			return nil, validationErr("unknown rarity %q", *req.Rarity)
		}
		r := string(*req.Rarity)
		rarity = &r
	}

	query := `
	UPDATE store_items
	SET name = COALESCE($2, name),
		description = COALESCE($3, description),
		price = COALESCE($4, price),
		image_url = COALESCE($5, image_url),
		rarity = COALESCE($6, rarity),
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + itemColumns

	item, err := scanItem(s.db.QueryRow(ctx, query, itemID, name, req.Description, req.Price, req.ImageURL, rarity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, persistErr("update store item", err)
	}
	return item, nil
}

// DeleteItem removes the item from the catalogue and from every inventory.
func (s *StoreService) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM store_items WHERE id = $1`, itemID)
	if err != nil {
		return persistErr("delete store item", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

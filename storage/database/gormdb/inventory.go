package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/inventory"
)

type inventoryRepository struct {
	base
}

var _ inventory.Repository = (*inventoryRepository)(nil) // interface compliance check

func NewInventoryRepository(db *gorm.DB, observer ConstraintObserver) *inventoryRepository {
	return &inventoryRepository{base{db: db, observer: observer}}
}

func (repo inventoryRepository) CreateItem(ctx context.Context, scope auth.Scope, it inventory.Item) (inventory.Item, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return inventory.Item{}, err
	}
	it.ID, it.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &it, "item", "sku"); err != nil {
		return inventory.Item{}, err
	}
	return it, nil
}

func (repo inventoryRepository) QueryItems(ctx context.Context, scope auth.Scope, filter inventory.ItemFilter) ([]inventory.Item, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", val, val)
	}
	if filter.LowStock > 0 {
		tx = tx.Where("quantity <= ?", filter.LowStock)
	}
	var items []inventory.Item
	if err = tx.Order("name ASC").Find(&items).Error; err != nil {
		return nil, repo.translate(err, "querying items", "item")
	}
	return items, nil
}

func (repo inventoryRepository) GetItem(ctx context.Context, scope auth.Scope, id string) (inventory.Item, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return inventory.Item{}, err
	}
	var it inventory.Item
	if err = repo.first(tx, &it, id, "item"); err != nil {
		return inventory.Item{}, err
	}
	return it, nil
}

func (repo inventoryRepository) AdjustStock(ctx context.Context, scope auth.Scope, itemID string, delta int) (bool, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return false, err
	}
	res := tx.Model(&inventory.Item{}).
		Where("id = ? AND quantity + ? >= 0", itemID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if err = repo.translate(res.Error, "adjusting stock", "item"); err != nil {
		return false, err
	}
	return res.RowsAffected == 1, nil
}

func (repo inventoryRepository) CreateTransaction(ctx context.Context, scope auth.Scope, st inventory.StockTransaction) (inventory.StockTransaction, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return inventory.StockTransaction{}, err
	}
	st.ID, st.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &st, "stock transaction"); err != nil {
		return inventory.StockTransaction{}, err
	}
	return st, nil
}

func (repo inventoryRepository) QueryTransactions(ctx context.Context, scope auth.Scope, itemID string) ([]inventory.StockTransaction, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if itemID != "" {
		tx = tx.Where("item_id = ?", itemID)
	}
	var txs []inventory.StockTransaction
	if err = tx.Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, repo.translate(err, "querying stock transactions", "stock transaction")
	}
	return txs, nil
}

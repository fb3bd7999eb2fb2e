package inventory

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

var errInsufficientStock = core.NewValidationError(nil, core.FieldError{Field: "quantity", Error: "not enough stock"})

type (
	Repository interface {
		CreateItem(ctx context.Context, scope auth.Scope, it Item) (Item, error)
		QueryItems(ctx context.Context, scope auth.Scope, filter ItemFilter) ([]Item, error)
		GetItem(ctx context.Context, scope auth.Scope, id string) (Item, error)
		// AdjustStock adds `delta` to Item.Quantity in a single conditional update.
		// It returns false when the quantity would drop below zero.
		AdjustStock(ctx context.Context, scope auth.Scope, itemID string, delta int) (bool, error)

		CreateTransaction(ctx context.Context, scope auth.Scope, tx StockTransaction) (StockTransaction, error)
		QueryTransactions(ctx context.Context, scope auth.Scope, itemID string) ([]StockTransaction, error)
	}

	Service struct {
		repo   Repository
		authz  *auth.Authorizer
		logger core.Logger
	}
)

func NewService(repo Repository, authz *auth.Authorizer, logger core.Logger) *Service {
	return &Service{repo: repo, authz: authz, logger: logger}
}

func (svc *Service) CreateItem(ctx context.Context, p auth.Principal, schoolID string, ni NewItem) (Item, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleInventory, auth.Write)
	if err != nil {
		return Item{}, err
	}
	return svc.repo.CreateItem(ctx, scope, Item{Name: ni.Name, SKU: ni.SKU, Quantity: ni.Quantity, Unit: ni.Unit})
}

func (svc *Service) QueryItems(ctx context.Context, p auth.Principal, schoolID string, filter ItemFilter) ([]Item, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleInventory, auth.Read)
	if err != nil {
		return nil, err
	}
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryItems(ctx, scope, filter)
}

func (svc *Service) GetItem(ctx context.Context, p auth.Principal, schoolID, id string) (Item, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleInventory, auth.Read)
	if err != nil {
		return Item{}, err
	}
	return svc.repo.GetItem(ctx, scope, id)
}

// RecordTransaction moves stock in or out, then logs the movement.
// The stock update and the log insert are two separate writes: when the insert fails
// the stock stays adjusted and the failure is reported.
func (svc *Service) RecordTransaction(ctx context.Context, p auth.Principal, schoolID string, nt NewTransaction) (StockTransaction, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleInventory, auth.Write)
	if err != nil {
		return StockTransaction{}, err
	}
	if _, err = svc.repo.GetItem(ctx, scope, nt.ItemID); err != nil {
		return StockTransaction{}, err
	}

	delta := nt.Quantity
	if nt.Kind == KindOut {
		delta = -delta
	}
	ok, err := svc.repo.AdjustStock(ctx, scope, nt.ItemID, delta)
	if err != nil {
		return StockTransaction{}, errors.Wrap(err, "adjusting stock")
	}
	if !ok {
		return StockTransaction{}, errInsufficientStock
	}

	tx, err := svc.repo.CreateTransaction(ctx, scope, StockTransaction{
		ItemID:     nt.ItemID,
		Kind:       nt.Kind,
		Quantity:   nt.Quantity,
		Note:       nt.Note,
		RecordedBy: p.UserID,
	})
	if err != nil {
		svc.logger.Error("stock adjusted without transaction log", err, map[string]interface{}{
			"school_id": scope.SchoolID(),
			"item_id":   nt.ItemID,
			"delta":     delta,
		})
		return StockTransaction{}, errors.Wrap(err, "logging stock transaction")
	}
	return tx, nil
}

func (svc *Service) QueryTransactions(ctx context.Context, p auth.Principal, schoolID, itemID string) ([]StockTransaction, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleInventory, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryTransactions(ctx, scope, core.CleanString(itemID))
}

package inventory_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/inventory"
	testutil "github.com/trezcool/shule/tests"
)

func TestService_RecordTransaction(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 0)
	mok := env.NewTenant(t, "Institut Mokengeli", "mok", 0)
	staff := wima.As(auth.RoleStaff)

	chalk, err := env.InventorySvc.CreateItem(ctx, staff, "", inventory.NewItem{Name: "Chalk", SKU: "CHK-01", Quantity: 10, Unit: "box"})
	require.NoError(t, err)
	_, err = env.InventorySvc.CreateItem(ctx, staff, "", inventory.NewItem{Name: "Chalk again", SKU: "CHK-01"})
	assert.True(t, core.IsConstraintError(err), "got %v", err)

	tests := []struct {
		name     string
		p        auth.Principal
		nt       inventory.NewTransaction
		wantErr  error
		wantFld  string
		wantQty  int
		wantTxns int
	}{
		{
			name:    "accountant only reads inventory",
			p:       wima.As(auth.RoleAccountant),
			nt:      inventory.NewTransaction{ItemID: chalk.ID, Kind: inventory.KindIn, Quantity: 1},
			wantErr: core.ErrForbidden,
		},
		{
			name:    "item of another school",
			p:       mok.Admin,
			nt:      inventory.NewTransaction{ItemID: chalk.ID, Kind: inventory.KindIn, Quantity: 1},
			wantErr: core.ErrNotFound,
		},
		{
			name:     "stock in",
			p:        staff,
			nt:       inventory.NewTransaction{ItemID: chalk.ID, Kind: inventory.KindIn, Quantity: 5, Note: "delivery"},
			wantQty:  15,
			wantTxns: 1,
		},
		{
			name:     "stock out",
			p:        staff,
			nt:       inventory.NewTransaction{ItemID: chalk.ID, Kind: inventory.KindOut, Quantity: 15},
			wantQty:  0,
			wantTxns: 2,
		},
		{
			name:     "insufficient stock",
			p:        staff,
			nt:       inventory.NewTransaction{ItemID: chalk.ID, Kind: inventory.KindOut, Quantity: 1},
			wantFld:  "quantity",
			wantQty:  0,
			wantTxns: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.InventorySvc.RecordTransaction(ctx, tt.p, "", tt.nt)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantFld != "":
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "got %v", err)
				assert.Equal(t, tt.wantFld, vErr.Fields[0].Field)
			default:
				require.NoError(t, err)
			}

			item, err := env.InventorySvc.GetItem(ctx, staff, "", chalk.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, item.Quantity)
			txns, err := env.InventorySvc.QueryTransactions(ctx, staff, "", chalk.ID)
			require.NoError(t, err)
			assert.Len(t, txns, tt.wantTxns)
		})
	}

	low, err := env.InventorySvc.QueryItems(ctx, wima.As(auth.RoleAccountant), "", inventory.ItemFilter{LowStock: 1})
	require.NoError(t, err)
	assert.Len(t, low, 1)
}

package finance_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/finance"
	testutil "github.com/trezcool/shule/tests"
)

func TestService_Record(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 1)
	mok := env.NewTenant(t, "Institut Mokengeli", "mok", 1)
	accountant := wima.As(auth.RoleAccountant)

	pay := func(studentID, receipt string) finance.NewPayment {
		return finance.NewPayment{
			ReceiptNo: receipt,
			StudentID: studentID,
			FeeType:   "tuition",
			Amount:    150000,
			Method:    finance.MethodCash,
		}
	}

	tests := []struct {
		name    string
		p       auth.Principal
		np      finance.NewPayment
		wantErr error
	}{
		{name: "teacher cannot collect", p: wima.As(auth.RoleTeacher), np: pay(wima.Students[0].ID, ""), wantErr: core.ErrForbidden},
		{name: "principal only reads finance", p: wima.As(auth.RolePrincipal), np: pay(wima.Students[0].ID, ""), wantErr: core.ErrForbidden},
		{name: "student of another school", p: accountant, np: pay(mok.Students[0].ID, ""), wantErr: core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.FinanceSvc.Record(ctx, tt.p, "", tt.np)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("generated receipt", func(t *testing.T) {
		pmt, err := env.FinanceSvc.Record(ctx, accountant, "", pay(wima.Students[0].ID, ""))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(pmt.ReceiptNo, "RCPT-"), pmt.ReceiptNo)
		assert.Equal(t, finance.StatusPaid, pmt.Status)
		assert.Equal(t, wima.School.ID, pmt.SchoolID)
	})

	t.Run("receipt number unique per school", func(t *testing.T) {
		_, err := env.FinanceSvc.Record(ctx, accountant, "", pay(wima.Students[0].ID, "R-1"))
		require.NoError(t, err)

		_, err = env.FinanceSvc.Record(ctx, accountant, "", pay(wima.Students[0].ID, "R-1"))
		var cErr *core.ConstraintError
		require.True(t, errors.As(err, &cErr), "got %v", err)
		assert.Equal(t, []string{"receipt_no"}, cErr.Fields)

		_, err = env.FinanceSvc.Record(ctx, mok.As(auth.RoleAccountant), "", pay(mok.Students[0].ID, "R-1"))
		assert.NoError(t, err)
	})

	t.Run("status update", func(t *testing.T) {
		pmt, err := env.FinanceSvc.Record(ctx, accountant, "", pay(wima.Students[0].ID, "R-2"))
		require.NoError(t, err)

		_, err = env.FinanceSvc.UpdateStatus(ctx, mok.As(auth.RoleAccountant), "", pmt.ID, finance.UpdateStatus{Status: finance.StatusRefunded})
		assert.ErrorIs(t, err, core.ErrNotFound)

		remarks := "cheque bounced"
		pmt, err = env.FinanceSvc.UpdateStatus(ctx, accountant, "", pmt.ID, finance.UpdateStatus{Status: finance.StatusFailed, Remarks: &remarks})
		require.NoError(t, err)
		assert.Equal(t, finance.StatusFailed, pmt.Status)
		assert.Equal(t, remarks, pmt.Remarks)
	})
}

func TestService_ExportTransactions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 2)
	mok := env.NewTenant(t, "Institut Mokengeli", "mok", 1)
	accountant := wima.As(auth.RoleAccountant)

	payments := []finance.NewPayment{
		{ReceiptNo: "R-1", StudentID: wima.Students[0].ID, FeeType: "tuition", Amount: 150000, Method: finance.MethodCash, PaidAt: "2024-09-02"},
		{ReceiptNo: "R-2", StudentID: wima.Students[1].ID, FeeType: "library", Amount: 2550, Method: finance.MethodMobileMoney, PaidBy: "Mama", PaidAt: "2024-10-14"},
		{ReceiptNo: "R-3", StudentID: wima.Students[0].ID, FeeType: "hostel", Amount: 99, Method: finance.MethodCard, Status: finance.StatusPending, PaidAt: "2024-11-05"},
	}
	for _, np := range payments {
		_, err := env.FinanceSvc.Record(ctx, accountant, "", np)
		require.NoError(t, err)
	}
	_, err := env.FinanceSvc.Record(ctx, mok.As(auth.RoleAccountant), "", finance.NewPayment{
		ReceiptNo: "M-1",
		StudentID: mok.Students[0].ID,
		FeeType:   "tuition",
		Amount:    1,
		Method:    finance.MethodCash,
		PaidAt:    "2024-10-14",
	})
	require.NoError(t, err)

	t.Run("students and parents cannot export", func(t *testing.T) {
		_, err := env.FinanceSvc.ExportTransactions(ctx, wima.As(auth.RoleParent), "", finance.QueryFilter{})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("all", func(t *testing.T) {
		data, err := env.FinanceSvc.ExportTransactions(ctx, wima.As(auth.RolePrincipal), "", finance.QueryFilter{})
		require.NoError(t, err)
		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)

		assert.Equal(t, [][]string{
			finance.TransactionsHeader,
			{"2024-11-05", "R-3", "Student 1", "wima-001", "0.99", "card", "", "pending", ""},
			{"2024-10-14", "R-2", "Student 2", "wima-002", "25.50", "mobile_money", "Mama", "paid", ""},
			{"2024-09-02", "R-1", "Student 1", "wima-001", "1500.00", "cash", "", "paid", ""},
		}, rows)
	})

	t.Run("date range", func(t *testing.T) {
		data, err := env.FinanceSvc.ExportTransactions(ctx, accountant, "", finance.QueryFilter{From: "2024-10-01", To: "2024-10-14"})
		require.NoError(t, err)
		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		if assert.Len(t, rows, 2) {
			assert.Equal(t, "R-2", rows[1][1])
		}
	})

	t.Run("bad range", func(t *testing.T) {
		_, err := env.FinanceSvc.ExportTransactions(ctx, accountant, "", finance.QueryFilter{From: "2024-10-14", To: "2024-10-01"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		assert.Equal(t, "to", vErr.Fields[0].Field)
	})

	t.Run("super admin names the school", func(t *testing.T) {
		data, err := env.FinanceSvc.ExportTransactions(ctx, auth.System, mok.School.ID, finance.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(string(data), "\n"))
	})
}

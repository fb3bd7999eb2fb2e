package finance

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/student"
)

// TransactionsHeader is the header row of the transactions export.
var TransactionsHeader = []string{
	"Date",
	"Receipt Number",
	"Student Name",
	"Admission No",
	"Amount Paid",
	"Method",
	"Paid By",
	"Status",
	"Remarks",
}

// WriteTransactionsCSV writes one row per payment. Payments of students missing from `students` get empty name columns.
func WriteTransactionsCSV(w io.Writer, payments []FeePayment, students map[string]student.Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionsHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, pmt := range payments {
		std := students[pmt.StudentID]
		row := []string{
			pmt.PaidAt.UTC().Format("2006-01-02"),
			pmt.ReceiptNo,
			std.Name,
			std.AdmissionNo,
			FormatAmount(pmt.Amount),
			string(pmt.Method),
			pmt.PaidBy,
			string(pmt.Status),
			pmt.Remarks,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing receipt %s", pmt.ReceiptNo)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// TransactionsCSV buffers the whole export in memory.
func TransactionsCSV(payments []FeePayment, students map[string]student.Student) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, payments, students); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

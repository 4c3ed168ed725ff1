package reports

import (
	"bytes"
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
)

const transactionsSheet = "Transactions"

var transactionHeaders = []string{"ID", "Date", "User", "Email", "Type", "Description", "Amount", "Status", "PayFast Reference"}

// TransactionsXLSX writes payment transactions to a workbook
func TransactionsXLSX(transactions []models.PaymentTransaction) ([]byte, error) {
	file := excelize.NewFile()
	index := file.NewSheet(transactionsSheet)
	file.DeleteSheet("Sheet1")
	file.SetActiveSheet(index)

	for col, header := range transactionHeaders {
		file.SetCellValue(transactionsSheet, cell(col, 1), header)
	}

	var total float64
	for i, t := range transactions {
		row := i + 2
		r := t.Response()
		values := []interface{}{
			t.ID,
			t.CreatedAt.Format("2006-01-02 15:04"),
			r.UserName,
			r.UserEmail,
			t.TransactionType,
			t.Description,
			t.Amount,
			t.Status,
			t.Reference,
		}
		for col, v := range values {
			file.SetCellValue(transactionsSheet, cell(col, row), v)
		}
		if t.Status == models.TransactionComplete {
			total += t.Amount
		}
	}

	totalRow := len(transactions) + 3
	file.SetCellValue(transactionsSheet, cell(5, totalRow), "Completed total")
	file.SetCellValue(transactionsSheet, cell(6, totalRow), total)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cell converts a zero based column and one based row to an A1 reference
func cell(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return fmt.Sprintf("%s%d", name, row)
}

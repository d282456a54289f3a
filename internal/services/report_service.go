package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

var billReportHeader = []string{
	"Bill Number", "Tenant", "Billing Period", "Issue Date", "Due Date",
	"Total Amount", "Amount Paid", "Balance", "Status", "Days Overdue",
}

var paymentReportHeader = []string{
	"Payment Number", "Tenant", "Bill Number", "Payment Date", "Method", "Reference",
	"Amount", "Applied", "Credited", "Status",
}

var balanceReportHeader = []string{
	"Tenant", "Open Bills", "Outstanding", "Credit", "Net Due", "Max Days Overdue",
}

type ReportService struct {
	billRepo    repository.BillRepository
	paymentRepo repository.PaymentRepository
	ledgerRepo  repository.LedgerRepository
	receiptRepo repository.ReceiptRepository
	currency    string
}

func NewReportService(
	billRepo repository.BillRepository,
	paymentRepo repository.PaymentRepository,
	ledgerRepo repository.LedgerRepository,
	receiptRepo repository.ReceiptRepository,
	currency string,
) *ReportService {
	return &ReportService{
		billRepo:    billRepo,
		paymentRepo: paymentRepo,
		ledgerRepo:  ledgerRepo,
		receiptRepo: receiptRepo,
		currency:    currency,
	}
}

// reportBills loads every bill matching the filters, without pagination
func (s *ReportService) reportBills(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]models.Bill, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can export reports")
	}
	query.PerPage = 0
	bills, _, err := s.billRepo.List(ctx, wc.WorkspaceID, query)
	return bills, err
}

func billRow(b models.Bill) []string {
	return []string{
		b.BillNumber,
		b.Tenant.FullName,
		b.BillingPeriod,
		b.IssueDate.Format("2006-01-02"),
		b.DueDate.Format("2006-01-02"),
		b.TotalAmount.StringFixed(2),
		b.AmountPaid.StringFixed(2),
		b.Balance.StringFixed(2),
		b.Status,
		fmt.Sprintf("%d", b.DaysOverdue),
	}
}

// BillsCSV generates a CSV report of bills matching the filters
func (s *ReportService) BillsCSV(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) (*bytes.Buffer, error) {
	bills, err := s.reportBills(ctx, wc, query)
	if err != nil {
		return nil, err
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)
	if err := w.Write(billReportHeader); err != nil {
		return nil, err
	}
	for _, bill := range bills {
		if err := w.Write(billRow(bill)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return b, w.Error()
}

// BillsXLSX generates the same report as a spreadsheet with a totals row
func (s *ReportService) BillsXLSX(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]byte, string, error) {
	bills, err := s.reportBills(ctx, wc, query)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Bills"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})

	for i, h := range billReportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, "A1", "J1", headerStyle)

	total, paid, balance := decimal.Zero, decimal.Zero, decimal.Zero
	for i, b := range bills {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), b.BillNumber)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), b.Tenant.FullName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), b.BillingPeriod)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), b.IssueDate.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), b.DueDate.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), b.TotalAmount.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), b.AmountPaid.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), b.Balance.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), b.Status)
		_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", row), b.DaysOverdue)

		total = total.Add(b.TotalAmount)
		paid = paid.Add(b.AmountPaid)
		balance = balance.Add(b.Balance)
	}

	totalsRow := len(bills) + 2
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", totalsRow), total.InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", totalsRow), paid.InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", totalsRow), balance.InexactFloat64())
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalsRow), fmt.Sprintf("J%d", totalsRow), headerStyle)
	_ = f.SetCellStyle(sheet, "F2", fmt.Sprintf("H%d", totalsRow), moneyStyle)
	_ = f.SetColWidth(sheet, "A", "C", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("bills_report_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// PaymentsCSV exports the payments matching the filters
func (s *ReportService) PaymentsCSV(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) (*bytes.Buffer, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can export reports")
	}
	query.PerPage = 0
	payments, _, err := s.paymentRepo.List(ctx, wc.WorkspaceID, query)
	if err != nil {
		return nil, err
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)
	if err := w.Write(paymentReportHeader); err != nil {
		return nil, err
	}
	for _, p := range payments {
		billNumber := ""
		if p.Bill != nil {
			billNumber = p.Bill.BillNumber
		}
		if err := w.Write([]string{
			p.PaymentNumber,
			p.Tenant.FullName,
			billNumber,
			p.PaymentDate.Format("2006-01-02"),
			p.PaymentMethod,
			lo.FromPtr(p.ReferenceNumber),
			p.Amount.StringFixed(2),
			p.AppliedAmount.StringFixed(2),
			p.ExcessAmount.StringFixed(2),
			p.Status,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return b, w.Error()
}

// TenantBalance is one row of the outstanding balances report
type TenantBalance struct {
	TenantID       uint
	TenantName     string
	OpenBills      int
	Outstanding    decimal.Decimal
	Credit         decimal.Decimal
	MaxDaysOverdue int
}

// NetDue is what the tenant still owes once unapplied credit is counted
func (t TenantBalance) NetDue() decimal.Decimal {
	return decimal.Max(t.Outstanding.Sub(t.Credit), decimal.Zero)
}

// TenantBalances sums the open bills of every tenant owing money, with the credit they hold
func (s *ReportService) TenantBalances(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]TenantBalance, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can export reports")
	}
	query.PerPage = 0
	query.Filters["status"] = models.BillStatusPending + "," + models.BillStatusPartial + "," + models.BillStatusOverdue
	bills, _, err := s.billRepo.List(ctx, wc.WorkspaceID, query)
	if err != nil {
		return nil, err
	}

	balances := make([]TenantBalance, 0)
	for tenantID, open := range lo.GroupBy(bills, func(b models.Bill) uint { return b.TenantID }) {
		credit, err := s.ledgerRepo.CreditBalance(ctx, wc.WorkspaceID, tenantID)
		if err != nil {
			return nil, err
		}
		balances = append(balances, TenantBalance{
			TenantID:       tenantID,
			TenantName:     open[0].Tenant.FullName,
			OpenBills:      len(open),
			Outstanding:    lo.Reduce(open, func(sum decimal.Decimal, b models.Bill, _ int) decimal.Decimal { return sum.Add(b.Balance) }, decimal.Zero),
			Credit:         credit,
			MaxDaysOverdue: lo.Max(lo.Map(open, func(b models.Bill, _ int) int { return b.DaysOverdue })),
		})
	}

	sort.Slice(balances, func(i, j int) bool {
		if c := balances[i].Outstanding.Cmp(balances[j].Outstanding); c != 0 {
			return c > 0
		}
		return balances[i].TenantID < balances[j].TenantID
	})
	return balances, nil
}

// BalancesCSV exports TenantBalances
func (s *ReportService) BalancesCSV(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) (*bytes.Buffer, error) {
	balances, err := s.TenantBalances(ctx, wc, query)
	if err != nil {
		return nil, err
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)
	if err := w.Write(balanceReportHeader); err != nil {
		return nil, err
	}
	for _, tb := range balances {
		if err := w.Write([]string{
			tb.TenantName,
			fmt.Sprintf("%d", tb.OpenBills),
			tb.Outstanding.StringFixed(2),
			tb.Credit.StringFixed(2),
			tb.NetDue().StringFixed(2),
			fmt.Sprintf("%d", tb.MaxDaysOverdue),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return b, w.Error()
}

// ReceiptPDF renders the receipt of a verified payment
func (s *ReportService) ReceiptPDF(ctx context.Context, wc models.WorkspaceContext, paymentID uint) ([]byte, string, error) {
	receipt, err := s.receiptRepo.FindByPaymentID(ctx, wc.WorkspaceID, paymentID)
	if err != nil {
		return nil, "", translate(err, "receipt")
	}
	if wc.IsTenant() && (wc.TenantID == nil || receipt.TenantID != *wc.TenantID) {
		return nil, "", newError(ErrNotFound, "receipt not found")
	}
	payment := receipt.Payment

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Official Receipt")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.Cell(45, 7, label)
		pdf.Cell(60, 7, value)
		pdf.Ln(6)
	}

	line("Receipt No.:", receipt.ReceiptNumber)
	line("Date:", receipt.ReceiptDate.Format("January 2, 2006"))
	line("Received from:", receipt.Tenant.FullName)
	line("Payment No.:", payment.PaymentNumber)
	line("Method:", payment.PaymentMethod)
	if payment.ReferenceNumber != nil {
		line("Reference:", *payment.ReferenceNumber)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	line("Amount received:", fmt.Sprintf("%s %s", s.currency, receipt.AmountReceived.StringFixed(2)))
	pdf.SetFont("Arial", "", 10)

	if payment.Bill != nil {
		line("Applied to bill:", fmt.Sprintf("%s (%s)", payment.Bill.BillNumber, payment.Bill.BillingPeriod))
		line("Amount applied:", fmt.Sprintf("%s %s", s.currency, payment.AppliedAmount.StringFixed(2)))
		line("Remaining balance:", fmt.Sprintf("%s %s", s.currency, payment.Bill.Balance.StringFixed(2)))
	}
	if payment.ExcessAmount.IsPositive() {
		line("Credited to account:", fmt.Sprintf("%s %s", s.currency, payment.ExcessAmount.StringFixed(2)))
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("receipt_%s.pdf", receipt.ReceiptNumber)
	return buf.Bytes(), filename, nil
}

// Package document renders loan paperwork in machine-readable formats.
package document

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/segyhp/microcredit-engine/internal/billing"
	"github.com/segyhp/microcredit-engine/internal/domain"
)

const (
	rootElement   = "LoanAgreement"
	schemaVersion = "1.0"
)

// ScheduleXML renders the loan terms and its repayment schedule
func ScheduleXML(loan *domain.Loan, installments []*domain.Installment, generatedAt time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(rootElement)
	root.CreateAttr("version", schemaVersion)
	root.CreateAttr("generatedAt", generatedAt.UTC().Format(time.RFC3339))

	terms := root.CreateElement("Loan")
	terms.CreateAttr("id", loan.ID.String())
	terms.CreateElement("LoanNumber").SetText(loan.LoanNumber)
	terms.CreateElement("CustomerID").SetText(loan.CustomerID)
	terms.CreateElement("Principal").SetText(loan.Principal.StringFixed(2))
	terms.CreateElement("TermMonths").SetText(strconv.Itoa(loan.TermMonths))
	terms.CreateElement("Multiplier").SetText(billing.Multiplier(loan.TermMonths, loan.InterestRate).String())
	terms.CreateElement("TotalWithInterest").SetText(loan.TotalWithInterest.StringFixed(2))
	terms.CreateElement("StartDate").SetText(loan.StartDate.Format(domain.DateLayout))
	terms.CreateElement("DueDate").SetText(loan.DueDate.Format(domain.DateLayout))
	terms.CreateElement("Status").SetText(loan.Status)
	terms.CreateElement("AmountPaid").SetText(loan.AmountPaid.StringFixed(2))
	terms.CreateElement("AmountRemaining").SetText(loan.AmountRemaining.StringFixed(2))

	schedule := root.CreateElement("Schedule")
	schedule.CreateAttr("count", strconv.Itoa(len(installments)))
	for _, inst := range installments {
		el := schedule.CreateElement("Installment")
		el.CreateAttr("sequence", strconv.Itoa(inst.Sequence))
		el.CreateAttr("paid", strconv.FormatBool(inst.Paid))
		el.CreateElement("DueDate").SetText(inst.DueDate.Format(domain.DateLayout))
		el.CreateElement("Amount").SetText(inst.Amount.StringFixed(2))
		el.CreateElement("AmountPaid").SetText(inst.AmountPaid.StringFixed(2))
		el.CreateElement("AmountLeft").SetText(inst.AmountLeft.StringFixed(2))
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("render schedule xml: %w", err)
	}
	return out, nil
}

package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/domain"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailNotifier struct {
	sender Sender
	from   string
}

func NewEmailNotifier(cfg config.NotificationConfig) *EmailNotifier {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return NewEmailNotifierWithSender(dialer, cfg.From)
}

func NewEmailNotifierWithSender(sender Sender, from string) *EmailNotifier {
	return &EmailNotifier{sender: sender, from: from}
}

func (n *EmailNotifier) send(to, subject, body string) error {
	// Loans without a contact address are simply not notified
	if to == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) LoanCreated(ctx context.Context, loan *domain.Loan) error {
	subject := fmt.Sprintf("Loan %s created", loan.LoanNumber)
	body := fmt.Sprintf("Hello,\n\nYour loan %s of %s has been registered.\n\nTotal to repay: %s over %d month(s), final due date %s.\n\nThank you.",
		loan.LoanNumber,
		loan.Principal.StringFixed(2),
		loan.TotalWithInterest.StringFixed(2),
		loan.TermMonths,
		loan.DueDate.Format(domain.DateLayout),
	)
	return n.send(loan.CustomerEmail, subject, body)
}

func (n *EmailNotifier) PaymentReceived(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error {
	subject := fmt.Sprintf("Payment received for loan %s", loan.LoanNumber)
	body := fmt.Sprintf("Hello,\n\nWe received your payment of %s on %s.\n\nPaid so far: %s\nRemaining balance: %s\n\nThank you.",
		payment.Amount.StringFixed(2),
		payment.ReceivedAt.Format(domain.DateLayout),
		loan.AmountPaid.StringFixed(2),
		loan.AmountRemaining.StringFixed(2),
	)
	return n.send(loan.CustomerEmail, subject, body)
}

func (n *EmailNotifier) LoanCompleted(ctx context.Context, loan *domain.Loan) error {
	subject := fmt.Sprintf("Loan %s fully repaid", loan.LoanNumber)
	body := fmt.Sprintf("Hello,\n\nYour loan %s is now fully repaid (%s in total).\n\nThank you for borrowing with us.",
		loan.LoanNumber,
		loan.AmountPaid.StringFixed(2),
	)
	return n.send(loan.CustomerEmail, subject, body)
}

func (n *EmailNotifier) InstallmentReminder(ctx context.Context, due *domain.DueInstallment) error {
	subject := fmt.Sprintf("Installment %d of loan %s is due soon", due.Sequence, due.LoanNumber)
	body := fmt.Sprintf("Hello,\n\nInstallment %d of loan %s is due on %s.\n\nAmount left to pay: %s\n\nThank you.",
		due.Sequence,
		due.LoanNumber,
		due.DueDate.Format(domain.DateLayout),
		due.AmountLeft.StringFixed(2),
	)
	return n.send(due.CustomerEmail, subject, body)
}

package notification

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

type fakeSender struct {
	messages []*gomail.Message
	err      error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, m...)
	return nil
}

func testLoan() *domain.Loan {
	return &domain.Loan{
		ID:                uuid.New(),
		LoanNumber:        "MC-0001",
		CustomerEmail:     "borrower@example.com",
		Principal:         decimal.NewFromInt(1000),
		TermMonths:        3,
		TotalWithInterest: decimal.NewFromInt(1425),
		AmountPaid:        decimal.NewFromInt(475),
		AmountRemaining:   decimal.NewFromInt(950),
		DueDate:           time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
	}
}

func body(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestEmailNotifier_PaymentReceived(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewEmailNotifierWithSender(sender, "loans@example.com")

	payment := &domain.Payment{
		ID:         uuid.New(),
		Amount:     decimal.NewFromInt(475),
		ReceivedAt: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC),
	}

	err := notifier.PaymentReceived(context.Background(), testLoan(), payment)
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	m := sender.messages[0]
	assert.Equal(t, []string{"borrower@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"loans@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"Payment received for loan MC-0001"}, m.GetHeader("Subject"))
	assert.Contains(t, body(t, m), "950.00")
}

func TestEmailNotifier_SkipsLoansWithoutEmail(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewEmailNotifierWithSender(sender, "loans@example.com")

	loan := testLoan()
	loan.CustomerEmail = ""

	require.NoError(t, notifier.LoanCreated(context.Background(), loan))
	assert.Empty(t, sender.messages)
}

func TestEmailNotifier_Reminder(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewEmailNotifierWithSender(sender, "loans@example.com")

	due := &domain.DueInstallment{
		Installment: domain.Installment{
			Sequence:   2,
			AmountLeft: decimal.NewFromInt(475),
			DueDate:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		LoanNumber:    "MC-0001",
		CustomerEmail: "borrower@example.com",
	}

	require.NoError(t, notifier.InstallmentReminder(context.Background(), due))
	require.Len(t, sender.messages, 1)
	assert.Contains(t, body(t, sender.messages[0]), "2024-03-15")
}

func TestEmailNotifier_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	notifier := NewEmailNotifierWithSender(sender, "loans@example.com")

	err := notifier.LoanCompleted(context.Background(), testLoan())
	assert.ErrorContains(t, err, "smtp down")
}

type flakyNotifier struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyNotifier) attempt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("temporary failure")
	}
	return nil
}

func (f *flakyNotifier) LoanCreated(ctx context.Context, loan *domain.Loan) error { return f.attempt() }
func (f *flakyNotifier) PaymentReceived(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error {
	return f.attempt()
}
func (f *flakyNotifier) LoanCompleted(ctx context.Context, loan *domain.Loan) error { return f.attempt() }
func (f *flakyNotifier) InstallmentReminder(ctx context.Context, due *domain.DueInstallment) error {
	return f.attempt()
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	logger, hook := test.NewNullLogger()
	next := &flakyNotifier{failures: 2}
	dispatcher := NewDispatcher(next, logger, 3, time.Millisecond)

	err := dispatcher.LoanCreated(context.Background(), testLoan())
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, 3, next.calls)
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, entry.Level, "delivery eventually succeeded")
	}
}

func TestDispatcher_LogsDroppedNotification(t *testing.T) {
	logger, hook := test.NewNullLogger()
	next := &flakyNotifier{failures: 10}
	dispatcher := NewDispatcher(next, logger, 2, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	err := dispatcher.PaymentReceived(ctx, testLoan(), &domain.Payment{ID: uuid.New()})
	cancel()

	assert.NoError(t, err, "failures never reach the caller")
	dispatcher.Wait()

	assert.Equal(t, 2, next.calls)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "payment_received", hook.LastEntry().Data["event"])
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	notifier := NewLogNotifier(logger)

	require.NoError(t, notifier.LoanCompleted(context.Background(), testLoan()))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "MC-0001", hook.LastEntry().Data["loan_number"])
}

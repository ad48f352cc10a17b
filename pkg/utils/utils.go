package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyEpsilon is the smallest balance still considered outstanding.
var MoneyEpsilon = decimal.New(1, -2)

// RoundMoney rounds an amount to 2 decimal places (half away from zero)
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// NonNegative floors an amount at zero
func NonNegative(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// IsSettled reports whether a remaining balance is within one cent of zero
func IsSettled(remaining decimal.Decimal) bool {
	return remaining.LessThanOrEqual(MoneyEpsilon)
}

// AddMonths adds calendar months to a date. When the target month is shorter
// than the source day, the day is clamped to the last day of that month
// (Jan 31 + 1 month = Feb 28/29).
func AddMonths(date time.Time, months int) time.Time {
	year, month, day := date.Date()
	first := time.Date(year, month+time.Month(months), 1,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())

	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(first.Year(), first.Month(), day,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

// CalculateDueDate calculates the due date for a specific installment.
// Installment 1 is due one month after the start date, installment 2 two months after, etc.
func CalculateDueDate(startDate time.Time, sequence int) time.Time {
	return AddMonths(startDate, sequence)
}

// TruncateToDate drops the clock part of a timestamp, keeping its calendar date in UTC
func TruncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsDateOverdue checks if the calendar date of now is strictly after the due date
func IsDateOverdue(dueDate time.Time, now time.Time) bool {
	return TruncateToDate(now).After(TruncateToDate(dueDate))
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/segyhp/microcredit-engine/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amounts(t *testing.T, values ...string) []decimal.Decimal {
	t.Helper()
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		out = append(out, dec(v))
	}
	return out
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		term     int
		rate     string
		expected string
	}{
		{term: 1, rate: "0", expected: "1.20"},
		{term: 2, rate: "0", expected: "1.31"},
		{term: 3, rate: "0", expected: "1.425"},
		{term: 4, rate: "0", expected: "1.56"},
		{term: 5, rate: "0", expected: "1.67"},
		{term: 6, rate: "0", expected: "1.83"},
		{term: 3, rate: "99", expected: "1.425"},
		{term: 9, rate: "25", expected: "1.25"},
	}

	for _, tt := range tests {
		result := Multiplier(tt.term, dec(tt.rate))
		assert.True(t, result.Equal(dec(tt.expected)), "term %d: expected %s, got %s", tt.term, tt.expected, result)
	}
}

func TestGenerateSchedule(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		principal string
		term      int
		expected  []string
	}{
		{name: "even split", principal: "1000", term: 3, expected: []string{"475", "475", "475"}},
		{name: "single month", principal: "1000", term: 1, expected: []string{"1200"}},
		{name: "remainder on last installment", principal: "7", term: 6, expected: []string{"2.13", "2.13", "2.13", "2.13", "2.13", "2.16"}},
		{name: "half cent total", principal: "1001", term: 3, expected: []string{"475.47", "475.47", "475.49"}},
		{name: "tiny principal", principal: "0.05", term: 6, expected: []string{"0.01", "0.01", "0.01", "0.01", "0.01", "0.04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loanID := uuid.New()

			schedule, err := GenerateSchedule(loanID, dec(tt.principal), tt.term, start, decimal.Zero)
			require.NoError(t, err)
			require.Len(t, schedule, tt.term)

			want := amounts(t, tt.expected...)
			sum := decimal.Zero
			for i, inst := range schedule {
				assert.Equal(t, i+1, inst.Sequence)
				assert.Equal(t, loanID, inst.LoanID)
				assert.True(t, inst.Amount.Equal(want[i]), "installment %d: expected %s, got %s", i+1, want[i], inst.Amount)
				assert.True(t, inst.AmountPaid.IsZero())
				assert.True(t, inst.AmountLeft.Equal(inst.Amount))
				assert.False(t, inst.Paid)
				assert.Equal(t, start.AddDate(0, i+1, 0), inst.DueDate)
				sum = sum.Add(inst.Amount)
			}

			assert.True(t, sum.Equal(TotalDue(dec(tt.principal), tt.term, decimal.Zero)))
		})
	}
}

func TestGenerateSchedule_SumInvariant(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	principals := []string{"0.01", "0.05", "0.07", "1", "13.37", "99.99", "250.5", "1001", "12345.67", "999999.99"}

	for _, p := range principals {
		for term := 1; term <= 6; term++ {
			schedule, err := GenerateSchedule(uuid.New(), dec(p), term, start, decimal.Zero)
			if err != nil {
				assert.True(t, errors.Is(err, apperrors.ErrInvalidLoanAmount), "principal %s term %d", p, term)
				continue
			}

			sum := decimal.Zero
			for i, inst := range schedule {
				assert.False(t, inst.Amount.IsNegative())
				assert.False(t, inst.AmountLeft.IsNegative())
				if i > 0 && i < len(schedule)-1 {
					assert.True(t, inst.Amount.Equal(schedule[0].Amount), "only the last installment may differ")
				}
				sum = sum.Add(inst.Amount)
			}
			last := schedule[len(schedule)-1]
			assert.True(t, last.Amount.GreaterThanOrEqual(schedule[0].Amount), "principal %s term %d", p, term)
			assert.True(t, sum.Equal(TotalDue(dec(p), term, decimal.Zero)), "principal %s term %d", p, term)
		}
	}
}

func TestGenerateSchedule_ClampsDueDatesToMonthEnd(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	schedule, err := GenerateSchedule(uuid.New(), dec("600"), 3, start, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), schedule[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), schedule[1].DueDate)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), schedule[2].DueDate)
}

func TestGenerateSchedule_Validation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		principal string
		term      int
		start     time.Time
		expected  error
	}{
		{name: "zero term", principal: "100", term: 0, start: start, expected: apperrors.ErrInvalidLoanTerm},
		{name: "term too long", principal: "100", term: 7, start: start, expected: apperrors.ErrInvalidLoanTerm},
		{name: "zero principal", principal: "0", term: 3, start: start, expected: apperrors.ErrInvalidLoanAmount},
		{name: "fraction of a cent", principal: "1000.004", term: 6, start: start, expected: apperrors.ErrInvalidLoanAmount},
		{name: "negative principal", principal: "-10", term: 3, start: start, expected: apperrors.ErrInvalidLoanAmount},
		{name: "missing start", principal: "100", term: 3, start: time.Time{}, expected: apperrors.ErrInvalidStartDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := GenerateSchedule(uuid.New(), dec(tt.principal), tt.term, tt.start, decimal.Zero)

			assert.Nil(t, schedule)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestPreviewSchedule_RoundsUp(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	preview, err := PreviewSchedule(dec("7"), 6, start, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, preview.TotalDue.Equal(dec("12.81")))
	assert.True(t, preview.Multiplier.Equal(dec("1.83")))
	require.Len(t, preview.Installments, 6)
	for _, inst := range preview.Installments {
		assert.True(t, inst.Amount.Equal(dec("2.14")), "got %s", inst.Amount)
	}
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), preview.Installments[5].DueDate)
}

func TestPreviewSchedule_Validation(t *testing.T) {
	_, err := PreviewSchedule(dec("100"), 12, time.Now(), decimal.Zero)

	assert.ErrorIs(t, err, apperrors.ErrInvalidLoanTerm)
}

package register

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Golden vectors. The KI1I/00000008 pair comes from the portal's own
// validation behavior; the rest pin the algorithm against regressions.
func TestControlDigitGoldenVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		department string
		sequence   int64
		want       int
	}{
		{"KI1I", 8, 0},
		{"KI1I", 1, 1},
		{"WA1M", 1, 1},
		{"WA1M", 2, 8},
		{"WA1M", 12345678, 4},
		{"KR1P", 42, 1},
		{"GD1G", 0, 3},
	}

	for _, tt := range tests {
		got, err := ControlDigit(tt.department, tt.sequence)
		require.NoError(t, err, "%s/%d", tt.department, tt.sequence)
		require.Equal(t, tt.want, got, "%s/%d", tt.department, tt.sequence)
	}
}

func TestControlDigitIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := ControlDigit("WA1M", 77)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := ControlDigit("WA1M", 77)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestControlDigitRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		department string
		sequence   int64
	}{
		{"character outside alphabet", "QQ1Q", 1},
		{"lowercase department", "wa1m", 1},
		{"empty department", "", 1},
		{"negative sequence", "WA1M", -1},
		{"sequence too wide", "WA1M", 100000000},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ControlDigit(tt.department, tt.sequence)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestNewBookIDCarriesComputedDigit(t *testing.T) {
	t.Parallel()

	id, err := NewBookID("WA1M", 1)
	require.NoError(t, err)
	require.Equal(t, 1, id.ControlDigit)
	require.Equal(t, "WA1M/00000001/1", id.String())
	require.Equal(t, "00000001", id.SequenceText())
	require.NoError(t, id.Validate())
}

func TestValidateRejectsCorruptedDigit(t *testing.T) {
	t.Parallel()

	id, err := NewBookID("KI1I", 8)
	require.NoError(t, err)
	require.NoError(t, id.Validate())

	corrupted := id
	corrupted.ControlDigit = (id.ControlDigit + 1) % 10
	err = corrupted.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Error(), corrupted.String())
}

package period_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/period"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

//nolint:gochecknoglobals // Test fixture
var addrs = []string{"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"}

func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 14, 30, 45, 0, time.UTC)
}

func TestResolve_Presets(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	tests := []struct {
		kind  period.Kind
		start time.Time
	}{
		{period.LastHour, now.Add(-time.Hour)},
		{period.Today, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{period.LastWeek, now.Add(-7 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			got, err := period.Resolve(addrs, period.Preset(tt.kind), now)
			require.NoError(t, err)
			assert.True(t, got.Start.Equal(tt.start), "start %s, want %s", got.Start, tt.start)
			assert.True(t, got.End.Equal(now))
			assert.True(t, got.EndsAtNow(now))
		})
	}
}

func TestResolve_TodayUsesNowLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2024, 3, 15, 1, 0, 0, 0, loc) // 2024-03-14T16:00Z

	got, err := period.Resolve(addrs, period.Preset(period.Today), now)
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, loc)))
}

func TestResolve_Custom(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	got, err := period.Resolve(addrs, period.Range("2024-01-01", "2024-02-01T12:00"), now)
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got.End.Equal(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)))
	assert.False(t, got.EndsAtNow(now))

	// Equal bounds are a valid, empty period
	got, err = period.Resolve(addrs, period.Range("2024-01-01", "2024-01-01"), now)
	require.NoError(t, err)
	assert.Zero(t, got.Duration())

	// An end exactly at now is allowed
	got, err = period.Resolve(addrs, period.Range("2024-03-15", now.Format(time.RFC3339)), now)
	require.NoError(t, err)
	assert.True(t, got.EndsAtNow(now))
}

func TestResolve_ValidationOrder(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	tests := []struct {
		name  string
		addrs []string
		sel   period.Selector
		want  error
	}{
		{"no address beats everything", nil, period.Range("", "bogus"), roierr.ErrNoAddressSelected},
		{"no address with preset", []string{}, period.Preset(period.LastWeek), roierr.ErrNoAddressSelected},
		{"missing from", addrs, period.Range("", "2024-01-01"), roierr.ErrMissingDateField},
		{"missing to", addrs, period.Range("2024-01-01", "  "), roierr.ErrMissingDateField},
		{"missing beats invalid", addrs, period.Range("garbage", ""), roierr.ErrMissingDateField},
		{"invalid from", addrs, period.Range("2024-13-01", "2024-01-01"), roierr.ErrInvalidDate},
		{"invalid to", addrs, period.Range("2024-01-01", "yesterday"), roierr.ErrInvalidDate},
		{"out of order", addrs, period.Range("2024-02-01", "2024-01-01"), roierr.ErrInvalidPeriodOrder},
		{"order beats future", addrs, period.Range("2030-02-01", "2030-01-01"), roierr.ErrInvalidPeriodOrder},
		{"future end", addrs, period.Range("2024-01-01", now.Add(time.Second).Format(time.RFC3339)), roierr.ErrFutureDateNotAllowed},
		{"future both", addrs, period.Range("2030-01-01", "2030-01-02"), roierr.ErrFutureDateNotAllowed},
		{"unknown kind", addrs, period.Selector{Kind: period.Kind(42)}, roierr.ErrUnknownPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := period.Resolve(tt.addrs, tt.sel, now)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolve_UserMessages(t *testing.T) {
	t.Parallel()

	_, err := period.Resolve(addrs, period.Range("", "2024-01-01"), fixedNow())
	assert.Equal(t, "Please fill both date fields", roierr.UserMessage(err))

	_, err = period.Resolve(nil, period.Preset(period.Today), fixedNow())
	assert.Equal(t, "No address selected", roierr.UserMessage(err))
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	for _, sel := range []period.Selector{
		period.Preset(period.LastHour),
		period.Preset(period.Today),
		period.Preset(period.LastWeek),
		period.Range("2024-01-01", "2024-01-31"),
	} {
		a, errA := period.Resolve(addrs, sel, now)
		b, errB := period.Resolve(addrs, sel, now)
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, a, b)
	}
}

func TestEndsAtNow_SecondGranularity(t *testing.T) {
	t.Parallel()

	now := fixedNow().Add(300 * time.Millisecond)
	r := period.Resolved{End: fixedNow()}
	assert.True(t, r.EndsAtNow(now))
	assert.False(t, r.EndsAtNow(now.Add(time.Second)))
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]period.Kind{
		"last-hour": period.LastHour,
		"lastHour":  period.LastHour,
		"TODAY":     period.Today,
		"last_week": period.LastWeek,
		"lastWeek":  period.LastWeek,
		" custom ":  period.Custom,
	} {
		got, err := period.ParseKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseKind_Suggestion(t *testing.T) {
	t.Parallel()

	_, err := period.ParseKind("last-wek")
	require.ErrorIs(t, err, roierr.ErrUnknownPeriod)

	var te *roierr.TrackerError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Suggestion, "last-week")

	_, err = period.ParseKind("fortnight-ago-please")
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Suggestion, "use one of")
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*3600)
	for input, want := range map[string]time.Time{
		"2024-01-02":                time.Date(2024, 1, 2, 0, 0, 0, 0, loc),
		"2024-01-02T03:04":          time.Date(2024, 1, 2, 3, 4, 0, 0, loc),
		"2024-01-02T03:04:05":       time.Date(2024, 1, 2, 3, 4, 5, 0, loc),
		"2024-01-02T03:04:05Z":      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"2024-01-02T03:04:05+01:00": time.Date(2024, 1, 2, 2, 4, 5, 0, time.UTC),
	} {
		got, err := period.ParseDate(input, loc)
		require.NoError(t, err, input)
		assert.True(t, want.Equal(got), "%s: got %s want %s", input, got, want)
	}

	_, err := period.ParseDate("02/01/2024", loc)
	require.ErrorIs(t, err, roierr.ErrInvalidDate)
}

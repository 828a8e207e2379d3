package adherence

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func window(t *testing.T, start, end string) Window {
	t.Helper()
	return Window{Start: day(t, start), End: day(t, end)}
}

func TestDosesPerDay_Mapping(t *testing.T) {
	cases := map[string]int{
		"Four times daily":   4,
		"three times a day":  3,
		"Twice daily":        2,
		"once daily":         1,
		"as needed":          1,
		"":                   1,
		"whatever free text": 1,
		"TWICE":              2,
	}
	for freq, want := range cases {
		require.Equal(t, want, DosesPerDay(freq), "frequency %q", freq)
	}
}

func TestCompute_NoMedications(t *testing.T) {
	got := Compute(nil, window(t, "2025-07-01", "2025-07-31"))
	require.Equal(t, Report{}, got)
}

func TestCompute_ZeroLogs_RateZeroAndAllMissed(t *testing.T) {
	meds := []MedicationHistory{
		{ID: "a", Name: "A", Frequency: "twice daily", StartedOn: day(t, "2025-07-01")},
		{ID: "b", Name: "B", Frequency: "once daily", StartedOn: day(t, "2025-07-01")},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-03"))

	require.Equal(t, 0, got.AdherenceRatePercent)
	require.Equal(t, 0, got.TakenDoseCount)
	require.Equal(t, 9, got.MissedDoseCount) // 3 días * (2+1)
	require.Equal(t, 0, got.CurrentStreakDays)
}

func TestCompute_FullAdherence_TwiceDaily(t *testing.T) {
	meds := []MedicationHistory{
		{
			ID:        "a",
			Name:      "A",
			Frequency: "twice daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn:   []civil.Date{day(t, "2025-07-01"), day(t, "2025-07-02")},
		},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-02"))

	require.Equal(t, 100, got.AdherenceRatePercent)
	require.Equal(t, 4, got.TakenDoseCount)
	require.Equal(t, 0, got.MissedDoseCount)
	require.Equal(t, 2, got.CurrentStreakDays)
}

func TestCompute_MissingMostRecentDay_DoesNotBreakStreak(t *testing.T) {
	// El día de referencia sigue en curso: no suma racha pero tampoco
	// la corta. Solo cuenta 07-01.
	meds := []MedicationHistory{
		{
			ID:        "a",
			Name:      "A",
			Frequency: "twice daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn:   []civil.Date{day(t, "2025-07-01")},
		},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-02"))

	require.Equal(t, 4, got.TakenDoseCount+got.MissedDoseCount)
	require.Equal(t, 2, got.TakenDoseCount)
	require.Equal(t, 50, got.AdherenceRatePercent)
	require.Equal(t, 1, got.CurrentStreakDays)
}

func TestCompute_GapInThePast_BreaksStreak(t *testing.T) {
	meds := []MedicationHistory{
		{
			ID:        "a",
			Name:      "A",
			Frequency: "once daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn: []civil.Date{
				day(t, "2025-07-01"),
				day(t, "2025-07-03"),
				day(t, "2025-07-04"),
			},
		},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-04"))

	// 04 y 03 tomados, 02 corta; 01 ya no cuenta.
	require.Equal(t, 2, got.CurrentStreakDays)
}

func TestCompute_StreakRequiresEveryActiveMedication(t *testing.T) {
	meds := []MedicationHistory{
		{
			ID:        "a",
			Name:      "A",
			Frequency: "once daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn: []civil.Date{
				day(t, "2025-07-01"), day(t, "2025-07-02"), day(t, "2025-07-03"),
			},
		},
		{
			ID:        "b",
			Name:      "B",
			Frequency: "once daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn: []civil.Date{
				day(t, "2025-07-01"), day(t, "2025-07-03"),
			},
		},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-03"))

	// 03 completo para ambas; 02 le falta B => racha 1.
	require.Equal(t, 1, got.CurrentStreakDays)
}

func TestCompute_MedicationCreatedMidWindow_NotScoredBeforeItExists(t *testing.T) {
	meds := []MedicationHistory{
		{
			ID:        "late",
			Name:      "Late",
			Frequency: "once daily",
			StartedOn: day(t, "2025-07-02"),
			TakenOn:   []civil.Date{day(t, "2025-07-02")},
		},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-02"))

	// 07-01 no cuenta: la medicación no existía.
	require.Equal(t, 1, got.TakenDoseCount)
	require.Equal(t, 0, got.MissedDoseCount)
	require.Equal(t, 100, got.AdherenceRatePercent)
}

func TestCompute_MedicationCreatedAfterWindow_ContributesNothing(t *testing.T) {
	meds := []MedicationHistory{
		{ID: "f", Name: "Future", Frequency: "twice daily", StartedOn: day(t, "2025-08-10")},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-31"))
	require.Equal(t, Report{}, got)
}

func TestCompute_DuplicateLogsSameDate_CountOnce(t *testing.T) {
	meds := []MedicationHistory{
		{
			ID:        "a",
			Name:      "A",
			Frequency: "twice daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn: []civil.Date{
				day(t, "2025-07-01"), day(t, "2025-07-01"), day(t, "2025-07-01"),
			},
		},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-01"))

	require.Equal(t, 2, got.TakenDoseCount)
	require.Equal(t, 100, got.AdherenceRatePercent)
}

func TestCompute_RoundsHalfUp(t *testing.T) {
	// esperado = 2 (A) + 6 (B) = 8, tomado = 1 => 12.5% -> 13
	meds := []MedicationHistory{
		{
			ID: "a", Name: "A", Frequency: "once daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn:   []civil.Date{day(t, "2025-07-01")},
		},
		{
			ID: "b", Name: "B", Frequency: "three times daily",
			StartedOn: day(t, "2025-07-01"),
		},
	}
	got := Compute(meds, window(t, "2025-07-01", "2025-07-02"))
	require.Equal(t, 13, got.AdherenceRatePercent)
}

func TestCompute_Idempotent(t *testing.T) {
	meds := []MedicationHistory{
		{
			ID: "a", Name: "A", Frequency: "twice daily",
			StartedOn: day(t, "2025-07-01"),
			TakenOn:   []civil.Date{day(t, "2025-07-01"), day(t, "2025-07-03")},
		},
	}
	w := window(t, "2025-07-01", "2025-07-05")

	first := Compute(meds, w)
	second := Compute(meds, w)
	require.Equal(t, first, second)
}

func TestParseDay_Malformed(t *testing.T) {
	_, err := ParseDay("07/01/2025")
	require.ErrorIs(t, err, ErrDataFormat)

	_, err = ParseDay("")
	require.ErrorIs(t, err, ErrDataFormat)

	d, err := ParseDay(" 2025-07-01 ")
	require.NoError(t, err)
	require.Equal(t, "2025-07-01", d.String())
}

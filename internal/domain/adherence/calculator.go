package adherence

import (
	"math"
	"sort"

	"cloud.google.com/go/civil"
)

// MedicationHistory es el insumo del cálculo: una medicación con su fecha
// de alta y los días calendario con al menos una toma registrada.
// TakenOn puede traer duplicados; acá se deduplica por fecha, así que dos
// logs el mismo día nunca cuentan doble.
type MedicationHistory struct {
	ID        string
	Name      string
	Frequency string
	StartedOn civil.Date
	TakenOn   []civil.Date
}

// Window es el rango de días evaluado, ambos extremos inclusive.
// El caller es responsable de recortar End a "hoy": el cálculo jamás
// considera días futuros como dosis esperadas.
type Window struct {
	Start civil.Date
	End   civil.Date
}

// Report es el resultado derivado; nunca se persiste, se recalcula en
// cada lectura.
type Report struct {
	AdherenceRatePercent int
	CurrentStreakDays    int
	TakenDoseCount       int
	MissedDoseCount      int
}

// Compute calcula dosis esperadas vs. tomadas y la racha vigente.
// Función pura: mismo input, mismo output, sin estado.
//
// Por medicación se cuentan los días desde max(StartedOn, Window.Start)
// hasta Window.End: una medicación no puede figurar como "missed" antes
// de existir. Cada día aporta DosesPerDay(frequency) al esperado, y lo
// mismo al tomado si hubo al menos un log ese día.
func Compute(meds []MedicationHistory, w Window) Report {
	if len(meds) == 0 || w.End.Before(w.Start) {
		return Report{}
	}

	type dayState struct {
		active   int // medicaciones con dosis esperada ese día
		complete int // de esas, cuántas tienen toma registrada
	}

	var expected, taken int
	days := make(map[civil.Date]*dayState)

	for _, m := range meds {
		start := m.StartedOn
		if start.Before(w.Start) {
			start = w.Start
		}
		if w.End.Before(start) {
			// alta posterior a la ventana: cero días esperados
			continue
		}

		perDay := DosesPerDay(m.Frequency)

		takenSet := make(map[civil.Date]struct{}, len(m.TakenOn))
		for _, d := range m.TakenOn {
			takenSet[d] = struct{}{}
		}

		for d := start; !w.End.Before(d); d = d.AddDays(1) {
			st := days[d]
			if st == nil {
				st = &dayState{}
				days[d] = st
			}
			st.active++
			expected += perDay

			if _, ok := takenSet[d]; ok {
				st.complete++
				taken += perDay
			}
		}
	}

	// Racha: recorrer los días con dosis esperada de más reciente a más
	// antiguo. Un día califica solo si TODAS las medicaciones activas ese
	// día tienen toma. El día más reciente, si coincide con el fin de la
	// ventana, puede estar aún en curso: no rompe la racha, pero tampoco
	// suma. Cualquier otro hueco la termina.
	all := make([]civil.Date, 0, len(days))
	for d := range days {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[j].Before(all[i]) })

	streak := 0
	for i, d := range all {
		st := days[d]
		if st.complete == st.active {
			streak++
			continue
		}
		if i == 0 && d == w.End {
			continue
		}
		break
	}

	rate := 0
	if expected > 0 {
		rate = int(math.Round(100 * float64(taken) / float64(expected)))
	}

	return Report{
		AdherenceRatePercent: rate,
		CurrentStreakDays:    streak,
		TakenDoseCount:       taken,
		MissedDoseCount:      expected - taken,
	}
}

package adherence

import "cloud.google.com/go/civil"

// DayIndex responde en O(1) "¿se tomó la medicación M el día D?" y
// "¿cuántas medicaciones se tomaron el día D?" después de una sola pasada
// O(días × medicaciones). Se indexa por día calendario, nunca por
// timestamp, para que la medianoche no corra fechas entre zonas.
type DayIndex struct {
	start civil.Date
	end   civil.Date
	today civil.Date

	takenByMed  map[string]map[civil.Date]struct{}
	takenByDay  map[civil.Date]int
	activeByDay map[civil.Date]int
}

// BuildDayIndex indexa el rango [start, end] inclusive. Los días
// posteriores a today quedan marcados solo como futuros: ni tomados ni
// perdidos, "todavía no aplica".
func BuildDayIndex(meds []MedicationHistory, start, end, today civil.Date) *DayIndex {
	idx := &DayIndex{
		start:       start,
		end:         end,
		today:       today,
		takenByMed:  make(map[string]map[civil.Date]struct{}),
		takenByDay:  make(map[civil.Date]int),
		activeByDay: make(map[civil.Date]int),
	}
	if end.Before(start) {
		return idx
	}

	for _, m := range meds {
		from := m.StartedOn
		if from.Before(start) {
			from = start
		}

		takenSet := make(map[civil.Date]struct{}, len(m.TakenOn))
		for _, d := range m.TakenOn {
			takenSet[d] = struct{}{}
		}

		for d := from; !end.Before(d); d = d.AddDays(1) {
			if idx.IsFuture(d) {
				continue
			}
			idx.activeByDay[d]++

			if _, ok := takenSet[d]; ok {
				byMed := idx.takenByMed[m.ID]
				if byMed == nil {
					byMed = make(map[civil.Date]struct{})
					idx.takenByMed[m.ID] = byMed
				}
				byMed[d] = struct{}{}
				idx.takenByDay[d]++
			}
		}
	}
	return idx
}

func (x *DayIndex) IsTaken(medicationID string, d civil.Date) bool {
	byMed, ok := x.takenByMed[medicationID]
	if !ok {
		return false
	}
	_, ok = byMed[d]
	return ok
}

// TakenCount devuelve cuántas medicaciones tienen toma registrada el día d.
func (x *DayIndex) TakenCount(d civil.Date) int {
	return x.takenByDay[d]
}

// ActiveCount devuelve cuántas medicaciones tenían dosis esperada el día d.
func (x *DayIndex) ActiveCount(d civil.Date) int {
	return x.activeByDay[d]
}

func (x *DayIndex) IsFuture(d civil.Date) bool {
	return x.today.Before(d)
}

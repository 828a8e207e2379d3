package adherence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	// ErrDataFormat indica una fecha almacenada que no es YYYY-MM-DD.
	// El caller decide si aborta o excluye el registro.
	ErrDataFormat = errors.New("malformed calendar date")
)

// Todas las fechas de este paquete son civil.Date: día calendario puro,
// sin hora ni zona. Convertir desde/hacia timestamps es problema del borde
// (handlers), nunca de los cálculos.

// ParseDay parsea una fecha almacenada en formato YYYY-MM-DD.
func ParseDay(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrDataFormat, s)
	}
	return d, nil
}

// Today proyecta un instante al día calendario local de ese instante.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}

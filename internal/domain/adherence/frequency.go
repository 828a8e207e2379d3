package adherence

import "strings"

// DosesPerDay mapea el texto libre de frecuencia a dosis esperadas por día.
// Match por substring case-insensitive, en orden de precedencia; cualquier
// texto no reconocido ("once daily", "as needed", basura) cuenta como 1.
func DosesPerDay(frequency string) int {
	f := strings.ToLower(frequency)
	switch {
	case strings.Contains(f, "four"):
		return 4
	case strings.Contains(f, "three"):
		return 3
	case strings.Contains(f, "twice"):
		return 2
	default:
		return 1
	}
}

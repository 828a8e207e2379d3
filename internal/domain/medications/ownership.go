package medications

import "context"

// OwnerOf expone el patientUserID dueño de una medicación.
// Se usa para evitar ciclos de imports entre módulos
// (medications <-> carelinks / intakes).
func (s *Service) OwnerOf(ctx context.Context, medicationID string) (string, error) {
	m, err := s.GetByID(ctx, medicationID)
	if err != nil {
		return "", err
	}
	return m.PatientUserID, nil
}

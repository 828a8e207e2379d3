package carelinks

import "time"

type Scope string

const (
	ScopeMedsRead      Scope = "meds:read"
	ScopeMedsManage    Scope = "meds:manage"
	ScopeLogsRead      Scope = "logs:read"
	ScopeAdherenceRead Scope = "adherence:read"
	ScopeFeedRead      Scope = "feed:read"
)

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// CareLink vincula a un paciente con un caretaker que lo monitorea.
// El paciente invita y revoca; el caretaker acepta.
type CareLink struct {
	ID string

	PatientUserID   string // quien comparte sus datos
	CaretakerUserID string // quien monitorea

	Scopes []Scope
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

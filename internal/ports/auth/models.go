package auth

// Claims representa la información extraída del token de sesión.
// Role viene del user_metadata del servicio de auth ("patient" | "caretaker").
type Claims struct {
	UserID string
	Email  string
	Role   string
}

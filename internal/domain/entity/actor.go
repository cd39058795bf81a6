package entity

// Actor identifies the user performing a call. The engine never
// authenticates; it only authorizes against the role it is handed.
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

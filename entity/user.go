package entity

// User is the verified identity supplied by the auth boundary.
// Services never create or mutate users.
type User struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

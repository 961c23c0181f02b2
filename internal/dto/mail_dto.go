package dto

const (
	AccountMailWelcome         = "welcome"
	AccountMailPasswordChanged = "password_changed"
)

// AccountMailMessage is the payload on the account mail topic.
type AccountMailMessage struct {
	Kind  string `json:"kind"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

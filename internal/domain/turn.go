package domain

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one exchange in the running conversation.
type Turn struct {
	Role    Role
	Content string
}

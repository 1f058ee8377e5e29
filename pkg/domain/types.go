package domain

import "time"

// TopicStatus is the lifecycle state of a forum topic. Values match the
// strings stored in the database and returned over the API.
type TopicStatus string

const (
	TopicOpen     TopicStatus = "ABIERTO"
	TopicClosed   TopicStatus = "CERRADO"
	TopicResolved TopicStatus = "RESUELTO"
)

// Role is a profile tag assigned to users. Only author-equality is enforced
// by the forum rules; roles exist for registration defaults and seeding.
type Role string

const (
	RoleUser      Role = "USUARIO"
	RoleModerator Role = "MODERADOR"
	RoleAdmin     Role = "ADMINISTRADOR"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Topic struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Status    TopicStatus `json:"status"`
	AuthorID  string      `json:"authorId"`
	CourseID  string      `json:"courseId"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Reply struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topicId"`
	AuthorID  string    `json:"authorId"`
	Message   string    `json:"message"`
	Solution  bool      `json:"solution"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

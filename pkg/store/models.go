package store

import (
	"time"

	"forumhub/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	Active       bool   `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type CourseModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Category    string `gorm:"not null;index"`
	Description string
	Active      bool      `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

type TopicModel struct {
	ID        string    `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Message   string    `gorm:"type:text;not null"`
	Status    string    `gorm:"not null;index"`
	AuthorID  string    `gorm:"not null;index"`
	CourseID  string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ReplyModel struct {
	ID        string    `gorm:"primaryKey"`
	TopicID   string    `gorm:"not null;index"`
	AuthorID  string    `gorm:"not null;index"`
	Message   string    `gorm:"type:text;not null"`
	Solution  bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func courseToModel(c domain.Course) CourseModel {
	return CourseModel{
		ID:          c.ID,
		Name:        c.Name,
		Category:    c.Category,
		Description: c.Description,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
	}
}

func courseFromModel(m CourseModel) domain.Course {
	return domain.Course{
		ID:          m.ID,
		Name:        m.Name,
		Category:    m.Category,
		Description: m.Description,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
	}
}

func topicToModel(t domain.Topic) TopicModel {
	return TopicModel{
		ID:        t.ID,
		Title:     t.Title,
		Message:   t.Message,
		Status:    string(t.Status),
		AuthorID:  t.AuthorID,
		CourseID:  t.CourseID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func topicFromModel(m TopicModel) domain.Topic {
	status := domain.TopicStatus(m.Status)
	if status == "" {
		status = domain.TopicOpen
	}
	return domain.Topic{
		ID:        m.ID,
		Title:     m.Title,
		Message:   m.Message,
		Status:    status,
		AuthorID:  m.AuthorID,
		CourseID:  m.CourseID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func replyToModel(r domain.Reply) ReplyModel {
	return ReplyModel{
		ID:        r.ID,
		TopicID:   r.TopicID,
		AuthorID:  r.AuthorID,
		Message:   r.Message,
		Solution:  r.Solution,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func replyFromModel(m ReplyModel) domain.Reply {
	return domain.Reply{
		ID:        m.ID,
		TopicID:   m.TopicID,
		AuthorID:  m.AuthorID,
		Message:   m.Message,
		Solution:  m.Solution,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

package app

import (
	"fmt"
	"time"

	"forumhub/pkg/domain"
)

// UserView is the public projection of a user.
type UserView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CourseView is the public projection of a course.
type CourseView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// TopicSummary is the list projection of a topic.
type TopicSummary struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Message    string             `json:"message"`
	Status     domain.TopicStatus `json:"status"`
	AuthorName string             `json:"authorName"`
	CourseName string             `json:"courseName"`
	ReplyCount int64              `json:"replyCount"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// TopicDetail is the full projection of a topic with its replies.
type TopicDetail struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Status    domain.TopicStatus `json:"status"`
	Author    UserView           `json:"author"`
	Course    CourseView         `json:"course"`
	Replies   []ReplyView        `json:"replies"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ReplyView is the public projection of a reply.
type ReplyView struct {
	ID         string    `json:"id"`
	TopicID    string    `json:"topicId"`
	Message    string    `json:"message"`
	Solution   bool      `json:"solution"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Stats aggregates forum-wide counters.
type Stats struct {
	TotalTopics    int64 `json:"totalTopics"`
	TotalReplies   int64 `json:"totalReplies"`
	TotalUsers     int64 `json:"totalUsers"`
	TotalCourses   int64 `json:"totalCourses"`
	OpenTopics     int64 `json:"openTopics"`
	ClosedTopics   int64 `json:"closedTopics"`
	ResolvedTopics int64 `json:"resolvedTopics"`
}

func userView(u domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

func courseView(c domain.Course) CourseView {
	return CourseView{
		ID:          c.ID,
		Name:        c.Name,
		Category:    c.Category,
		Description: c.Description,
		Active:      c.Active,
	}
}

// nameCache avoids refetching the same author/course per projection batch.
type nameCache struct {
	app     *App
	users   map[string]string
	courses map[string]string
}

func (a *App) newNameCache() *nameCache {
	return &nameCache{
		app:     a,
		users:   make(map[string]string),
		courses: make(map[string]string),
	}
}

func (c *nameCache) userName(id string) (string, error) {
	if name, ok := c.users[id]; ok {
		return name, nil
	}
	user, ok, err := c.app.store.GetUserByID(id)
	if err != nil {
		return "", fmt.Errorf("fetch user %s: %w", id, err)
	}
	name := ""
	if ok {
		name = user.Name
	}
	c.users[id] = name
	return name, nil
}

func (c *nameCache) courseName(id string) (string, error) {
	if name, ok := c.courses[id]; ok {
		return name, nil
	}
	course, ok, err := c.app.store.GetCourse(id)
	if err != nil {
		return "", fmt.Errorf("fetch course %s: %w", id, err)
	}
	name := ""
	if ok {
		name = course.Name
	}
	c.courses[id] = name
	return name, nil
}

func (a *App) topicSummaries(topics []domain.Topic) ([]TopicSummary, error) {
	cache := a.newNameCache()
	out := make([]TopicSummary, 0, len(topics))
	for _, t := range topics {
		authorName, err := cache.userName(t.AuthorID)
		if err != nil {
			return nil, err
		}
		courseName, err := cache.courseName(t.CourseID)
		if err != nil {
			return nil, err
		}
		replyCount, err := a.store.CountRepliesByTopic(t.ID)
		if err != nil {
			return nil, fmt.Errorf("count replies for topic %s: %w", t.ID, err)
		}
		out = append(out, TopicSummary{
			ID:         t.ID,
			Title:      t.Title,
			Message:    t.Message,
			Status:     t.Status,
			AuthorName: authorName,
			CourseName: courseName,
			ReplyCount: replyCount,
			CreatedAt:  t.CreatedAt,
			UpdatedAt:  t.UpdatedAt,
		})
	}
	return out, nil
}

// TopicSummaryOf projects a single topic so write responses carry the same
// shape as listings.
func (a *App) TopicSummaryOf(t domain.Topic) (TopicSummary, error) {
	summaries, err := a.topicSummaries([]domain.Topic{t})
	if err != nil {
		return TopicSummary{}, err
	}
	return summaries[0], nil
}

// ReplyViewOf projects a single reply for write responses.
func (a *App) ReplyViewOf(r domain.Reply) (ReplyView, error) {
	views, err := a.replyViews([]domain.Reply{r})
	if err != nil {
		return ReplyView{}, err
	}
	return views[0], nil
}

func (a *App) replyViews(replies []domain.Reply) ([]ReplyView, error) {
	cache := a.newNameCache()
	out := make([]ReplyView, 0, len(replies))
	for _, r := range replies {
		authorName, err := cache.userName(r.AuthorID)
		if err != nil {
			return nil, err
		}
		out = append(out, ReplyView{
			ID:         r.ID,
			TopicID:    r.TopicID,
			Message:    r.Message,
			Solution:   r.Solution,
			AuthorName: authorName,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return out, nil
}

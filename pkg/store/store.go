package store

import "forumhub/pkg/domain"

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PageRequest describes a zero-based page window.
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps page/size into supported ranges.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized window.
func (p PageRequest) Offset() int {
	p = p.Normalize()
	return p.Page * p.Size
}

// Store defines persistence operations for users, courses, topics, and replies.
// Paginated list methods return the page of items plus the total row count.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int64, error)

	// courses
	SaveCourse(domain.Course) error
	GetCourse(id string) (domain.Course, bool, error)
	ListActiveCourses(page PageRequest) ([]domain.Course, int64, error)
	ListCoursesByCategory(category string) ([]domain.Course, error)
	SearchCoursesByName(name string) ([]domain.Course, error)
	ListCourseCategories() ([]string, error)
	CourseCount() (int64, error)

	// topics
	SaveTopic(domain.Topic) error
	GetTopic(id string) (domain.Topic, bool, error)
	DeleteTopic(id string) error
	ListTopics(page PageRequest) ([]domain.Topic, int64, error)
	ListTopicsByAuthor(authorID string, page PageRequest) ([]domain.Topic, int64, error)
	ListTopicsByCourse(courseID string, page PageRequest) ([]domain.Topic, int64, error)
	SearchTopicsByTitle(title string, page PageRequest) ([]domain.Topic, int64, error)
	TopicCount() (int64, error)
	CountTopicsByStatus(status domain.TopicStatus) (int64, error)

	// replies
	SaveReply(domain.Reply) error
	GetReply(id string) (domain.Reply, bool, error)
	DeleteReply(id string) error
	ListRepliesByTopic(topicID string) ([]domain.Reply, error)
	ListRepliesByTopicPaged(topicID string, page PageRequest) ([]domain.Reply, int64, error)
	ListRepliesByAuthor(authorID string, page PageRequest) ([]domain.Reply, int64, error)
	CountRepliesByTopic(topicID string) (int64, error)
	HasSolutionReply(topicID string) (bool, error)
	ReplyCount() (int64, error)

	// solution marking. Both operations are atomic: concurrent callers on the
	// same topic never observe two replies with the solution flag set.
	MarkSolution(topicID, replyID string) error
	UnmarkSolution(topicID, replyID string) error
}

// SessionStore issues and resolves bearer session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

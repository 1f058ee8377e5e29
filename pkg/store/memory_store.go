package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"forumhub/pkg/domain"
)

// MemoryStore is an in-memory Store used by tests and local development.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]domain.User
	courses map[string]domain.Course
	topics  map[string]domain.Topic
	replies map[string]domain.Reply
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		courses: make(map[string]domain.Course),
		topics:  make(map[string]domain.Topic),
		replies: make(map[string]domain.Reply),
	}
}

func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) UserCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

func (s *MemoryStore) SaveCourse(c domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCourse(id string) (domain.Course, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	return c, ok, nil
}

func (s *MemoryStore) ListActiveCourses(page PageRequest) ([]domain.Course, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.activeCoursesByName(func(domain.Course) bool { return true })
	items, total := pageCourses(all, page)
	return items, total, nil
}

func (s *MemoryStore) ListCoursesByCategory(category string) ([]domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCoursesByName(func(c domain.Course) bool {
		return c.Category == category
	}), nil
}

func (s *MemoryStore) SearchCoursesByName(name string) ([]domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(name)
	return s.activeCoursesByName(func(c domain.Course) bool {
		return strings.Contains(strings.ToLower(c.Name), needle)
	}), nil
}

func (s *MemoryStore) ListCourseCategories() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for _, c := range s.courses {
		if c.Active {
			seen[c.Category] = true
		}
	}
	categories := make([]string, 0, len(seen))
	for cat := range seen {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *MemoryStore) CourseCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.courses)), nil
}

func (s *MemoryStore) activeCoursesByName(match func(domain.Course) bool) []domain.Course {
	res := make([]domain.Course, 0)
	for _, c := range s.courses {
		if c.Active && match(c) {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (s *MemoryStore) SaveTopic(t domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Status == "" {
		t.Status = domain.TopicOpen
	}
	s.topics[t.ID] = t
	return nil
}

func (s *MemoryStore) GetTopic(id string) (domain.Topic, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[id]
	return t, ok, nil
}

func (s *MemoryStore) DeleteTopic(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, id)
	for replyID, r := range s.replies {
		if r.TopicID == id {
			delete(s.replies, replyID)
		}
	}
	return nil
}

func (s *MemoryStore) ListTopics(page PageRequest) ([]domain.Topic, int64, error) {
	return s.listTopicsWhere(page, func(domain.Topic) bool { return true })
}

func (s *MemoryStore) ListTopicsByAuthor(authorID string, page PageRequest) ([]domain.Topic, int64, error) {
	return s.listTopicsWhere(page, func(t domain.Topic) bool { return t.AuthorID == authorID })
}

func (s *MemoryStore) ListTopicsByCourse(courseID string, page PageRequest) ([]domain.Topic, int64, error) {
	return s.listTopicsWhere(page, func(t domain.Topic) bool { return t.CourseID == courseID })
}

func (s *MemoryStore) SearchTopicsByTitle(title string, page PageRequest) ([]domain.Topic, int64, error) {
	needle := strings.ToLower(title)
	return s.listTopicsWhere(page, func(t domain.Topic) bool {
		return strings.Contains(strings.ToLower(t.Title), needle)
	})
}

func (s *MemoryStore) listTopicsWhere(page PageRequest, match func(domain.Topic) bool) ([]domain.Topic, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]domain.Topic, 0)
	for _, t := range s.topics {
		if match(t) {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	items, total := pageTopics(all, page)
	return items, total, nil
}

func (s *MemoryStore) TopicCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.topics)), nil
}

func (s *MemoryStore) CountTopicsByStatus(status domain.TopicStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, t := range s.topics {
		if t.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) SaveReply(r domain.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[r.ID] = r
	return nil
}

func (s *MemoryStore) GetReply(id string) (domain.Reply, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replies[id]
	return r, ok, nil
}

func (s *MemoryStore) DeleteReply(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.replies, id)
	return nil
}

func (s *MemoryStore) ListRepliesByTopic(topicID string) ([]domain.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repliesOfTopic(topicID), nil
}

func (s *MemoryStore) ListRepliesByTopicPaged(topicID string, page PageRequest) ([]domain.Reply, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.repliesOfTopic(topicID)
	items, total := pageReplies(all, page)
	return items, total, nil
}

func (s *MemoryStore) ListRepliesByAuthor(authorID string, page PageRequest) ([]domain.Reply, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]domain.Reply, 0)
	for _, r := range s.replies {
		if r.AuthorID == authorID {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	items, total := pageReplies(all, page)
	return items, total, nil
}

func (s *MemoryStore) CountRepliesByTopic(topicID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.repliesOfTopic(topicID))), nil
}

func (s *MemoryStore) HasSolutionReply(topicID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.replies {
		if r.TopicID == topicID && r.Solution {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ReplyCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.replies)), nil
}

func (s *MemoryStore) repliesOfTopic(topicID string) []domain.Reply {
	res := make([]domain.Reply, 0)
	for _, r := range s.replies {
		if r.TopicID == topicID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res
}

// MarkSolution mirrors the transactional semantics of the SQL store under
// the single mutex: clear, set, resolve as one atomic step.
func (s *MemoryStore) MarkSolution(topicID, replyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.replies[replyID]
	if !ok || target.TopicID != topicID {
		return gorm.ErrRecordNotFound
	}
	topic, ok := s.topics[topicID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now().UTC()
	for id, r := range s.replies {
		if r.TopicID == topicID && r.Solution && id != replyID {
			r.Solution = false
			r.UpdatedAt = now
			s.replies[id] = r
		}
	}
	target.Solution = true
	target.UpdatedAt = now
	s.replies[replyID] = target
	topic.Status = domain.TopicResolved
	topic.UpdatedAt = now
	s.topics[topicID] = topic
	return nil
}

func (s *MemoryStore) UnmarkSolution(topicID, replyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if r, ok := s.replies[replyID]; ok && r.TopicID == topicID {
		r.Solution = false
		r.UpdatedAt = now
		s.replies[replyID] = r
	}
	for _, r := range s.replies {
		if r.TopicID == topicID && r.Solution {
			return nil
		}
	}
	if topic, ok := s.topics[topicID]; ok {
		topic.Status = domain.TopicOpen
		topic.UpdatedAt = now
		s.topics[topicID] = topic
	}
	return nil
}

func pageCourses(all []domain.Course, page PageRequest) ([]domain.Course, int64) {
	page = page.Normalize()
	total := int64(len(all))
	start := page.Offset()
	if start >= len(all) {
		return []domain.Course{}, total
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total
}

func pageTopics(all []domain.Topic, page PageRequest) ([]domain.Topic, int64) {
	page = page.Normalize()
	total := int64(len(all))
	start := page.Offset()
	if start >= len(all) {
		return []domain.Topic{}, total
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total
}

func pageReplies(all []domain.Reply, page PageRequest) ([]domain.Reply, int64) {
	page = page.Normalize()
	total := int64(len(all))
	start := page.Offset()
	if start >= len(all) {
		return []domain.Reply{}, total
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total
}

package app

import (
	"fmt"
	"strings"
	"time"

	"forumhub/internal/util"
	"forumhub/pkg/auth"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
	JWTLeeway     time.Duration
	Store         store.Store
	Sessions      store.SessionStore
}

// App is the core application service wiring storage, sessions and the
// topic/reply lifecycle rules together.
type App struct {
	store      store.Store
	sessions   store.SessionStore
	sessionTTL time.Duration
}

// New constructs the application with database storage and session management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 2 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			return nil, fmt.Errorf("jwtSecret is required")
		}
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for jwt+redis session strategy")
		}
		revoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		jwtStore, err := store.NewJWTSessionStoreWithOptions(cfg.JWTSecret, cfg.SessionTTL, revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.JWTLeeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		sessionStore = jwtStore
	}

	return &App{
		store:      dataStore,
		sessions:   sessionStore,
		sessionTTL: cfg.SessionTTL,
	}, nil
}

// Store exposes the underlying data store for startup tasks such as seeding.
func (a *App) Store() store.Store {
	return a.store
}

// Token is the session token handed to clients after register/login.
type Token struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (a *App) issueToken(userID string) (Token, error) {
	raw, err := a.sessions.NewSession(userID)
	if err != nil {
		return Token{}, fmt.Errorf("issue session token: %w", err)
	}
	return Token{
		Token:     raw,
		Type:      "Bearer",
		ExpiresAt: time.Now().UTC().Add(a.sessionTTL).UnixMilli(),
	}, nil
}

// Register creates a user account with the USUARIO role and logs it in.
func (a *App) Register(name, email, password string) (domain.User, Token, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, Token{}, err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, Token{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, Token{}, ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, Token{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, Token{}, fmt.Errorf("save user: %w", err)
	}
	token, err := a.issueToken(user.ID)
	if err != nil {
		return domain.User{}, Token{}, err
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, Token, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, Token{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, Token{}, ErrInvalidCredentials
	}
	if !user.Active {
		return domain.User{}, Token{}, ErrUserInactive
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, Token{}, ErrInvalidCredentials
	}
	token, err := a.issueToken(user.ID)
	if err != nil {
		return domain.User{}, Token{}, err
	}
	return user, token, nil
}

// UserFromToken resolves an active user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	if !user.Active {
		return domain.User{}, false
	}
	return user, true
}

// Logout invalidates the session token until it expires.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// CreateTopic opens a new topic on an active course.
func (a *App) CreateTopic(author domain.User, title, message, courseID string) (domain.Topic, error) {
	course, ok, err := a.store.GetCourse(courseID)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return domain.Topic{}, ErrCourseNotFound
	}
	if !course.Active {
		return domain.Topic{}, ErrCourseInactive
	}
	now := time.Now().UTC()
	topic := domain.Topic{
		ID:        util.NewID(),
		Title:     strings.TrimSpace(title),
		Message:   strings.TrimSpace(message),
		Status:    domain.TopicOpen,
		AuthorID:  author.ID,
		CourseID:  course.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveTopic(topic); err != nil {
		return domain.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	return topic, nil
}

// UpdateTopic applies a partial update. Only the author may update; a course
// change must point at an existing active course.
func (a *App) UpdateTopic(user domain.User, topicID string, title, message, courseID *string) (domain.Topic, error) {
	topic, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Topic{}, ErrTopicNotFound
	}
	if topic.AuthorID != user.ID {
		return domain.Topic{}, ErrPermissionDenied
	}
	if title != nil && strings.TrimSpace(*title) != "" {
		topic.Title = strings.TrimSpace(*title)
	}
	if message != nil && strings.TrimSpace(*message) != "" {
		topic.Message = strings.TrimSpace(*message)
	}
	if courseID != nil {
		course, ok, err := a.store.GetCourse(*courseID)
		if err != nil {
			return domain.Topic{}, fmt.Errorf("fetch course: %w", err)
		}
		if !ok {
			return domain.Topic{}, ErrCourseNotFound
		}
		if !course.Active {
			return domain.Topic{}, ErrCourseInactive
		}
		topic.CourseID = course.ID
	}
	topic.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveTopic(topic); err != nil {
		return domain.Topic{}, fmt.Errorf("update topic: %w", err)
	}
	return topic, nil
}

// DeleteTopic removes a topic and its replies. Author only.
func (a *App) DeleteTopic(user domain.User, topicID string) error {
	topic, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return ErrTopicNotFound
	}
	if topic.AuthorID != user.ID {
		return ErrPermissionDenied
	}
	if err := a.store.DeleteTopic(topicID); err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return nil
}

// CloseTopic moves an open or resolved topic to CERRADO. Author only.
func (a *App) CloseTopic(user domain.User, topicID string) (domain.Topic, error) {
	topic, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Topic{}, ErrTopicNotFound
	}
	if topic.AuthorID != user.ID {
		return domain.Topic{}, ErrPermissionDenied
	}
	if topic.Status == domain.TopicClosed {
		return domain.Topic{}, ErrTopicClosed
	}
	topic.Status = domain.TopicClosed
	topic.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveTopic(topic); err != nil {
		return domain.Topic{}, fmt.Errorf("close topic: %w", err)
	}
	return topic, nil
}

// ReopenTopic moves a closed topic back to RESUELTO when a solution reply
// still exists, otherwise to ABIERTO. Author only.
func (a *App) ReopenTopic(user domain.User, topicID string) (domain.Topic, error) {
	topic, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Topic{}, ErrTopicNotFound
	}
	if topic.AuthorID != user.ID {
		return domain.Topic{}, ErrPermissionDenied
	}
	if topic.Status != domain.TopicClosed {
		return domain.Topic{}, ErrTopicNotClosed
	}
	hasSolution, err := a.store.HasSolutionReply(topicID)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("check solution replies: %w", err)
	}
	if hasSolution {
		topic.Status = domain.TopicResolved
	} else {
		topic.Status = domain.TopicOpen
	}
	topic.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveTopic(topic); err != nil {
		return domain.Topic{}, fmt.Errorf("reopen topic: %w", err)
	}
	return topic, nil
}

// GetTopicDetail returns a topic with author, course and ordered replies.
func (a *App) GetTopicDetail(topicID string) (TopicDetail, error) {
	topic, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return TopicDetail{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return TopicDetail{}, ErrTopicNotFound
	}
	author, ok, err := a.store.GetUserByID(topic.AuthorID)
	if err != nil {
		return TopicDetail{}, fmt.Errorf("fetch author: %w", err)
	}
	if !ok {
		return TopicDetail{}, ErrUserNotFound
	}
	course, ok, err := a.store.GetCourse(topic.CourseID)
	if err != nil {
		return TopicDetail{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return TopicDetail{}, ErrCourseNotFound
	}
	replies, err := a.store.ListRepliesByTopic(topicID)
	if err != nil {
		return TopicDetail{}, fmt.Errorf("list replies: %w", err)
	}
	views, err := a.replyViews(replies)
	if err != nil {
		return TopicDetail{}, err
	}
	return TopicDetail{
		ID:        topic.ID,
		Title:     topic.Title,
		Message:   topic.Message,
		Status:    topic.Status,
		Author:    userView(author),
		Course:    courseView(course),
		Replies:   views,
		CreatedAt: topic.CreatedAt,
		UpdatedAt: topic.UpdatedAt,
	}, nil
}

// ListTopics returns topic summaries, newest first.
func (a *App) ListTopics(page store.PageRequest) ([]TopicSummary, int64, error) {
	topics, total, err := a.store.ListTopics(page)
	if err != nil {
		return nil, 0, fmt.Errorf("list topics: %w", err)
	}
	summaries, err := a.topicSummaries(topics)
	return summaries, total, err
}

// ListMyTopics returns the user's topics, newest first.
func (a *App) ListMyTopics(user domain.User, page store.PageRequest) ([]TopicSummary, int64, error) {
	topics, total, err := a.store.ListTopicsByAuthor(user.ID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list topics by author: %w", err)
	}
	summaries, err := a.topicSummaries(topics)
	return summaries, total, err
}

// SearchTopics finds topics by title substring, case-insensitive.
func (a *App) SearchTopics(query string, page store.PageRequest) ([]TopicSummary, int64, error) {
	topics, total, err := a.store.SearchTopicsByTitle(strings.TrimSpace(query), page)
	if err != nil {
		return nil, 0, fmt.Errorf("search topics: %w", err)
	}
	summaries, err := a.topicSummaries(topics)
	return summaries, total, err
}

// ListTopicsByCourse returns a course's topics. The course must exist.
func (a *App) ListTopicsByCourse(courseID string, page store.PageRequest) ([]TopicSummary, int64, error) {
	_, ok, err := a.store.GetCourse(courseID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return nil, 0, ErrCourseNotFound
	}
	topics, total, err := a.store.ListTopicsByCourse(courseID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list topics by course: %w", err)
	}
	summaries, err := a.topicSummaries(topics)
	return summaries, total, err
}

// CreateReply adds a reply to a topic. Replies to closed topics are rejected.
func (a *App) CreateReply(author domain.User, topicID, message string) (domain.Reply, error) {
	topic, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrTopicNotFound
	}
	if topic.Status == domain.TopicClosed {
		return domain.Reply{}, ErrTopicClosed
	}
	now := time.Now().UTC()
	reply := domain.Reply{
		ID:        util.NewID(),
		TopicID:   topic.ID,
		AuthorID:  author.ID,
		Message:   strings.TrimSpace(message),
		Solution:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveReply(reply); err != nil {
		return domain.Reply{}, fmt.Errorf("save reply: %w", err)
	}
	return reply, nil
}

// UpdateReply changes the reply message. Reply author only.
func (a *App) UpdateReply(user domain.User, replyID, message string) (domain.Reply, error) {
	reply, ok, err := a.store.GetReply(replyID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch reply: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrReplyNotFound
	}
	if reply.AuthorID != user.ID {
		return domain.Reply{}, ErrPermissionDenied
	}
	reply.Message = strings.TrimSpace(message)
	reply.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveReply(reply); err != nil {
		return domain.Reply{}, fmt.Errorf("update reply: %w", err)
	}
	return reply, nil
}

// DeleteReply removes a reply. Reply author only. Topic status is not
// recomputed when the deleted reply was the solution.
func (a *App) DeleteReply(user domain.User, replyID string) error {
	reply, ok, err := a.store.GetReply(replyID)
	if err != nil {
		return fmt.Errorf("fetch reply: %w", err)
	}
	if !ok {
		return ErrReplyNotFound
	}
	if reply.AuthorID != user.ID {
		return ErrPermissionDenied
	}
	if err := a.store.DeleteReply(replyID); err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}
	return nil
}

// MarkSolution flags a reply as the topic's solution. Only the topic author
// may mark; any previously flagged reply is unflagged and the topic becomes
// RESUELTO. Runs atomically in the store.
func (a *App) MarkSolution(user domain.User, replyID string) (domain.Reply, error) {
	reply, ok, err := a.store.GetReply(replyID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch reply: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrReplyNotFound
	}
	topic, ok, err := a.store.GetTopic(reply.TopicID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrTopicNotFound
	}
	if topic.AuthorID != user.ID {
		return domain.Reply{}, ErrPermissionDenied
	}
	if err := a.store.MarkSolution(topic.ID, reply.ID); err != nil {
		return domain.Reply{}, fmt.Errorf("mark solution: %w", err)
	}
	reply, ok, err = a.store.GetReply(replyID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("refetch reply: %w", err)
	}
	if !ok {
		// Deleted between the store write and the refetch.
		return domain.Reply{}, ErrReplyNotFound
	}
	return reply, nil
}

// UnmarkSolution clears the solution flag. Only the topic author may unmark;
// when no flagged reply remains the topic returns to ABIERTO.
func (a *App) UnmarkSolution(user domain.User, replyID string) (domain.Reply, error) {
	reply, ok, err := a.store.GetReply(replyID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch reply: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrReplyNotFound
	}
	topic, ok, err := a.store.GetTopic(reply.TopicID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrTopicNotFound
	}
	if topic.AuthorID != user.ID {
		return domain.Reply{}, ErrPermissionDenied
	}
	if err := a.store.UnmarkSolution(topic.ID, reply.ID); err != nil {
		return domain.Reply{}, fmt.Errorf("unmark solution: %w", err)
	}
	reply, ok, err = a.store.GetReply(replyID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("refetch reply: %w", err)
	}
	if !ok {
		return domain.Reply{}, ErrReplyNotFound
	}
	return reply, nil
}

// ListTopicReplies returns all replies of a topic in creation order.
func (a *App) ListTopicReplies(topicID string) ([]ReplyView, error) {
	_, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return nil, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return nil, ErrTopicNotFound
	}
	replies, err := a.store.ListRepliesByTopic(topicID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return a.replyViews(replies)
}

// ListTopicRepliesPaged returns a page of a topic's replies in creation order.
func (a *App) ListTopicRepliesPaged(topicID string, page store.PageRequest) ([]ReplyView, int64, error) {
	_, ok, err := a.store.GetTopic(topicID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch topic: %w", err)
	}
	if !ok {
		return nil, 0, ErrTopicNotFound
	}
	replies, total, err := a.store.ListRepliesByTopicPaged(topicID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list replies: %w", err)
	}
	views, err := a.replyViews(replies)
	return views, total, err
}

// ListMyReplies returns the user's replies, newest first.
func (a *App) ListMyReplies(user domain.User, page store.PageRequest) ([]ReplyView, int64, error) {
	replies, total, err := a.store.ListRepliesByAuthor(user.ID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list replies by author: %w", err)
	}
	views, err := a.replyViews(replies)
	return views, total, err
}

// ListCourses returns active courses ordered by name.
func (a *App) ListCourses(page store.PageRequest) ([]CourseView, int64, error) {
	courses, total, err := a.store.ListActiveCourses(page)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, courseView(c))
	}
	return views, total, nil
}

// GetCourse returns a single course.
func (a *App) GetCourse(id string) (CourseView, error) {
	course, ok, err := a.store.GetCourse(id)
	if err != nil {
		return CourseView{}, fmt.Errorf("fetch course: %w", err)
	}
	if !ok {
		return CourseView{}, ErrCourseNotFound
	}
	return courseView(course), nil
}

// ListCourseCategories returns the distinct categories of active courses.
func (a *App) ListCourseCategories() ([]string, error) {
	return a.store.ListCourseCategories()
}

// ListCoursesByCategory returns active courses in a category.
func (a *App) ListCoursesByCategory(category string) ([]CourseView, error) {
	courses, err := a.store.ListCoursesByCategory(category)
	if err != nil {
		return nil, fmt.Errorf("list courses by category: %w", err)
	}
	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, courseView(c))
	}
	return views, nil
}

// SearchCourses finds active courses by name substring, case-insensitive.
func (a *App) SearchCourses(name string) ([]CourseView, error) {
	courses, err := a.store.SearchCoursesByName(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, courseView(c))
	}
	return views, nil
}

// Stats aggregates forum-wide counters for the dashboard endpoint.
func (a *App) Stats() (Stats, error) {
	var (
		stats Stats
		err   error
	)
	if stats.TotalTopics, err = a.store.TopicCount(); err != nil {
		return Stats{}, fmt.Errorf("count topics: %w", err)
	}
	if stats.TotalReplies, err = a.store.ReplyCount(); err != nil {
		return Stats{}, fmt.Errorf("count replies: %w", err)
	}
	if stats.TotalUsers, err = a.store.UserCount(); err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	if stats.TotalCourses, err = a.store.CourseCount(); err != nil {
		return Stats{}, fmt.Errorf("count courses: %w", err)
	}
	if stats.OpenTopics, err = a.store.CountTopicsByStatus(domain.TopicOpen); err != nil {
		return Stats{}, fmt.Errorf("count open topics: %w", err)
	}
	if stats.ClosedTopics, err = a.store.CountTopicsByStatus(domain.TopicClosed); err != nil {
		return Stats{}, fmt.Errorf("count closed topics: %w", err)
	}
	if stats.ResolvedTopics, err = a.store.CountTopicsByStatus(domain.TopicResolved); err != nil {
		return Stats{}, fmt.Errorf("count resolved topics: %w", err)
	}
	return stats, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"forumhub/pkg/domain"
)

const migrateLockID int64 = 46120815

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &CourseModel{}, &TopicModel{}, &ReplyModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM reply_models r
				WHERE NOT EXISTS (SELECT 1 FROM topic_models t WHERE t.id = r.topic_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'reply_models'
					AND constraint_name = 'reply_models_topic_id_fkey'
				) THEN
					ALTER TABLE reply_models
					ADD CONSTRAINT reply_models_topic_id_fkey
					FOREIGN KEY (topic_id) REFERENCES topic_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'topic_models'
					AND constraint_name = 'topic_models_course_id_fkey'
				) THEN
					ALTER TABLE topic_models
					ADD CONSTRAINT topic_models_course_id_fkey
					FOREIGN KEY (course_id) REFERENCES course_models(id);
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure forum foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "password_hash", "role", "active", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int64, error) {
	var count int64
	err := s.db.Model(&UserModel{}).Count(&count).Error
	return count, err
}

// SaveCourse stores or updates a course.
func (s *GormStore) SaveCourse(c domain.Course) error {
	model := courseToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "description", "active"}),
	}).Create(&model).Error
}

// GetCourse retrieves a course by ID.
func (s *GormStore) GetCourse(id string) (domain.Course, bool, error) {
	var model CourseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Course{}, false, nil
		}
		return domain.Course{}, false, err
	}
	return courseFromModel(model), true, nil
}

// ListActiveCourses returns active courses ordered by name.
func (s *GormStore) ListActiveCourses(page PageRequest) ([]domain.Course, int64, error) {
	page = page.Normalize()
	query := func() *gorm.DB {
		return s.db.Model(&CourseModel{}).Where("active = ?", true)
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []CourseModel
	if err := query().Order("name ASC").Limit(page.Size).Offset(page.Offset()).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return coursesFromModels(models), total, nil
}

// ListCoursesByCategory returns active courses in a category ordered by name.
func (s *GormStore) ListCoursesByCategory(category string) ([]domain.Course, error) {
	var models []CourseModel
	if err := s.db.Where("category = ? AND active = ?", category, true).
		Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return coursesFromModels(models), nil
}

// SearchCoursesByName finds active courses whose name contains the term.
func (s *GormStore) SearchCoursesByName(name string) ([]domain.Course, error) {
	var models []CourseModel
	if err := s.db.Where("name ILIKE ? AND active = ?", "%"+name+"%", true).
		Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return coursesFromModels(models), nil
}

// ListCourseCategories returns distinct categories of active courses.
func (s *GormStore) ListCourseCategories() ([]string, error) {
	var categories []string
	if err := s.db.Model(&CourseModel{}).Where("active = ?", true).
		Distinct("category").Order("category ASC").Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CourseCount returns number of courses.
func (s *GormStore) CourseCount() (int64, error) {
	var count int64
	err := s.db.Model(&CourseModel{}).Count(&count).Error
	return count, err
}

// SaveTopic stores or updates a topic.
func (s *GormStore) SaveTopic(t domain.Topic) error {
	model := topicToModel(t)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "message", "status", "course_id", "updated_at"}),
	}).Create(&model).Error
}

// GetTopic retrieves a topic by ID.
func (s *GormStore) GetTopic(id string) (domain.Topic, bool, error) {
	var model TopicModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Topic{}, false, nil
		}
		return domain.Topic{}, false, err
	}
	return topicFromModel(model), true, nil
}

// DeleteTopic removes a topic and all of its replies.
func (s *GormStore) DeleteTopic(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ReplyModel{}, "topic_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&TopicModel{}, "id = ?", id).Error
	})
}

// ListTopics returns topics newest first.
func (s *GormStore) ListTopics(page PageRequest) ([]domain.Topic, int64, error) {
	return s.listTopics(page, func() *gorm.DB {
		return s.db.Model(&TopicModel{})
	})
}

// ListTopicsByAuthor returns an author's topics newest first.
func (s *GormStore) ListTopicsByAuthor(authorID string, page PageRequest) ([]domain.Topic, int64, error) {
	return s.listTopics(page, func() *gorm.DB {
		return s.db.Model(&TopicModel{}).Where("author_id = ?", authorID)
	})
}

// ListTopicsByCourse returns a course's topics newest first.
func (s *GormStore) ListTopicsByCourse(courseID string, page PageRequest) ([]domain.Topic, int64, error) {
	return s.listTopics(page, func() *gorm.DB {
		return s.db.Model(&TopicModel{}).Where("course_id = ?", courseID)
	})
}

// SearchTopicsByTitle finds topics whose title contains the term, newest first.
func (s *GormStore) SearchTopicsByTitle(title string, page PageRequest) ([]domain.Topic, int64, error) {
	return s.listTopics(page, func() *gorm.DB {
		return s.db.Model(&TopicModel{}).Where("title ILIKE ?", "%"+title+"%")
	})
}

func (s *GormStore) listTopics(page PageRequest, query func() *gorm.DB) ([]domain.Topic, int64, error) {
	page = page.Normalize()
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []TopicModel
	if err := query().Order("created_at DESC").Limit(page.Size).Offset(page.Offset()).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	topics := make([]domain.Topic, 0, len(models))
	for _, m := range models {
		topics = append(topics, topicFromModel(m))
	}
	return topics, total, nil
}

// TopicCount returns number of topics.
func (s *GormStore) TopicCount() (int64, error) {
	var count int64
	err := s.db.Model(&TopicModel{}).Count(&count).Error
	return count, err
}

// CountTopicsByStatus returns number of topics in a given status.
func (s *GormStore) CountTopicsByStatus(status domain.TopicStatus) (int64, error) {
	var count int64
	err := s.db.Model(&TopicModel{}).Where("status = ?", string(status)).Count(&count).Error
	return count, err
}

// SaveReply stores or updates a reply.
func (s *GormStore) SaveReply(r domain.Reply) error {
	model := replyToModel(r)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "solution", "updated_at"}),
	}).Create(&model).Error
}

// GetReply retrieves a reply by ID.
func (s *GormStore) GetReply(id string) (domain.Reply, bool, error) {
	var model ReplyModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Reply{}, false, nil
		}
		return domain.Reply{}, false, err
	}
	return replyFromModel(model), true, nil
}

// DeleteReply removes a reply. Topic status is left untouched even when the
// deleted reply was the solution; see the unmark operation for recomputation.
func (s *GormStore) DeleteReply(id string) error {
	return s.db.Delete(&ReplyModel{}, "id = ?", id).Error
}

// ListRepliesByTopic returns all replies of a topic in creation order.
func (s *GormStore) ListRepliesByTopic(topicID string) ([]domain.Reply, error) {
	var models []ReplyModel
	if err := s.db.Where("topic_id = ?", topicID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return repliesFromModels(models), nil
}

// ListRepliesByTopicPaged returns a topic's replies in creation order.
func (s *GormStore) ListRepliesByTopicPaged(topicID string, page PageRequest) ([]domain.Reply, int64, error) {
	page = page.Normalize()
	query := func() *gorm.DB {
		return s.db.Model(&ReplyModel{}).Where("topic_id = ?", topicID)
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []ReplyModel
	if err := query().Order("created_at ASC").Limit(page.Size).Offset(page.Offset()).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return repliesFromModels(models), total, nil
}

// ListRepliesByAuthor returns an author's replies newest first.
func (s *GormStore) ListRepliesByAuthor(authorID string, page PageRequest) ([]domain.Reply, int64, error) {
	page = page.Normalize()
	query := func() *gorm.DB {
		return s.db.Model(&ReplyModel{}).Where("author_id = ?", authorID)
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []ReplyModel
	if err := query().Order("created_at DESC").Limit(page.Size).Offset(page.Offset()).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return repliesFromModels(models), total, nil
}

// CountRepliesByTopic returns number of replies of a topic.
func (s *GormStore) CountRepliesByTopic(topicID string) (int64, error) {
	var count int64
	err := s.db.Model(&ReplyModel{}).Where("topic_id = ?", topicID).Count(&count).Error
	return count, err
}

// HasSolutionReply reports whether the topic has a reply flagged as solution.
func (s *GormStore) HasSolutionReply(topicID string) (bool, error) {
	var count int64
	if err := s.db.Model(&ReplyModel{}).Where("topic_id = ? AND solution = ?", topicID, true).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReplyCount returns number of replies.
func (s *GormStore) ReplyCount() (int64, error) {
	var count int64
	err := s.db.Model(&ReplyModel{}).Count(&count).Error
	return count, err
}

// MarkSolution clears any existing solution flag on the topic, flags the
// target reply, and moves the topic to RESUELTO. The whole sequence runs in
// one transaction so concurrent markings on the same topic serialize and at
// most one reply ends up flagged.
func (s *GormStore) MarkSolution(topicID, replyID string) error {
	now := time.Now().UTC()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ReplyModel{}).
			Where("topic_id = ? AND solution = ? AND id <> ?", topicID, true, replyID).
			Updates(map[string]any{"solution": false, "updated_at": now}).Error; err != nil {
			return err
		}
		res := tx.Model(&ReplyModel{}).
			Where("id = ? AND topic_id = ?", replyID, topicID).
			Updates(map[string]any{"solution": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&TopicModel{}).
			Where("id = ?", topicID).
			Updates(map[string]any{"status": string(domain.TopicResolved), "updated_at": now}).Error
	})
}

// UnmarkSolution clears the reply's solution flag and, when no flagged reply
// remains on the topic, moves the topic back to ABIERTO.
func (s *GormStore) UnmarkSolution(topicID, replyID string) error {
	now := time.Now().UTC()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ReplyModel{}).
			Where("id = ? AND topic_id = ?", replyID, topicID).
			Updates(map[string]any{"solution": false, "updated_at": now}).Error; err != nil {
			return err
		}
		var remaining int64
		if err := tx.Model(&ReplyModel{}).
			Where("topic_id = ? AND solution = ?", topicID, true).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		return tx.Model(&TopicModel{}).
			Where("id = ?", topicID).
			Updates(map[string]any{"status": string(domain.TopicOpen), "updated_at": now}).Error
	})
}

func coursesFromModels(models []CourseModel) []domain.Course {
	res := make([]domain.Course, 0, len(models))
	for _, m := range models {
		res = append(res, courseFromModel(m))
	}
	return res
}

func repliesFromModels(models []ReplyModel) []domain.Reply {
	res := make([]domain.Reply, 0, len(models))
	for _, m := range models {
		res = append(res, replyFromModel(m))
	}
	return res
}

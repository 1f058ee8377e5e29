package store

import (
	"testing"

	"forumhub/pkg/domain"
)

func TestSeedPopulatesEmptyStore(t *testing.T) {
	s := NewMemoryStore()
	if err := Seed(s, "admin@forumhub.local", "admin123"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	courses, total, err := s.ListActiveCourses(PageRequest{Size: 100})
	if err != nil {
		t.Fatalf("list courses: %v", err)
	}
	if total != 10 || len(courses) != 10 {
		t.Fatalf("expected 10 seeded courses, got %d (%d items)", total, len(courses))
	}
	admin, ok, err := s.GetUserByEmail("admin@forumhub.local")
	if err != nil || !ok {
		t.Fatalf("expected seeded admin user, ok=%v err=%v", ok, err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", admin.Role)
	}
	if !admin.Active {
		t.Fatalf("expected admin to be active")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	if err := Seed(s, "admin@forumhub.local", "admin123"); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := Seed(s, "admin@forumhub.local", "admin123"); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	count, err := s.CourseCount()
	if err != nil {
		t.Fatalf("course count: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected seeding to stay at 10 courses, got %d", count)
	}
	users, err := s.UserCount()
	if err != nil {
		t.Fatalf("user count: %v", err)
	}
	if users != 1 {
		t.Fatalf("expected a single seeded user, got %d", users)
	}
}

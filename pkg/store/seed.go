package store

import (
	"fmt"
	"time"

	"forumhub/internal/util"
	"forumhub/pkg/auth"
	"forumhub/pkg/domain"
)

type seedCourse struct {
	name        string
	category    string
	description string
}

var seedCourses = []seedCourse{
	{"Java Orientado a Objetos", "Programación", "Curso completo de Java con enfoque en programación orientada a objetos"},
	{"Spring Framework", "Programación", "Desarrollo de aplicaciones web con Spring Boot y Spring MVC"},
	{"JavaScript para Web", "Frontend", "Desarrollo frontend moderno con JavaScript, HTML y CSS"},
	{"React: Desarrollando con JavaScript", "Frontend", "Creación de interfaces de usuario con React"},
	{"Python para Data Science", "Data Science", "Análisis de datos y machine learning con Python"},
	{"SQL con MySQL", "Base de Datos", "Gestión de bases de datos relacionales con MySQL"},
	{"Git y GitHub", "DevOps", "Control de versiones y colaboración en proyectos de software"},
	{"Docker: Creando containers", "DevOps", "Containerización de aplicaciones con Docker"},
	{"Lógica de Programación", "Fundamentos", "Conceptos básicos de programación y algoritmos"},
	{"HTML y CSS", "Frontend", "Fundamentos del desarrollo web con HTML5 y CSS3"},
}

// Seed inserts the default course catalog and the admin account when the
// respective tables are empty. Running it again is a no-op.
func Seed(s Store, adminEmail, adminPassword string) error {
	courseCount, err := s.CourseCount()
	if err != nil {
		return fmt.Errorf("count courses: %w", err)
	}
	if courseCount == 0 {
		now := time.Now().UTC()
		for _, c := range seedCourses {
			course := domain.Course{
				ID:          util.NewID(),
				Name:        c.name,
				Category:    c.category,
				Description: c.description,
				Active:      true,
				CreatedAt:   now,
			}
			if err := s.SaveCourse(course); err != nil {
				return fmt.Errorf("seed course %q: %w", c.name, err)
			}
		}
	}

	userCount, err := s.UserCount()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if userCount == 0 && adminEmail != "" && adminPassword != "" {
		hash, err := auth.HashPassword(adminPassword)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		now := time.Now().UTC()
		admin := domain.User{
			ID:           util.NewID(),
			Name:         "Administrador",
			Email:        adminEmail,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.SaveUser(admin); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
	}
	return nil
}

package server

import (
	"net/http"
	"strings"
)

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page := pageFromRequest(r)
	courses, total, err := s.app.ListCourses(page)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, courses, total, page)
}

// handleCourseSubtree routes /cursos/{...} paths:
//
//	GET /cursos/{id}
//	GET /cursos/categorias
//	GET /cursos/categoria/{categoria}
//	GET /cursos/buscar?nombre=
func (s *Server) handleCourseSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/cursos/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, codeNotFound, "course id required")
		return
	}
	parts := strings.Split(rest, "/")

	switch parts[0] {
	case "categorias":
		categories, err := s.app.ListCourseCategories()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
		return
	case "categoria":
		if len(parts) != 2 {
			writeError(w, http.StatusNotFound, codeNotFound, "category required")
			return
		}
		courses, err := s.app.ListCoursesByCategory(parts[1])
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courses)
		return
	case "buscar":
		name := strings.TrimSpace(r.URL.Query().Get("nombre"))
		if name == "" {
			writeValidationError(w, fieldErrors{"nombre": "search term is required"})
			return
		}
		courses, err := s.app.SearchCourses(name)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courses)
		return
	}

	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown course path")
		return
	}
	course, err := s.app.GetCourse(parts[0])
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

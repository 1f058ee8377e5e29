package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"forumhub/pkg/domain"
)

type createTopicRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	CourseID string `json:"courseId"`
}

type updateTopicRequest struct {
	Title    *string `json:"title"`
	Message  *string `json:"message"`
	CourseID *string `json:"courseId"`
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page := pageFromRequest(r)
		topics, total, err := s.app.ListTopics(page)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writePage(w, topics, total, page)
	case http.MethodPost:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		var req createTopicRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
			return
		}
		if errs := validateCreateTopicRequest(req); !errs.ok() {
			writeValidationError(w, errs)
			return
		}
		topic, err := s.app.CreateTopic(user, req.Title, req.Message, req.CourseID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.writeTopicSummary(w, http.StatusCreated, topic)
	default:
		methodNotAllowed(w)
	}
}

// handleTopicSubtree routes /topicos/{...} paths:
//
//	GET            /topicos/{id}
//	PUT            /topicos/{id}
//	DELETE         /topicos/{id}
//	POST           /topicos/{id}/cerrar
//	POST           /topicos/{id}/reabrir
//	GET            /topicos/mis-topicos
//	GET            /topicos/buscar?q=
//	GET            /topicos/curso/{cursoId}
func (s *Server) handleTopicSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/topicos/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, codeNotFound, "topic id required")
		return
	}
	parts := strings.Split(rest, "/")

	switch parts[0] {
	case "mis-topicos":
		s.handleMyTopics(w, r)
		return
	case "buscar":
		s.handleSearchTopics(w, r)
		return
	case "curso":
		if len(parts) != 2 {
			writeError(w, http.StatusNotFound, codeNotFound, "course id required")
			return
		}
		s.handleTopicsByCourse(w, r, parts[1])
		return
	}

	topicID := parts[0]
	switch len(parts) {
	case 1:
		s.handleTopicByID(w, r, topicID)
	case 2:
		switch parts[1] {
		case "cerrar":
			s.handleCloseTopic(w, r, topicID)
		case "reabrir":
			s.handleReopenTopic(w, r, topicID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "unknown topic operation")
		}
	default:
		writeError(w, http.StatusNotFound, codeNotFound, "unknown topic path")
	}
}

func (s *Server) handleTopicByID(w http.ResponseWriter, r *http.Request, topicID string) {
	switch r.Method {
	case http.MethodGet:
		detail, err := s.app.GetTopicDetail(topicID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPut:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		var req updateTopicRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
			return
		}
		if errs := validateUpdateTopicRequest(req); !errs.ok() {
			writeValidationError(w, errs)
			return
		}
		topic, err := s.app.UpdateTopic(user, topicID, req.Title, req.Message, req.CourseID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.writeTopicSummary(w, http.StatusOK, topic)
	case http.MethodDelete:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		if err := s.app.DeleteTopic(user, topicID); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCloseTopic(w http.ResponseWriter, r *http.Request, topicID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	topic, err := s.app.CloseTopic(user, topicID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.writeTopicSummary(w, http.StatusOK, topic)
}

func (s *Server) handleReopenTopic(w http.ResponseWriter, r *http.Request, topicID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	topic, err := s.app.ReopenTopic(user, topicID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.writeTopicSummary(w, http.StatusOK, topic)
}

func (s *Server) handleMyTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page := pageFromRequest(r)
	topics, total, err := s.app.ListMyTopics(user, page)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, topics, total, page)
}

func (s *Server) handleSearchTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeValidationError(w, fieldErrors{"q": "search term is required"})
		return
	}
	page := pageFromRequest(r)
	topics, total, err := s.app.SearchTopics(query, page)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, topics, total, page)
}

func (s *Server) handleTopicsByCourse(w http.ResponseWriter, r *http.Request, courseID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page := pageFromRequest(r)
	topics, total, err := s.app.ListTopicsByCourse(courseID, page)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, topics, total, page)
}

// writeTopicSummary serializes a mutated topic through the listing
// projection so write responses match read responses.
func (s *Server) writeTopicSummary(w http.ResponseWriter, status int, topic domain.Topic) {
	view, err := s.app.TopicSummaryOf(topic)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, status, view)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

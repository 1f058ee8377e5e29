package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"forumhub/pkg/domain"
)

type replyRequest struct {
	Message string `json:"message"`
}

// handleReplySubtree routes /respuestas/{...} paths:
//
//	GET            /respuestas/topico/{topicoId}
//	POST           /respuestas/topico/{topicoId}
//	GET            /respuestas/topico/{topicoId}/paginado
//	GET            /respuestas/mis-respuestas
//	PUT            /respuestas/{id}
//	DELETE         /respuestas/{id}
//	PATCH          /respuestas/{id}/solucion
//	DELETE         /respuestas/{id}/solucion
func (s *Server) handleReplySubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/respuestas/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, codeNotFound, "reply id required")
		return
	}
	parts := strings.Split(rest, "/")

	switch parts[0] {
	case "topico":
		switch len(parts) {
		case 2:
			s.handleTopicReplies(w, r, parts[1])
		case 3:
			if parts[2] != "paginado" {
				writeError(w, http.StatusNotFound, codeNotFound, "unknown reply path")
				return
			}
			s.handleTopicRepliesPaged(w, r, parts[1])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "unknown reply path")
		}
		return
	case "mis-respuestas":
		s.handleMyReplies(w, r)
		return
	}

	replyID := parts[0]
	switch len(parts) {
	case 1:
		s.handleReplyByID(w, r, replyID)
	case 2:
		if parts[1] != "solucion" {
			writeError(w, http.StatusNotFound, codeNotFound, "unknown reply operation")
			return
		}
		s.handleSolution(w, r, replyID)
	default:
		writeError(w, http.StatusNotFound, codeNotFound, "unknown reply path")
	}
}

func (s *Server) handleTopicReplies(w http.ResponseWriter, r *http.Request, topicID string) {
	switch r.Method {
	case http.MethodGet:
		replies, err := s.app.ListTopicReplies(topicID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, replies)
	case http.MethodPost:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		var req replyRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
			return
		}
		if errs := validateReplyMessage(req.Message); !errs.ok() {
			writeValidationError(w, errs)
			return
		}
		reply, err := s.app.CreateReply(user, topicID, req.Message)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.writeReplyView(w, http.StatusCreated, reply)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTopicRepliesPaged(w http.ResponseWriter, r *http.Request, topicID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page := pageFromRequest(r)
	replies, total, err := s.app.ListTopicRepliesPaged(topicID, page)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, replies, total, page)
}

func (s *Server) handleMyReplies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page := pageFromRequest(r)
	replies, total, err := s.app.ListMyReplies(user, page)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writePage(w, replies, total, page)
}

func (s *Server) handleReplyByID(w http.ResponseWriter, r *http.Request, replyID string) {
	switch r.Method {
	case http.MethodPut:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		var req replyRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
			return
		}
		if errs := validateReplyMessage(req.Message); !errs.ok() {
			writeValidationError(w, errs)
			return
		}
		reply, err := s.app.UpdateReply(user, replyID, req.Message)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.writeReplyView(w, http.StatusOK, reply)
	case http.MethodDelete:
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		if err := s.app.DeleteReply(user, replyID); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// handleSolution marks (PATCH) or unmarks (DELETE) a reply as solution.
func (s *Server) handleSolution(w http.ResponseWriter, r *http.Request, replyID string) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPatch:
		reply, err := s.app.MarkSolution(user, replyID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.writeReplyView(w, http.StatusOK, reply)
	case http.MethodDelete:
		reply, err := s.app.UnmarkSolution(user, replyID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.writeReplyView(w, http.StatusOK, reply)
	default:
		methodNotAllowed(w)
	}
}

// writeReplyView serializes a mutated reply through the listing projection.
func (s *Server) writeReplyView(w http.ResponseWriter, status int, reply domain.Reply) {
	view, err := s.app.ReplyViewOf(reply)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, status, view)
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"mybooks/internal/codec"
	"mybooks/internal/models"
)

const maxBodyBytes = 1 << 20

func (s *Server) encodeBooks(w http.ResponseWriter, list []models.Book) (json.RawMessage, bool) {
	raw, err := codec.Encode(list)
	if err != nil {
		s.logger.Error("Failed to encode books", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to encode books")
		return nil, false
	}
	return json.RawMessage(raw), true
}

// writeBook responds with the current state of the book with id.
func (s *Server) writeBook(w http.ResponseWriter, status int, id models.ID) {
	book, ok := s.store.Book(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	raw, err := codec.EncodeBook(book)
	if err != nil {
		s.logger.Error("Failed to encode book", zap.String("book_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to encode book")
		return
	}
	writeRawJSON(w, status, raw)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, ok := s.encodeBooks(w, s.store.Books())
	if !ok {
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.writeBook(w, http.StatusOK, s.store.ResolveID(ps.ByName("id")))
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fields, err := readObject(w, r)
	if err != nil {
		s.logger.Warn("Failed to decode request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if id, ok := fields["id"]; !ok || string(id) == "null" {
		generated, err := json.Marshal(s.newID())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to assign id")
			return
		}
		fields["id"] = generated
	}

	record, err := json.Marshal(fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	book, err := codec.DecodeBook(record)
	if err != nil {
		s.logger.Warn("Invalid book in request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.store.AddBook(r.Context(), book) {
		writeError(w, http.StatusConflict, fmt.Sprintf("Book %s already exists", book.ID))
		return
	}

	s.logger.Info("Book added via API",
		zap.String("book_id", book.ID.String()),
		zap.String("title", book.Title),
	)
	s.writeBook(w, http.StatusCreated, book.ID)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := s.store.ResolveID(ps.ByName("id"))

	fields, err := readObject(w, r)
	if err != nil {
		s.logger.Warn("Failed to decode request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	patch, err := decodePatch(fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.store.UpdateBook(r.Context(), id, patch) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	s.writeBook(w, http.StatusOK, id)
}

func (s *Server) handleRemoveBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := s.store.ResolveID(ps.ByName("id"))
	if !s.store.RemoveBook(r.Context(), id) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	s.logger.Info("Book removed via API", zap.String("book_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := s.store.ResolveID(ps.ByName("id"))

	var req struct {
		Status *string `json:"status"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == nil {
		writeError(w, http.StatusBadRequest, `Body must be {"status": "..."}`)
		return
	}

	if !s.store.UpdateBookStatus(r.Context(), id, models.ParseReadingState(*req.Status)) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	s.writeBook(w, http.StatusOK, id)
}

func (s *Server) handleMarkAsReading(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := s.store.ResolveID(ps.ByName("id"))
	if !s.store.MarkAsReading(r.Context(), id) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	s.writeBook(w, http.StatusOK, id)
}

func (s *Server) handleToggleReading(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := s.store.ResolveID(ps.ByName("id"))
	if !s.store.ToggleReading(r.Context(), id) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	s.writeBook(w, http.StatusOK, id)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := s.store.ResolveID(ps.ByName("id"))
	if !s.store.ToggleFavorite(r.Context(), id) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	s.writeBook(w, http.StatusOK, id)
}

func readObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return fields, nil
}

// decodePatch turns a partial record into a Patch. status wins over
// isReading; any non-reserved key updates the matching extra field and
// null removes it.
func decodePatch(fields map[string]json.RawMessage) (models.Patch, error) {
	var (
		patch     models.Patch
		status    *string
		isReading *bool
	)
	for key, value := range fields {
		var err error
		switch key {
		case "id":
			return models.Patch{}, errors.New("id cannot be changed")
		case "title":
			patch.Title = new(string)
			err = json.Unmarshal(value, patch.Title)
		case "author":
			patch.Author = new(string)
			err = json.Unmarshal(value, patch.Author)
		case "comment":
			patch.Comment = new(string)
			err = json.Unmarshal(value, patch.Comment)
		case "status":
			status = new(string)
			err = json.Unmarshal(value, status)
		case "isReading":
			isReading = new(bool)
			err = json.Unmarshal(value, isReading)
		case "isFavorite":
			patch.Favorite = new(bool)
			err = json.Unmarshal(value, patch.Favorite)
		default:
			if patch.Fields == nil {
				patch.Fields = make(map[string]json.RawMessage)
			}
			patch.Fields[key] = value
		}
		if err != nil {
			return models.Patch{}, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	switch {
	case status != nil:
		state := models.ParseReadingState(*status)
		patch.State = &state
	case isReading != nil:
		state := models.Unread
		if *isReading {
			state = models.Reading
		}
		patch.State = &state
	}
	return patch, nil
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/collection"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/storage"
)

const maxBodyBytes = 16 << 20

// articleRequest carries the text of an article to classify or review.
type articleRequest struct {
	Text string `json:"text"`
}

func (s *Server) decodeArticle(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req articleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return req.Text, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Engine == nil {
		s.respondError(w, http.StatusNotImplemented, "search not enabled")
		return
	}
	var query models.SearchQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(query.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.deps.Engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.deps.Collection.Get(r.Context(), id)
	if errors.Is(err, collection.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "chunk not found")
		return
	}
	if err != nil {
		s.logger.Error("get chunk failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Classifier == nil {
		s.respondError(w, http.StatusNotImplemented, "classifier not enabled")
		return
	}
	text, ok := s.decodeArticle(w, r)
	if !ok {
		return
	}
	area := s.deps.Classifier.Classify(r.Context(), text)
	s.respondJSON(w, http.StatusOK, map[string]string{"area": area})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pipeline == nil {
		s.respondError(w, http.StatusNotImplemented, "pipeline not enabled")
		return
	}
	text, ok := s.decodeArticle(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.deps.Pipeline.Run(r.Context(), text))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coll := s.deps.Collection
	chunks, err := coll.Count(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	articles, err := coll.Sources(ctx)
	if err != nil {
		s.logger.Error("status: count articles failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	areas, err := coll.Areas(ctx)
	if err != nil {
		s.logger.Error("status: list areas failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if areas == nil {
		areas = []string{}
	}
	resp := map[string]interface{}{
		"chunks":            chunks,
		"articles":          articles,
		"areas":             areas,
		"vector_index_size": coll.VectorIndex().Size(),
	}

	configInfo := map[string]interface{}{
		"embedding_model":      coll.Embedder().ModelName(),
		"embedding_dimensions": coll.Embedder().Dimensions(),
	}
	if s.config != nil {
		configInfo["generation_model"] = s.config.Generation.Model
		configInfo["max_sentences"] = s.config.Chunking.MaxSentences
		configInfo["overlap"] = s.config.Chunking.OverlapOrDefault()
		configInfo["database_path"] = s.config.Storage.DatabasePath
		configInfo["keyword_index_path"] = s.config.Storage.KeywordIndexPath

		paths := storage.DatabaseFiles(s.config.Storage.DatabasePath)
		if s.config.Storage.KeywordIndexPath != "" {
			paths = append(paths, s.config.Storage.KeywordIndexPath)
		}
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

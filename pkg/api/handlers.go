package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/blt/pkg/vtree"
)

// Server holds the API server state: the virtual tree it fronts, the
// server's own config, and its metrics.
type Server struct {
	tree    vtree.Tree
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server.
func NewServer(tree vtree.Tree, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		tree:    tree,
		config:  config,
		metrics: metrics,
	}
}

// parseKey parses the {key} path parameter as the tree's uint64 key
// type, responding with 400 and returning false on failure.
func parseKey(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "key")
	if raw == "" {
		sendError(w, "key is required", http.StatusBadRequest)
		return 0, false
	}
	key, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		sendError(w, "key must be an unsigned 64-bit integer", http.StatusBadRequest)
		return 0, false
	}
	return key, true
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Report that the server is up
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleFind godoc
//
//	@Summary		Find a value by key
//	@Description	Retrieve the value stored for an exact key
//	@Tags			keys
//	@Produce		octet-stream
//	@Param			key	path		int	true	"Key"
//	@Success		200	{string}	byte
//	@Failure		404	{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/api/v1/keys/{key} [get]
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := parseKey(w, r)
	if !ok {
		return
	}

	value, err := s.tree.Find(key)
	if err != nil {
		s.metrics.RecordTreeOp("find", false, time.Since(start))
		if errors.Is(err, vtree.ErrNotFound) {
			sendError(w, "key not found", http.StatusNotFound)
		} else {
			sendError(w, fmt.Sprintf("find failed: %v", err), http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordTreeOp("find", true, time.Since(start))
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

// handleGe godoc
//
//	@Summary		Find the smallest key at or above a query key
//	@Description	Returns the first key-value pair with key >= the queried key
//	@Tags			keys
//	@Produce		json
//	@Param			key	path		int	true	"Query key"
//	@Success		200	{object}	KV
//	@Failure		404	{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/api/v1/keys/{key}/ge [get]
func (s *Server) handleGe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := parseKey(w, r)
	if !ok {
		return
	}

	foundKey, value, err := s.tree.Ge(key)
	if err != nil {
		s.metrics.RecordTreeOp("ge", false, time.Since(start))
		if errors.Is(err, vtree.ErrNotFound) {
			sendError(w, "no key at or above query", http.StatusNotFound)
		} else {
			sendError(w, fmt.Sprintf("ge failed: %v", err), http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordTreeOp("ge", true, time.Since(start))
	sendSuccess(w, KV{Key: foundKey, Value: value})
}

// handleInsert godoc
//
//	@Summary		Insert or overwrite a key
//	@Description	Store the request body as the value for key
//	@Tags			keys
//	@Accept			octet-stream
//	@Produce		json
//	@Param			key		path		int		true	"Key"
//	@Param			body	body		[]byte	true	"Value"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/api/v1/keys/{key} [put]
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := parseKey(w, r)
	if !ok {
		return
	}

	value, err := io.ReadAll(r.Body)
	if err != nil {
		s.metrics.RecordTreeOp("insert", false, time.Since(start))
		sendError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if err := s.tree.Insert(key, value); err != nil {
		s.metrics.RecordTreeOp("insert", false, time.Since(start))
		if errors.Is(err, vtree.ErrCapacityExceeded) {
			sendError(w, "value exceeds maximum size", http.StatusBadRequest)
		} else {
			sendError(w, fmt.Sprintf("insert failed: %v", err), http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordTreeOp("insert", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "key stored"})
}

// handleBulkInsert godoc
//
//	@Summary		Bulk insert key-value pairs
//	@Description	Insert many key-value pairs in one call
//	@Tags			keys
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]KV	true	"Key-value pairs"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/api/v1/keys/bulk [post]
func (s *Server) handleBulkInsert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var items []KV
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		s.metrics.RecordTreeOp("bulkinsert", false, time.Since(start))
		sendError(w, "invalid JSON request body", http.StatusBadRequest)
		return
	}

	vitems := make([]vtree.KV, len(items))
	for i, kv := range items {
		vitems[i] = vtree.KV{Key: kv.Key, Value: kv.Value}
	}

	if err := s.tree.BulkInsert(vitems); err != nil {
		s.metrics.RecordTreeOp("bulkinsert", false, time.Since(start))
		sendError(w, fmt.Sprintf("bulk insert failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordTreeOp("bulkinsert", true, time.Since(start))
	sendSuccess(w, map[string]interface{}{"message": "bulk insert complete", "count": len(items)})
}

// handleDelete godoc
//
//	@Summary		Delete a key
//	@Description	Remove a key; the response carries a confirmation message, not the prior value
//	@Tags			keys
//	@Produce		json
//	@Param			key	path		int	true	"Key"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/api/v1/keys/{key} [delete]
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := parseKey(w, r)
	if !ok {
		return
	}

	if _, err := s.tree.Delete(key); err != nil {
		s.metrics.RecordTreeOp("delete", false, time.Since(start))
		if errors.Is(err, vtree.ErrNotFound) {
			sendError(w, "key not found", http.StatusNotFound)
		} else {
			sendError(w, fmt.Sprintf("delete failed: %v", err), http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordTreeOp("delete", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "key deleted"})
}

// handleRangeQuery godoc
//
//	@Summary		Query a key range
//	@Description	Return up to max key-value pairs with low <= key <= high
//	@Tags			keys
//	@Produce		json
//	@Param			low		query		int	true	"Lower bound (inclusive)"
//	@Param			high	query		int	true	"Upper bound (inclusive)"
//	@Param			max		query		int	false	"Maximum results"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/api/v1/range [get]
func (s *Server) handleRangeQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	low, err := strconv.ParseUint(r.URL.Query().Get("low"), 10, 64)
	if err != nil {
		sendError(w, "low must be an unsigned 64-bit integer", http.StatusBadRequest)
		return
	}
	high, err := strconv.ParseUint(r.URL.Query().Get("high"), 10, 64)
	if err != nil {
		sendError(w, "high must be an unsigned 64-bit integer", http.StatusBadRequest)
		return
	}

	max := 1000
	if maxStr := r.URL.Query().Get("max"); maxStr != "" {
		if m, err := strconv.Atoi(maxStr); err == nil && m > 0 {
			max = m
		}
	}

	results := s.tree.RangeQuery(low, high, max)
	s.metrics.RecordTreeOp("rangequery", true, time.Since(start))

	out := make([]KV, len(results))
	for i, kv := range results {
		out[i] = KV{Key: kv.Key, Value: kv.Value}
	}
	sendSuccess(w, map[string]interface{}{"results": out})
}

// handleCheckpoint godoc
//
//	@Summary		Checkpoint the tree
//	@Description	Flush the WAL (if any) and checkpoint the tree to a new root
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/api/v1/checkpoint [post]
func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := s.tree.Checkpoint(); err != nil {
		s.metrics.RecordTreeOp("checkpoint", false, time.Since(start))
		sendError(w, fmt.Sprintf("checkpoint failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordTreeOp("checkpoint", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "checkpoint complete"})
}

package devserver

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/qaplatform/qaglue/pkg/csrf"
)

const suggestLimit = 5

// voteBody accepts the item_type/item_id names the page sends and the
// type/id names older pages used.
type voteBody struct {
	ItemType string      `json:"item_type"`
	ItemID   json.Number `json:"item_id"`
	Type     string      `json:"type"`
	ID       json.Number `json:"id"`
	Value    *int        `json:"value"`
}

func (b voteBody) key() Key {
	k := Key{ItemType: b.ItemType, ItemID: b.ItemID.String()}
	if k.ItemType == "" {
		k.ItemType = b.Type
	}
	if k.ItemID == "" {
		k.ItemID = b.ID.String()
	}
	return k
}

type voteResponse struct {
	NewScore int `json:"new_score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) voteHandler(w http.ResponseWriter, r *http.Request) {
	if !s.validCSRF(r) {
		s.metrics.voteRejected("csrf")
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "CSRF token missing or incorrect"})
		return
	}

	user := clientID(r)
	if !s.limiter.Allow(user) {
		s.metrics.voteRejected("rate_limit")
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many votes"})
		return
	}

	var body voteBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	if err := dec.Decode(&body); err != nil {
		s.metrics.voteRejected("malformed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed vote"})
		return
	}
	key := body.key()
	if msg := validateVote(key, body.Value); msg != "" {
		s.metrics.voteRejected("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	value := *body.Value
	score, err := s.store.Cast(r.Context(), user, key, value)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "devserver: store vote",
			"item_type", key.ItemType, "item_id", key.ItemID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not store vote"})
		return
	}
	s.metrics.voteStored(key.ItemType, strconv.Itoa(value))
	s.logger.InfoContext(r.Context(), "devserver: vote stored",
		"user", user, "item_type", key.ItemType, "item_id", key.ItemID, "value", value, "score", score)

	switch {
	case value > 0:
		s.hub.Notify("Your "+key.ItemType+" received an upvote", "success")
	case value < 0:
		s.hub.Notify("Your "+key.ItemType+" received a downvote", "info")
	}

	writeJSON(w, http.StatusOK, voteResponse{NewScore: score})
}

func validateVote(key Key, value *int) string {
	switch key.ItemType {
	case "question", "answer":
	default:
		return "item_type must be question or answer"
	}
	if id, err := strconv.Atoi(key.ItemID); err != nil || id <= 0 {
		return "item_id must be a positive integer"
	}
	if value == nil {
		return "value is required"
	}
	if *value < -1 || *value > 1 {
		return "value must be -1, 0 or 1"
	}
	return ""
}

func (s *Server) validCSRF(r *http.Request) bool {
	if s.csrfToken == "" {
		return true
	}
	got := r.Header.Get(csrf.HeaderName)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.csrfToken)) == 1
}

// clientID identifies the voter: X-User-ID if present, else the remote
// host.
func clientID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	fragment, err := RenderResults(q, s.catalog.Search(q))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "devserver: render results", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(fragment))
}

func (s *Server) suggestTagsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.metrics.suggestionServed()
	writeJSON(w, http.StatusOK, s.catalog.SuggestTags(q.Get("title"), q.Get("content"), suggestLimit))
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	totals, err := s.store.Totals(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "devserver: count votes", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "stats unavailable"})
		return
	}

	answers, unanswered := 0, 0
	for _, q := range s.catalog.Questions {
		answers += q.Answers
		if q.Answers == 0 {
			unanswered++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": map[string]int{
			"total":      len(s.catalog.Questions),
			"unanswered": unanswered,
		},
		"answers": map[string]int{"total": answers},
		"tags":    map[string]int{"total": len(s.catalog.Tags())},
		"votes": map[string]int{
			"total": totals.Votes,
			"up":    totals.Up,
			"down":  totals.Down,
		},
		"notifications": map[string]int{"unread": s.hub.Unread()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

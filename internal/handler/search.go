package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/capitalize-ai/chatstore/internal/search"
	"github.com/capitalize-ai/chatstore/internal/store"
)

// SearchHandler handles message search.
type SearchHandler struct {
	store *store.Store
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(st *store.Store) *SearchHandler {
	return &SearchHandler{store: st}
}

// Search handles GET /api/v1/search?q=&text=&images=&files=&voice=&code=&from=&to=
// Category toggles default to on. Dates are RFC 3339 timestamps or
// YYYY-MM-DD, which means midnight UTC of that day.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := parseFilters(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := h.store.Search(q.Get("q"), filters)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

func parseFilters(q url.Values) (search.Filters, error) {
	f := search.DefaultFilters()
	toggles := map[string]*bool{
		"text":   &f.Text,
		"images": &f.Images,
		"files":  &f.Files,
		"voice":  &f.Voice,
		"code":   &f.Code,
	}
	for name, dst := range toggles {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, &paramError{name: name}
		}
		*dst = b
	}

	var err error
	if f.From, err = parseBound(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseBound(q, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func parseBound(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, &paramError{name: name}
}

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return "invalid value for " + e.name
}

package httputil

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"encantar/pkg/dateutil"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/domain"
)

// PathID parses a chi URL parameter as an identifier.
func PathID(r *http.Request, name string) (uuid.UUID, error) {
	return domain.ParseID(chi.URLParam(r, name), name)
}

// QueryInt reads an optional integer query parameter; absent means 0.
func QueryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be a number", key)
	}
	return n, nil
}

// QueryBool reads true/false, returning nil for anything else ("all", empty).
func QueryBool(r *http.Request, key string) *bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

// QueryDayRange reads start_date and end_date (YYYY-MM-DD) as Brazil-local
// day boundaries.
func QueryDayRange(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if s := q.Get("start_date"); s != "" {
		t, err := dateutil.StartOfDay(s)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if s := q.Get("end_date"); s != "" {
		t, err := dateutil.EndOfDay(s)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "end_date must not be before start_date")
	}
	return from, to, nil
}

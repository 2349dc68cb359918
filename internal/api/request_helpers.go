package api

import (
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tracker-api/internal/api/shared"
	"github.com/phrazzld/tracker-api/internal/domain"
)

// formDecoder is implemented by requests that may arrive form-encoded.
type formDecoder interface {
	decodeForm(form url.Values) error
}

// decodeRequest fills req from a JSON or form-encoded body and validates it.
func decodeRequest(w http.ResponseWriter, r *http.Request, req formDecoder) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, shared.MaxBodyBytes)
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(shared.MaxBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return domain.NewValidationError("body", "malformed form")
		}
		if err := req.decodeForm(r.PostForm); err != nil {
			return err
		}
	default:
		if err := shared.DecodeJSON(w, r, req); err != nil {
			return err
		}
	}

	return shared.ValidateRequest(req)
}

// getPathID extracts a positive integer id from the URL path parameters.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.NewValidationError(paramName, "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(paramName, "has invalid format")
	}
	return id, nil
}

// parseTaskFilter reads the list filters from the query string.
func parseTaskFilter(query url.Values) (domain.TaskFilter, error) {
	filter := domain.TaskFilter{
		Status:   domain.TaskStatus(strings.TrimSpace(query.Get("status"))),
		Priority: domain.TaskPriority(strings.TrimSpace(query.Get("priority"))),
	}

	ints := []struct {
		name string
		dst  func(int64)
	}{
		{"responsible_user_id", func(v int64) { filter.ResponsibleUserID = v }},
		{"limit", func(v int64) { filter.Limit = int(v) }},
		{"offset", func(v int64) { filter.Offset = int(v) }},
	}
	for _, p := range ints {
		raw := strings.TrimSpace(query.Get(p.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, domain.NewValidationError(p.name, "must be an integer")
		}
		p.dst(v)
	}
	return filter, nil
}

// Package api provides HTTP handlers for the gateway API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
)

const maxFormMemory = 32 << 20

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

var errBadBody = errors.New("malformed request body")

// readFields collects string fields from a JSON, urlencoded or multipart
// body. Non-string JSON scalars are stringified; nested values are ignored.
func readFields(r *http.Request) (map[string]string, error) {
	fields := make(map[string]string)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				fields[k] = val
			case float64:
				fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
			case bool:
				fields[k] = strconv.FormatBool(val)
			}
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	}

	return fields, nil
}

// requireFields returns a field-to-message map for every listed field that
// is missing or empty.
func requireFields(fields map[string]string, names ...string) map[string]string {
	errs := make(map[string]string)
	for _, name := range names {
		if fields[name] == "" {
			errs[name] = invalidValue
		}
	}
	return errs
}

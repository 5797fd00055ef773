package gateway

import (
	"encoding/json"
	"net/http"

	"session-gateway/session"
)

type successBody struct {
	Session session.Session `json:"session"`
	Cached  bool            `json:"cached"`
}

type errorBody struct {
	Error   string           `json:"error"`
	Session *session.Session `json:"session"`
}

// CORS são os headers estáticos enviados em toda resposta, inclusive erros.
type CORS struct {
	AllowOrigin  string
	AllowHeaders string
	AllowMethods string
}

func DefaultCORS() CORS {
	return CORS{
		AllowOrigin:  "*",
		AllowHeaders: "authorization, x-client-info, apikey, content-type",
		AllowMethods: "GET, POST, OPTIONS",
	}
}

func (c CORS) apply(h http.Header) {
	h.Set("Access-Control-Allow-Origin", c.AllowOrigin)
	h.Set("Access-Control-Allow-Headers", c.AllowHeaders)
	h.Set("Access-Control-Allow-Methods", c.AllowMethods)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encode response","session":null}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, e *Error) {
	writeJSON(w, e.Status, errorBody{Error: e.Message})
}

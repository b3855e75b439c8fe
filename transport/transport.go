// Package transport provides small, router-agnostic HTTP helpers: typed
// JSON request/response payloads and a method+path route table that can
// be bound onto any mux. It carries forward the RouteTable2/MethodPath
// shape this codebase's HTTP services already use, dropped of its
// goji-specific sibling now that the services in this repository bind
// onto go-chi/chi instead.
package transport

import (
	"encoding/json"
	"net/http"
	"sort"
)

// IntPayload is a JSON document of the shape {"int": value}.
type IntPayload struct {
	Int int `json:"int"`
}

// BoolPayload is a JSON document of the shape {"bool": value}.
type BoolPayload struct {
	Bool bool `json:"bool"`
}

// StringPayload is a JSON document of the shape {"str": value}.
type StringPayload struct {
	Str string `json:"str"`
}

// MethodPath identifies one HTTP route independent of any particular
// router implementation.
type MethodPath struct {
	Method, Path string
}

// RouteTable maps a MethodPath to its handler. It is agnostic to the
// router backend; callers Bind it onto whatever mux they're using.
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns a sorted, de-duplicated list of "METHOD path" strings
// for diagnostics.
func (rt RouteTable) Endpoints() []string {
	seen := make(map[string]struct{}, len(rt))
	out := make([]string, 0, len(rt))
	for mp := range rt {
		s := mp.Method + " " + mp.Path
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// EndpointsHandler replies with the JSON-encoded endpoint list, handy for
// a diagnostic "what can I call here" route.
func (rt RouteTable) EndpointsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(rt.Endpoints()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// DecodeInt reads an IntPayload from r's body.
func DecodeInt(r *http.Request) (int, error) {
	var p IntPayload
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return 0, err
	}
	return p.Int, nil
}

// DecodeString reads a StringPayload from r's body.
func DecodeString(r *http.Request) (string, error) {
	var p StringPayload
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return "", err
	}
	return p.Str, nil
}

// DecodeBool reads a BoolPayload from r's body.
func DecodeBool(r *http.Request) (bool, error) {
	var p BoolPayload
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return false, err
	}
	return p.Bool, nil
}

// WriteJSON encodes v as the response body with a 200 status.
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError replies with err's message and the given status code.
func WriteError(w http.ResponseWriter, err error, status int) {
	http.Error(w, err.Error(), status)
}

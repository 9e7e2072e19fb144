package e2e_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// fakeRecordAPI is an in-memory Record API shaped like an API Gateway proxy:
// the list body is a JSON-encoded string under "body".
type fakeRecordAPI struct {
	mu      sync.Mutex
	nextID  int
	records map[int]map[string]any
}

func newFakeRecordAPI(t *testing.T) (*fakeRecordAPI, string) {
	t.Helper()

	api := &fakeRecordAPI{nextID: 1, records: map[int]map[string]any{}}

	r := chi.NewRouter()
	r.Get("/prod/users", api.list)
	r.Post("/prod/users", api.create)
	r.Get("/prod/users/{id}", api.get)
	r.Put("/prod/users/{id}", api.update)
	r.Delete("/prod/users/{id}", api.delete)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return api, server.URL + "/prod/users"
}

func (a *fakeRecordAPI) emailTaken(email string) bool {
	for _, rec := range a.records {
		if rec["email"] == email {
			return true
		}
	}
	return false
}

func (a *fakeRecordAPI) list(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if email := r.URL.Query().Get("email"); email != "" {
		if a.emailTaken(email) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Email already exists"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"body": "[]"})
		return
	}

	users := make([]map[string]any, 0, len(a.records))
	for id := 1; id < a.nextID; id++ {
		if rec, ok := a.records[id]; ok {
			users = append(users, rec)
		}
	}
	encoded, _ := json.Marshal(users)
	writeJSON(w, http.StatusOK, map[string]string{"body": string(encoded)})
}

func (a *fakeRecordAPI) create(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if email, _ := rec["email"].(string); a.emailTaken(email) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Email already exists"})
		return
	}

	id := a.nextID
	a.nextID++
	rec["id"] = id
	a.records[id] = rec

	writeJSON(w, http.StatusCreated, rec)
}

func (a *fakeRecordAPI) lookup(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad id"})
		return 0, false
	}
	if _, ok := a.records[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return 0, false
	}
	return id, true
}

func (a *fakeRecordAPI) get(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, a.records[id])
	}
}

func (a *fakeRecordAPI) update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.lookup(w, r)
	if !ok {
		return
	}
	for k, v := range patch {
		if k != "id" {
			a.records[id][k] = v
		}
	}
	writeJSON(w, http.StatusOK, a.records[id])
}

func (a *fakeRecordAPI) delete(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.lookup(w, r); ok {
		delete(a.records, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

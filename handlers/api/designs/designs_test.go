package designs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apparel-studio/core"
	"apparel-studio/middleware"

	"github.com/go-chi/chi/v5"
)

type mockDesignStore struct {
	designs map[string]*core.SavedDesign
	err     error
}

func newMockDesignStore(designs ...*core.SavedDesign) *mockDesignStore {
	m := &mockDesignStore{designs: make(map[string]*core.SavedDesign)}
	for _, d := range designs {
		m.designs[d.ID] = d
	}
	return m
}

func (m *mockDesignStore) SaveDesign(ctx context.Context, d *core.SavedDesign) error {
	m.designs[d.ID] = d
	return nil
}

func (m *mockDesignStore) ListDesigns(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*core.SavedDesign
	for _, d := range m.designs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDesignStore) GetDesign(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.designs[id]
	if !ok || d.UserID != userID {
		return nil, core.ErrNotFound
	}
	return d, nil
}

func (m *mockDesignStore) DeleteDesign(ctx context.Context, userID, id string) error {
	if m.err != nil {
		return m.err
	}
	d, ok := m.designs[id]
	if !ok || d.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.designs, id)
	return nil
}

func newRouter(store core.DesignStore) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/designs", HandleListDesigns(store))
	r.Get("/api/designs/{id}", HandleGetDesign(store))
	r.Delete("/api/designs/{id}", HandleDeleteDesign(store))
	return r
}

func serve(h http.Handler, method, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleDesign(id, userID string) *core.SavedDesign {
	return &core.SavedDesign{
		ID:        id,
		UserID:    userID,
		ProductID: "tshirt-1",
		Design: core.Design{
			ID:          id,
			CanvasColor: "#FFFFFF",
			Elements:    []core.DesignElement{},
			CreatedAt:   time.Unix(1700000000, 0).UTC(),
		},
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestHandleListDesigns(t *testing.T) {
	store := newMockDesignStore(sampleDesign("design-1", "user-1"), sampleDesign("design-2", "user-2"))
	h := newRouter(store)

	w := serve(h, http.MethodGet, "/api/designs", "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got []core.SavedDesign
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "design-1" {
		t.Errorf("expected only user-1's design, got %+v", got)
	}

	w = serve(h, http.MethodGet, "/api/designs", "user-3")
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("expected empty list, got %q", body)
	}

	if w := serve(h, http.MethodGet, "/api/designs", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}

	store.err = errors.New("disk on fire")
	if w := serve(h, http.MethodGet, "/api/designs", "user-1"); w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestHandleGetDesign(t *testing.T) {
	h := newRouter(newMockDesignStore(sampleDesign("design-1", "user-1")))

	w := serve(h, http.MethodGet, "/api/designs/design-1", "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got core.SavedDesign
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Design.CanvasColor != "#FFFFFF" || got.ProductID != "tshirt-1" {
		t.Errorf("unexpected design: %+v", got)
	}

	if w := serve(h, http.MethodGet, "/api/designs/design-1", "user-2"); w.Code != http.StatusNotFound {
		t.Errorf("other user: expected status 404, got %d", w.Code)
	}
	if w := serve(h, http.MethodGet, "/api/designs/missing", "user-1"); w.Code != http.StatusNotFound {
		t.Errorf("missing: expected status 404, got %d", w.Code)
	}
}

func TestHandleDeleteDesign(t *testing.T) {
	store := newMockDesignStore(sampleDesign("design-1", "user-1"))
	h := newRouter(store)

	if w := serve(h, http.MethodDelete, "/api/designs/design-1", "user-2"); w.Code != http.StatusNotFound {
		t.Errorf("other user: expected status 404, got %d", w.Code)
	}
	if w := serve(h, http.MethodDelete, "/api/designs/design-1", "user-1"); w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if _, ok := store.designs["design-1"]; ok {
		t.Error("design should have been deleted")
	}
	if w := serve(h, http.MethodDelete, "/api/designs/design-1", "user-1"); w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status 404, got %d", w.Code)
	}
}

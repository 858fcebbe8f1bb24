package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/onairfm/apiserver/internal/services"
	"github.com/onairfm/apiserver/internal/store"
	"github.com/onairfm/apiserver/types"
)

type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	users := []types.User{}
	for id := 1; id < f.nextID; id++ {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func newUserTestRouter(repo *fakeUserRepo) http.Handler {
	router := chi.NewRouter()
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, services.NewUserService(repo))
	})
	return router
}

func TestCreateUser(t *testing.T) {
	repo := newFakeUserRepo()
	router := newUserTestRouter(repo)

	body := `{"username":"dj","email":"dj@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var parsed types.User
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if parsed.ID == 0 || parsed.Username != "dj" {
		t.Fatalf("unexpected user %+v", parsed)
	}
}

func TestCreateUserMissingFields(t *testing.T) {
	cases := []string{
		`{"username":"dj"}`,
		`{"email":"dj@example.com"}`,
		`{}`,
		`{"username":"  ","email":"dj@example.com"}`,
	}
	for _, body := range cases {
		repo := newFakeUserRepo()
		router := newUserTestRouter(repo)

		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		if len(repo.users) != 0 {
			t.Fatalf("body %s: expected no user created", body)
		}
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := newFakeUserRepo()
	router := newUserTestRouter(repo)

	body := `{"username":"dj","email":"dj@example.com"}`
	for i, want := range []int{http.StatusCreated, http.StatusBadRequest} {
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected exactly 1 user, got %d", len(repo.users))
	}
}

func TestListUsers(t *testing.T) {
	repo := newFakeUserRepo()
	_, _ = repo.Create(context.Background(), types.User{Username: "a", Email: "a@example.com"})
	_, _ = repo.Create(context.Background(), types.User{Username: "b", Email: "b@example.com"})
	router := newUserTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var parsed []types.User
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 users, got %d", len(parsed))
	}
}

func TestGetUserNotFound(t *testing.T) {
	router := newUserTestRouter(newFakeUserRepo())

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetUserBadID(t *testing.T) {
	router := newUserTestRouter(newFakeUserRepo())

	req := httptest.NewRequest(http.MethodGet, "/users/not-a-number", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	created, _ := repo.Create(context.Background(), types.User{Username: "dj", Email: "dj@example.com"})
	router := newUserTestRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, ok := repo.users[created.ID]; ok {
		t.Fatalf("expected user to be deleted")
	}

	req = httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

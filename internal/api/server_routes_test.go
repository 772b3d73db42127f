package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reeldump/internal/api/auth"
	"reeldump/internal/model"
	"reeldump/internal/pkg/metrics"
	"reeldump/internal/scraper"
	"reeldump/internal/token"
)

type routeUserStore struct {
	user *model.User
}

func (s *routeUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *routeUserStore) FindByUID(ctx context.Context, uid uint) (*model.User, error) {
	if s.user != nil && s.user.UID == uid {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *routeUserStore) Create(ctx context.Context, user *model.User) error {
	user.UID = 1
	return nil
}

// newRoutedServer 构建完整路由表的 Server，所有请求经由真实 router 分发。
func newRoutedServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens := token.NewManager("test_secret")
	userStore := &routeUserStore{user: &model.User{UID: 7, Email: "a@x.com"}}
	reelStore := &mockReelStore{
		createFunc: func(ctx context.Context, reel *model.Reel) error { return nil },
		listCategoriesFunc: func(ctx context.Context, uid uint) ([]string, error) {
			return []string{"cooking"}, nil
		},
		listByCategoryFunc: func(ctx context.Context, uid uint, category string) ([]model.Reel, error) {
			return []model.Reel{}, nil
		},
		updateCategoryFunc: func(ctx context.Context, rid uint, category string) error { return nil },
		updateNameFunc:     func(ctx context.Context, rid uint, name string) error { return nil },
	}

	s := &Server{
		logger:    logger,
		router:    gin.New(),
		tokens:    tokens,
		auth:      auth.NewHandler(userStore, tokens, logger),
		userStore: userStore,
		reelStore: reelStore,
		scraper:   stubScraper{meta: scraper.Metadata{}},
	}
	s.registerRoutes()

	signed, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return s, signed
}

func serveRoute(s *Server, method, path, tok string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

// TestRegisterRoutes_TableServes 覆盖完整路由表：注册本身不得 panic
// （两条 category 路由共用通配符段），且文档化的路径都能按预期分发。
func TestRegisterRoutes_TableServes(t *testing.T) {
	s, tok := newRoutedServer(t)

	cases := []struct {
		method string
		path   string
		token  string
		body   []byte
		want   int
	}{
		{http.MethodPost, "/auth/signup", "", []byte(`{"email":"b@x.com","password":"pw1"}`), http.StatusCreated},
		{http.MethodPost, "/auth/signup", "", []byte(`{}`), http.StatusBadRequest},
		{http.MethodPost, "/auth/login", "", []byte(`{"email":"nobody@x.com","password":"pw1"}`), http.StatusNotFound},
		{http.MethodGet, "/auth/user/data", tok, nil, http.StatusOK},
		{http.MethodGet, "/auth/user/data", "", nil, http.StatusUnauthorized},
		{http.MethodPost, "/reels/save", tok, []byte(`{"reel_link":"https://v/1","category":"misc"}`), http.StatusCreated},
		{http.MethodGet, "/reels/category/7", tok, nil, http.StatusOK},
		{http.MethodGet, "/reels/category/cooking/7", tok, nil, http.StatusOK},
		{http.MethodGet, "/reels/category/7", "", nil, http.StatusUnauthorized},
		{http.MethodPatch, "/reels/update/category/3", tok, []byte(`{"category":"travel"}`), http.StatusOK},
		{http.MethodPatch, "/reels/update/name/3", tok, []byte(`{"name":"new"}`), http.StatusOK},
	}

	for _, tc := range cases {
		w := serveRoute(s, tc.method, tc.path, tc.token, tc.body)
		if w.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.want, w.Code, w.Body.String())
		}
	}
}

// 两条列表路由落在不同 handler 上：单段取分类列表，双段取分类下的 reels。
func TestRegisterRoutes_CategoryRoutesDispatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotCategoriesUID uint
	var gotListUID uint
	var gotListCategory string
	tokens := token.NewManager("test_secret")
	userStore := &routeUserStore{user: &model.User{UID: 7, Email: "a@x.com"}}
	reelStore := &mockReelStore{
		listCategoriesFunc: func(ctx context.Context, uid uint) ([]string, error) {
			gotCategoriesUID = uid
			return []string{}, nil
		},
		listByCategoryFunc: func(ctx context.Context, uid uint, category string) ([]model.Reel, error) {
			gotListUID, gotListCategory = uid, category
			return []model.Reel{}, nil
		},
	}

	s := &Server{
		logger:    logger,
		router:    gin.New(),
		tokens:    tokens,
		auth:      auth.NewHandler(userStore, tokens, logger),
		userStore: userStore,
		reelStore: reelStore,
		scraper:   stubScraper{},
	}
	s.registerRoutes()

	tok, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if w := serveRoute(s, http.MethodGet, "/reels/category/7", tok, nil); w.Code != http.StatusOK {
		t.Fatalf("categories route: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotCategoriesUID != 7 {
		t.Fatalf("expected categories lookup for uid 7, got %d", gotCategoriesUID)
	}

	if w := serveRoute(s, http.MethodGet, "/reels/category/cooking/7", tok, nil); w.Code != http.StatusOK {
		t.Fatalf("reels-by-category route: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotListUID != 7 || gotListCategory != "cooking" {
		t.Fatalf("expected lookup of (7, cooking), got (%d, %q)", gotListUID, gotListCategory)
	}
}

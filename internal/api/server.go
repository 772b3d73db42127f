package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"reeldump/internal/api/auth"
	"reeldump/internal/api/middleware"
	"reeldump/internal/api/response"
	"reeldump/internal/config"
	"reeldump/internal/model"
	"reeldump/internal/pkg/metrics"
	"reeldump/internal/scraper"
	"reeldump/internal/token"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、令牌管理器、页面抓取器以及 Gin 路由引擎。
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	router    *gin.Engine
	tokens    *token.Manager
	auth      *auth.Handler
	userStore auth.UserStore
	reelStore ReelStore
	scraper   MetadataScraper
}

// ReelStore 是 reels 表的数据访问接口。
type ReelStore interface {
	Create(ctx context.Context, reel *model.Reel) error
	ListCategories(ctx context.Context, uid uint) ([]string, error)
	ListByCategory(ctx context.Context, uid uint, category string) ([]model.Reel, error)
	UpdateCategory(ctx context.Context, rid uint, category string) error
	UpdateName(ctx context.Context, rid uint, name string) error
}

// MetadataScraper 抓取外部页面并提取展示元数据。
type MetadataScraper interface {
	Scrape(ctx context.Context, pageURL string) scraper.Metadata
}

type dbUserStore struct {
	db *gorm.DB
}

func (s dbUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) FindByUID(ctx context.Context, uid uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) Create(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

type dbReelStore struct {
	db *gorm.DB
}

func (s dbReelStore) Create(ctx context.Context, reel *model.Reel) error {
	return s.db.WithContext(ctx).Create(reel).Error
}

func (s dbReelStore) ListCategories(ctx context.Context, uid uint) ([]string, error) {
	categories := []string{}
	err := s.db.WithContext(ctx).Model(&model.Reel{}).
		Distinct("category").
		Where("uid = ?", uid).
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s dbReelStore) ListByCategory(ctx context.Context, uid uint, category string) ([]model.Reel, error) {
	reels := []model.Reel{}
	err := s.db.WithContext(ctx).
		Where("uid = ? AND category = ?", uid, category).
		Find(&reels).Error
	if err != nil {
		return nil, err
	}
	return reels, nil
}

func (s dbReelStore) UpdateCategory(ctx context.Context, rid uint, category string) error {
	return s.db.WithContext(ctx).Model(&model.Reel{}).
		Where("rid = ?", rid).
		Update("category", category).Error
}

func (s dbReelStore) UpdateName(ctx context.Context, rid uint, name string) error {
	return s.db.WithContext(ctx).Model(&model.Reel{}).
		Where("rid = ?", rid).
		Update("name", name).Error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 初始化令牌管理器与页面抓取器
// 3. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
		TranslateError: true,                                          // 唯一索引冲突映射为 gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&model.User{}, &model.Reel{}); err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	tokens := token.NewManager(cfg.Security.JWTSecret)
	userStore := dbUserStore{db: db}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		router:    r,
		tokens:    tokens,
		auth:      auth.NewHandler(userStore, tokens, logger),
		userStore: userStore,
		reelStore: dbReelStore{db: db},
		scraper:   scraper.New(cfg.Scrape.UserAgent, logger),
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库连接。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	authRoutes := s.router.Group("/auth")
	authRoutes.POST("/signup", s.auth.SignUp)
	authRoutes.POST("/login", s.auth.LogIn)
	authRoutes.GET("/user/data", middleware.AuthMiddleware(s.tokens, s.userStore, s.logger), s.auth.GetUser)

	reels := s.router.Group("/reels")
	reels.Use(middleware.AuthMiddleware(s.tokens, s.userStore, s.logger))
	reels.POST("/save", s.handleSaveReel)
	// gin 同一路径位置只允许一个通配符名，两条列表路由共用 :category 段，
	// /category/:category 上该段承载的是 uid。
	reels.GET("/category/:category", s.handleGetCategories)
	reels.GET("/category/:category/:uid", s.handleGetReelsByCategory)
	reels.PATCH("/update/category/:rid", s.handleUpdateCategory)
	reels.PATCH("/update/name/:rid", s.handleUpdateName)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// saveReelRequest 保存 reel 的请求参数。
type saveReelRequest struct {
	UID      uint   `json:"uid"`
	ReelLink string `json:"reel_link" binding:"required"`
	Category string `json:"category" binding:"required"`
	Name     string `json:"name"`
}

type updateCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type updateNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// handleSaveReel 抓取链接元数据并保存 reel 记录。
//
// POST /reels/save
// 抓取失败不会中断保存，缩略图与名称保持为空。
func (s *Server) handleSaveReel(c *gin.Context) {
	var req saveReelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Data missing, please provide all fields.")
		return
	}
	uid := req.UID
	if uid == 0 {
		uid = c.GetUint("uid")
	}

	meta := s.scraper.Scrape(c.Request.Context(), req.ReelLink)

	name := req.Name
	if name == "" {
		name = meta.Title
	}

	var thumbnail *string
	if meta.Thumbnail != "" {
		thumbnail = &meta.Thumbnail
	}

	reel := model.Reel{
		UID:       uid,
		ReelLink:  req.ReelLink,
		Thumbnail: thumbnail,
		Name:      name,
		Category:  req.Category,
	}
	if err := s.reelStore.Create(c.Request.Context(), &reel); err != nil {
		s.logger.Error("save reel failed", slog.Uint64("uid", uint64(uid)), slog.String("error", err.Error()))
		response.Error(c, http.StatusInternalServerError, "Failed to save data. Try again.")
		return
	}

	if metrics.ReelSavedTotal != nil {
		metrics.ReelSavedTotal.Inc()
	}
	response.Success(c, http.StatusCreated, "Data saved successfully.", nil)
}

// handleGetCategories 返回用户使用过的分类列表。
//
// GET /reels/category/:uid
func (s *Server) handleGetCategories(c *gin.Context) {
	// 该段在路由表中注册为 :category（与 reels-by-category 路由共用通配符）
	uid, err := parseUintParam(c, "category")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid uid.")
		return
	}

	categories, err := s.reelStore.ListCategories(c.Request.Context(), uid)
	if err != nil {
		s.logger.Error("list categories failed", slog.Uint64("uid", uint64(uid)), slog.String("error", err.Error()))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch categories. Try again.")
		return
	}

	response.Success(c, http.StatusOK, "Categories fetched successfully.", categories)
}

// handleGetReelsByCategory 返回指定分类下的 reels。
//
// GET /reels/category/:category/:uid
func (s *Server) handleGetReelsByCategory(c *gin.Context) {
	uid, err := parseUintParam(c, "uid")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid uid.")
		return
	}
	category := c.Param("category")

	reels, err := s.reelStore.ListByCategory(c.Request.Context(), uid, category)
	if err != nil {
		s.logger.Error("list reels failed",
			slog.Uint64("uid", uint64(uid)),
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		response.Error(c, http.StatusInternalServerError, "Failed to fetch reels. Try again.")
		return
	}

	response.Success(c, http.StatusOK, "Data fetched successfully.", reels)
}

// handleUpdateCategory 调整 reel 所属分类。
//
// PATCH /reels/update/category/:rid
func (s *Server) handleUpdateCategory(c *gin.Context) {
	rid, err := parseUintParam(c, "rid")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid rid.")
		return
	}
	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Data missing, please provide all fields.")
		return
	}

	if err := s.reelStore.UpdateCategory(c.Request.Context(), rid, req.Category); err != nil {
		s.logger.Error("update category failed", slog.Uint64("rid", uint64(rid)), slog.String("error", err.Error()))
		response.Error(c, http.StatusInternalServerError, "Failed to update category. Try again.")
		return
	}

	response.Success(c, http.StatusOK, "Reel moved successfully.", nil)
}

// handleUpdateName 修改 reel 展示名称。
//
// PATCH /reels/update/name/:rid
func (s *Server) handleUpdateName(c *gin.Context) {
	rid, err := parseUintParam(c, "rid")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid rid.")
		return
	}
	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Data missing, please provide all fields.")
		return
	}

	if err := s.reelStore.UpdateName(c.Request.Context(), rid, req.Name); err != nil {
		s.logger.Error("update name failed", slog.Uint64("rid", uint64(rid)), slog.String("error", err.Error()))
		response.Error(c, http.StatusInternalServerError, "Failed to update name. Try again.")
		return
	}

	response.Success(c, http.StatusOK, "Name updated successfully.", nil)
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

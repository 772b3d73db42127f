package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reeldump/internal/api/response"
	"reeldump/internal/model"
	"reeldump/internal/pkg/metrics"
	"reeldump/internal/token"
)

// UserStore 是用户表的数据访问接口。
//
// 查无记录时返回 gorm.ErrRecordNotFound；
// 邮箱唯一索引冲突时 Create 返回 gorm.ErrDuplicatedKey。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUID(ctx context.Context, uid uint) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

// Handler 提供注册、登录与用户信息接口。
type Handler struct {
	store  UserStore
	tokens *token.Manager
	logger *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(store UserStore, tokens *token.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userData struct {
	UID   uint   `json:"uid"`
	Email string `json:"email"`
}

type loginData struct {
	UID         uint   `json:"uid"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

// SignUp 创建新用户。
//
// POST /auth/signup
func (h *Handler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if h.logger != nil {
			h.logger.Info("signup missing fields")
		}
		response.Error(c, http.StatusBadRequest, "Data missing, please provide all fields.")
		return
	}

	// 邮箱按原样精确匹配，不做大小写归一。
	_, err := h.store.FindByEmail(c.Request.Context(), req.Email)
	if err == nil {
		if metrics.SignupConflictTotal != nil {
			metrics.SignupConflictTotal.Inc()
		}
		response.Error(c, http.StatusConflict, "User already exists.")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		if h.logger != nil {
			h.logger.Error("signup lookup failed", slog.String("error", err.Error()))
		}
		response.Error(c, http.StatusInternalServerError, "Failed to create user account. Try again.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("hash password failed", slog.String("error", err.Error()))
		}
		response.Error(c, http.StatusInternalServerError, "Failed to create user account. Try again.")
		return
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hash),
	}
	if err := h.store.Create(c.Request.Context(), &user); err != nil {
		// 并发注册穿过上面的存在性检查时，由唯一索引兜底。
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if metrics.SignupConflictTotal != nil {
				metrics.SignupConflictTotal.Inc()
			}
			response.Error(c, http.StatusConflict, "User already exists.")
			return
		}
		if h.logger != nil {
			h.logger.Error("create user failed", slog.String("email", req.Email), slog.String("error", err.Error()))
		}
		response.Error(c, http.StatusInternalServerError, "Failed to create user account. Try again.")
		return
	}

	if h.logger != nil {
		h.logger.Info("user registered", slog.String("email", req.Email))
	}
	response.Success(c, http.StatusCreated, "User account created successfully.", userData{
		UID:   user.UID,
		Email: user.Email,
	})
}

// LogIn 校验凭证并签发访问令牌。
//
// POST /auth/login
func (h *Handler) LogIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if h.logger != nil {
			h.logger.Info("login missing fields")
		}
		response.Error(c, http.StatusBadRequest, "Data missing, please provide all fields.")
		return
	}

	user, err := h.store.FindByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Error(c, http.StatusNotFound, "No user found with this email.")
		return
	}
	if err != nil {
		if h.logger != nil {
			h.logger.Error("login lookup failed", slog.String("error", err.Error()))
		}
		response.Error(c, http.StatusInternalServerError, "Failed to log in. Try again.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		response.Error(c, http.StatusUnauthorized, "Wrong password.")
		return
	}

	tok, err := h.tokens.Issue(user.UID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("email", req.Email), slog.String("error", err.Error()))
		}
		response.Error(c, http.StatusInternalServerError, "Failed to log in. Try again.")
		return
	}

	if h.logger != nil {
		h.logger.Info("user logged in", slog.String("email", req.Email))
	}
	response.Success(c, http.StatusOK, "User authenticated successfully.", loginData{
		UID:         user.UID,
		Email:       user.Email,
		AccessToken: tok,
	})
}

// GetUser 返回当前用户信息。
//
// GET /auth/user/data
// uid 取自鉴权中间件解析出的令牌身份，不信任请求体。
func (h *Handler) GetUser(c *gin.Context) {
	uid := c.GetUint("uid")

	user, err := h.store.FindByUID(c.Request.Context(), uid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Error(c, http.StatusNotFound, "No user found with this id.")
		return
	}
	if err != nil {
		if h.logger != nil {
			h.logger.Error("fetch user failed", slog.Uint64("uid", uint64(uid)), slog.String("error", err.Error()))
		}
		response.Error(c, http.StatusInternalServerError, "Failed to fetch user data.")
		return
	}

	response.Success(c, http.StatusOK, "User data fetched successfully.", userData{
		UID:   user.UID,
		Email: user.Email,
	})
}

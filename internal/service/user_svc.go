package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"estate_listing_v1/internal/api/dto"
	"estate_listing_v1/internal/middleware"
	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
)

// ==================== UserService 用户服务 ====================

// UserService 用户服务
type UserService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{userRepo: userRepo, log: log}
}

// ==================== 认证相关 ====================

// Signup 注册普通用户
func (s *UserService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.UserInfo, error) {
	user, err := s.createUser(ctx, req.Email, req.Password, req.Name, model.UserRoleUser)
	if err != nil {
		return nil, err
	}
	return s.toUserInfo(user), nil
}

// Login 用户登录
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	// 查找用户
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// 检查状态
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 生成 Token
	token, expiresAt, err := middleware.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	// 更新最后登录时间
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("update last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return &dto.LoginResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: expiresAt,
		User:      s.toUserInfo(user),
	}, nil
}

// GetProfile 获取当前用户信息
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.toUserInfo(user), nil
}

// SeedAdmin 启动时创建管理员，已存在则跳过
func (s *UserService) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := s.createUser(ctx, email, password, "Administrator", model.UserRoleAdmin); err != nil {
		return err
	}
	s.log.Info("admin user seeded", zap.String("email", email))
	return nil
}

// ==================== 辅助方法 ====================

func (s *UserService) createUser(ctx context.Context, email, password, name, role string) (*model.User, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:    email,
		Password: string(hashedPassword),
		Name:     strings.TrimSpace(name),
		Role:     role,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// toUserInfo 转换为 DTO
func (s *UserService) toUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// ==================== 错误定义 ====================

var (
	ErrMissingCredentials = errors.New("Email and password are required")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrUserDisabled       = errors.New("User account is disabled")
	ErrUserNotFound       = errors.New("User not found")
	ErrEmailExists        = errors.New("Email is already registered")
)

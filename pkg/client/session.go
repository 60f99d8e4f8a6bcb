package client

import (
	"context"
	"sync"
)

// SessionProvider 提供当前登录会话的 Token，未登录返回空字符串
type SessionProvider interface {
	Token(ctx context.Context) (string, error)
}

// MemorySession 进程内会话
type MemorySession struct {
	mu    sync.RWMutex
	token string
}

func NewMemorySession(token string) *MemorySession {
	return &MemorySession{token: token}
}

func (s *MemorySession) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemorySession) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemorySession) Clear() {
	s.Set("")
}

// SignIn 登录并保存 Token
func (s *MemorySession) SignIn(ctx context.Context, c *Client, email, password string) error {
	resp, err := c.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.Set(resp.Token)
	return nil
}

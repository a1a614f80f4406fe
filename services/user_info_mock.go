package services

import (
	"context"
	"errors"
	"sync"
)

// ErrMockUserInfo is returned by MockUserInfoProvider for unknown tokens
var ErrMockUserInfo = errors.New("mock userinfo: unknown access token")

// MockUserInfoProvider serves canned Auth0 profiles keyed by access token
type MockUserInfoProvider struct {
	mu       sync.RWMutex
	profiles map[string]*Auth0UserInfo
}

// NewMockUserInfoProvider creates an empty provider
func NewMockUserInfoProvider() *MockUserInfoProvider {
	return &MockUserInfoProvider{profiles: make(map[string]*Auth0UserInfo)}
}

// SetProfile registers the profile returned for accessToken
func (m *MockUserInfoProvider) SetProfile(accessToken string, info *Auth0UserInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[accessToken] = info
}

// GetUserInfo returns the registered profile
func (m *MockUserInfoProvider) GetUserInfo(_ context.Context, accessToken string) (*Auth0UserInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.profiles[accessToken]
	if !ok {
		return nil, ErrMockUserInfo
	}
	copied := *info
	return &copied, nil
}

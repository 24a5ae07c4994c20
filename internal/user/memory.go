package user

import (
	"context"
	"sync"
)

// MemoryStore はプロセス内にユーザーを保持するストアです。開発とテストで使います。
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
	byEmail    map[string]string
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *MemoryStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	username = NormalizeUsername(username)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if username != "" {
		if id, ok := s.byUsername[username]; ok {
			clone := *s.byID[id]
			return &clone, nil
		}
	}
	if email != "" {
		if id, ok := s.byEmail[email]; ok {
			clone := *s.byID[id]
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(ctx context.Context, in NewUser) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := newRecord(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[record.Username]; ok {
		return nil, ErrDuplicate
	}
	if _, ok := s.byEmail[record.Email]; ok {
		return nil, ErrDuplicate
	}
	s.byID[record.ID] = record
	s.byUsername[record.Username] = record.ID
	s.byEmail[record.Email] = record.ID

	clone := *record
	return &clone, nil
}

func (s *MemoryStore) SetRefreshToken(ctx context.Context, id, token string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.RefreshToken = token
	u.UpdatedAt = now()

	clone := *u
	return &clone, nil
}

func (s *MemoryStore) ClearRefreshToken(ctx context.Context, id string) (*User, error) {
	return s.SetRefreshToken(ctx, id, "")
}

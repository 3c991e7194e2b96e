package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store used when Redis is unreachable and
// in tests. Sessions do not survive a restart, which matches the fallback
// expectation: losing sessions just forces users to log in again.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]*memSession
	now  func() time.Time
}

type memSession struct {
	userID    uint64
	csrfToken string
	flashes   []Flash
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:  ttl,
		data: make(map[string]*memSession),
		now:  time.Now,
	}
}

// get returns the live session for id, expiring it lazily. Callers must
// hold s.mu.
func (s *MemoryStore) get(id string) (*memSession, error) {
	sess, ok := s.data[id]
	if !ok {
		return nil, ErrNoSession
	}
	if s.now().After(sess.expiresAt) {
		delete(s.data, id)
		return nil, ErrNoSession
	}
	sess.expiresAt = s.now().Add(s.ttl)
	return sess, nil
}

func (s *MemoryStore) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.data[id] = &memSession{expiresAt: s.now().Add(s.ttl)}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return Data{}, err
	}
	return Data{UserID: sess.userID, CSRFToken: sess.csrfToken}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemoryStore) BindUser(ctx context.Context, id string, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.userID = userID
	return nil
}

func (s *MemoryStore) EnsureCSRF(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	if sess.csrfToken != "" {
		return sess.csrfToken, nil
	}
	tok, err := newToken()
	if err != nil {
		return "", err
	}
	sess.csrfToken = tok
	return tok, nil
}

func (s *MemoryStore) AddFlash(ctx context.Context, id string, f Flash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.flashes = append(sess.flashes, f)
	return nil
}

func (s *MemoryStore) PopFlashes(ctx context.Context, id string) ([]Flash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	out := sess.flashes
	sess.flashes = nil
	return out, nil
}

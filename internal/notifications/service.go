package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// Notification is an append-only merchant event. Only the Read flag ever
// changes after creation.
type Notification struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Signature string                 `json:"signature,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	Read      bool                   `json:"read"`
}

// Service defines notification operations for a merchant storefront.
type Service interface {
	Add(ctx context.Context, slug string, n Notification) (*Notification, error)
	List(ctx context.Context, slug string, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, slug string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, slug string) (int, error)
}

type service struct {
	mu     sync.RWMutex
	bySlug map[string][]*Notification
}

// NewService returns the in-process notification store.
func NewService() Service {
	return &service{bySlug: map[string][]*Notification{}}
}

func (s *service) Add(ctx context.Context, slug string, n Notification) (*Notification, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storefront slug required")
	}
	if !n.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification type required")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := n
	s.bySlug[slug] = append(s.bySlug[slug], &stored)
	result := stored
	return &result, nil
}

func (s *service) List(ctx context.Context, slug string, unreadOnly bool) ([]Notification, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storefront slug required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Notification{}
	for _, n := range s.bySlug[slug] {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *service) MarkRead(ctx context.Context, slug string, id uuid.UUID) error {
	if slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "storefront slug required")
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.bySlug[slug] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
}

func (s *service) MarkAllRead(ctx context.Context, slug string) (int, error) {
	if slug == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "storefront slug required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.bySlug[slug] {
		if !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

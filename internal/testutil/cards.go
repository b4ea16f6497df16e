package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-cards/pkg/domain"
)

// CardStore is an in-memory listing store with a unique business number index.
type CardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]domain.Card

	Err error
	// Taken marks business numbers that Create and SetBizNumber reject as
	// already claimed, without BizNumberExists reporting them.
	Taken map[int]bool
}

func NewCardStore(cards ...*domain.Card) *CardStore {
	s := &CardStore{cards: make(map[uuid.UUID]domain.Card), Taken: make(map[int]bool)}
	for _, c := range cards {
		s.cards[c.ID] = clone(*c)
	}
	return s
}

func clone(c domain.Card) domain.Card {
	c.Likes = slices.Clone(c.Likes)
	return c
}

func (s *CardStore) bizNumberUsed(n int, except uuid.UUID) bool {
	if s.Taken[n] {
		return true
	}
	for id, c := range s.cards {
		if id != except && c.BizNumber == n {
			return true
		}
	}
	return false
}

func (s *CardStore) BizNumberExists(_ context.Context, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, c := range s.cards {
		if c.BizNumber == n {
			return true, nil
		}
	}
	return false, nil
}

func (s *CardStore) Create(_ context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.bizNumberUsed(card.BizNumber, uuid.Nil) {
		return domain.ErrBizNumberTaken
	}
	s.cards[card.ID] = clone(*card)
	return nil
}

func (s *CardStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	c = clone(c)
	return &c, nil
}

func (s *CardStore) list(keep func(domain.Card) bool) []*domain.Card {
	out := []*domain.Card{}
	for _, c := range s.cards {
		if keep(c) {
			c = clone(c)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *CardStore) List(_ context.Context, includeBlocked bool) ([]*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.list(func(c domain.Card) bool { return includeBlocked || !c.IsBlocked }), nil
}

func (s *CardStore) ListByOwner(_ context.Context, owner uuid.UUID) ([]*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.list(func(c domain.Card) bool { return c.UserID == owner }), nil
}

func (s *CardStore) Update(_ context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cur, ok := s.cards[card.ID]
	if !ok {
		return domain.ErrCardNotFound
	}
	next := clone(*card)
	next.BizNumber, next.UserID, next.Likes, next.IsBlocked = cur.BizNumber, cur.UserID, cur.Likes, cur.IsBlocked
	s.cards[card.ID] = next
	return nil
}

func (s *CardStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.cards[id]; !ok {
		return domain.ErrCardNotFound
	}
	delete(s.cards, id)
	return nil
}

func (s *CardStore) ToggleLike(_ context.Context, cardID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	c, ok := s.cards[cardID]
	if !ok {
		return false, domain.ErrCardNotFound
	}
	if i := slices.Index(c.Likes, userID); i >= 0 {
		c.Likes = slices.Delete(c.Likes, i, i+1)
		s.cards[cardID] = c
		return false, nil
	}
	c.Likes = append(c.Likes, userID)
	s.cards[cardID] = c
	return true, nil
}

func (s *CardStore) SetBizNumber(_ context.Context, id uuid.UUID, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c, ok := s.cards[id]
	if !ok {
		return domain.ErrCardNotFound
	}
	if s.bizNumberUsed(n, id) {
		return domain.ErrBizNumberTaken
	}
	c.BizNumber = n
	s.cards[id] = c
	return nil
}

func (s *CardStore) SetBlocked(_ context.Context, id uuid.UUID, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c, ok := s.cards[id]
	if !ok {
		return domain.ErrCardNotFound
	}
	c.IsBlocked = blocked
	s.cards[id] = c
	return nil
}

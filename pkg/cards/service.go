package cards

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-cards/pkg/auth"
	"github.com/tendant/simple-cards/pkg/domain"
)

// Store is the listing store. Create and SetBizNumber return
// domain.ErrBizNumberTaken when the unique constraint rejects the number;
// lookups by id return domain.ErrCardNotFound.
type Store interface {
	BizNumberChecker
	Create(ctx context.Context, card *domain.Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	List(ctx context.Context, includeBlocked bool) ([]*domain.Card, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Card, error)
	Update(ctx context.Context, card *domain.Card) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ToggleLike adds userID to the likes set if absent or removes it if
	// present, atomically, and reports whether the card is now liked.
	ToggleLike(ctx context.Context, cardID, userID uuid.UUID) (bool, error)
	SetBizNumber(ctx context.Context, id uuid.UUID, n int) error
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
}

// Input is the editable content of a card.
type Input struct {
	Title       string
	Subtitle    string
	Description string
	Phone       string
	Email       string
	Web         string
	Image       domain.Image
	Address     domain.Address
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	Title       *string
	Subtitle    *string
	Description *string
	Phone       *string
	Email       *string
	Web         *string
	Image       *ImagePatch
	Address     *AddressPatch
}

type ImagePatch struct {
	URL *string
	Alt *string
}

type AddressPatch struct {
	State       *string
	Country     *string
	City        *string
	Street      *string
	HouseNumber *int
	Zip         *int
}

// Service implements the card use cases. Callers authenticate first;
// ownership decisions that need the stored card are made here.
type Service struct {
	store     Store
	allocator *Allocator
	now       func() time.Time
}

func NewService(store Store, allocator *Allocator) *Service {
	return &Service{store: store, allocator: allocator, now: time.Now}
}

// List returns all cards. Blocked cards are visible to admins only.
func (s *Service) List(ctx context.Context, viewer *auth.Principal) ([]*domain.Card, error) {
	return s.store.List(ctx, viewer != nil && viewer.IsAdmin)
}

// ListByOwner returns every card owned by p, blocked ones included.
func (s *Service) ListByOwner(ctx context.Context, p auth.Principal) ([]*domain.Card, error) {
	return s.store.ListByOwner(ctx, p.UserID)
}

// Get returns a card. A blocked card is reported as not found to non-admins.
func (s *Service) Get(ctx context.Context, id uuid.UUID, viewer *auth.Principal) (*domain.Card, error) {
	card, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.IsBlocked && (viewer == nil || !viewer.IsAdmin) {
		return nil, domain.ErrCardNotFound
	}
	return card, nil
}

// Create validates the input, allocates a business number and stores the card.
func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*domain.Card, error) {
	if err := auth.RequireBusiness()(ctx, p); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	card := &domain.Card{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Title:       in.Title,
		Subtitle:    in.Subtitle,
		Description: in.Description,
		Phone:       in.Phone,
		Email:       in.Email,
		Web:         in.Web,
		Image:       in.Image,
		Address:     in.Address,
		Likes:       []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := Validate(card); err != nil {
		return nil, err
	}

	_, err := s.allocator.AllocateAndStore(ctx, func(ctx context.Context, n int) error {
		card.BizNumber = n
		return s.store.Create(ctx, card)
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Update applies patch to a card owned by p. Business number, owner and
// likes cannot be changed here.
func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, patch Patch) (*domain.Card, error) {
	card, err := s.ownedCard(ctx, p, id)
	if err != nil {
		return nil, err
	}

	patch.apply(card)
	if err := Validate(card); err != nil {
		return nil, err
	}
	card.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// Delete removes a card owned by p and returns it.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) (*domain.Card, error) {
	card, err := s.ownedCard(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	return card, nil
}

// ToggleLike flips p's like on a visible card and returns the updated card.
func (s *Service) ToggleLike(ctx context.Context, p auth.Principal, id uuid.UUID) (*domain.Card, bool, error) {
	if _, err := s.Get(ctx, id, &p); err != nil {
		return nil, false, err
	}
	liked, err := s.store.ToggleLike(ctx, id, p.UserID)
	if err != nil {
		return nil, false, err
	}
	card, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return card, liked, nil
}

// ChangeBizNumber assigns a freshly allocated business number.
func (s *Service) ChangeBizNumber(ctx context.Context, p auth.Principal, id uuid.UUID) (*domain.Card, error) {
	card, err := s.ownedCard(ctx, p, id)
	if err != nil {
		return nil, err
	}

	n, err := s.allocator.AllocateAndStore(ctx, func(ctx context.Context, n int) error {
		return s.store.SetBizNumber(ctx, id, n)
	})
	if err != nil {
		return nil, err
	}
	card.BizNumber = n
	card.UpdatedAt = s.now().UTC()
	return card, nil
}

// SetBlocked hides or restores a card. Callers must have checked admin rights.
func (s *Service) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) (*domain.Card, error) {
	if err := s.store.SetBlocked(ctx, id, blocked); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

func (s *Service) ownedCard(ctx context.Context, p auth.Principal, id uuid.UUID) (*domain.Card, error) {
	card, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrAdmin(card.UserID)(ctx, p); err != nil {
		return nil, err
	}
	return card, nil
}

func (p Patch) apply(c *domain.Card) {
	set(&c.Title, p.Title)
	set(&c.Subtitle, p.Subtitle)
	set(&c.Description, p.Description)
	set(&c.Phone, p.Phone)
	set(&c.Email, p.Email)
	set(&c.Web, p.Web)
	if p.Image != nil {
		set(&c.Image.URL, p.Image.URL)
		set(&c.Image.Alt, p.Image.Alt)
	}
	if p.Address != nil {
		set(&c.Address.State, p.Address.State)
		set(&c.Address.Country, p.Address.Country)
		set(&c.Address.City, p.Address.City)
		set(&c.Address.Street, p.Address.Street)
		set(&c.Address.HouseNumber, p.Address.HouseNumber)
		set(&c.Address.Zip, p.Address.Zip)
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Package cards serves the business card directory.
package cards

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-cards/internal/httputil"
	"github.com/tendant/simple-cards/pkg/auth"
	cardsvc "github.com/tendant/simple-cards/pkg/cards"
	"github.com/tendant/simple-cards/pkg/domain"
)

// Handler handles card endpoints.
type Handler struct {
	logger *slog.Logger
	cards  *cardsvc.Service
	errs   *httputil.ErrorResponder
}

// NewHandler creates a new cards handler.
func NewHandler(logger *slog.Logger, cards *cardsvc.Service, errs *httputil.ErrorResponder) *Handler {
	return &Handler{logger: logger, cards: cards, errs: errs}
}

// CreateRequest is the body of POST /cards.
type CreateRequest struct {
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Description string         `json:"description"`
	Phone       string         `json:"phone"`
	Email       string         `json:"email"`
	Web         string         `json:"web"`
	Image       domain.Image   `json:"image"`
	Address     domain.Address `json:"address"`
}

// UpdateRequest is the body of PUT /cards/{id}. Omitted fields are left unchanged.
type UpdateRequest struct {
	Title       *string        `json:"title"`
	Subtitle    *string        `json:"subtitle"`
	Description *string        `json:"description"`
	Phone       *string        `json:"phone"`
	Email       *string        `json:"email"`
	Web         *string        `json:"web"`
	Image       *ImageUpdate   `json:"image"`
	Address     *AddressUpdate `json:"address"`
}

type ImageUpdate struct {
	URL *string `json:"url"`
	Alt *string `json:"alt"`
}

type AddressUpdate struct {
	State       *string `json:"state"`
	Country     *string `json:"country"`
	City        *string `json:"city"`
	Street      *string `json:"street"`
	HouseNumber *int    `json:"houseNumber"`
	Zip         *int    `json:"zip"`
}

func (u UpdateRequest) patch() cardsvc.Patch {
	p := cardsvc.Patch{
		Title:       u.Title,
		Subtitle:    u.Subtitle,
		Description: u.Description,
		Phone:       u.Phone,
		Email:       u.Email,
		Web:         u.Web,
	}
	if u.Image != nil {
		p.Image = &cardsvc.ImagePatch{URL: u.Image.URL, Alt: u.Image.Alt}
	}
	if u.Address != nil {
		p.Address = &cardsvc.AddressPatch{
			State:       u.Address.State,
			Country:     u.Address.Country,
			City:        u.Address.City,
			Street:      u.Address.Street,
			HouseNumber: u.Address.HouseNumber,
			Zip:         u.Address.Zip,
		}
	}
	return p
}

// CardResponse is the public view of a card. UserID is only shown to the
// owner and to admins.
type CardResponse struct {
	ID          string         `json:"id"`
	BizNumber   int            `json:"bizNumber"`
	UserID      string         `json:"userId,omitempty"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Description string         `json:"description"`
	Phone       string         `json:"phone"`
	Email       string         `json:"email"`
	Web         string         `json:"web,omitempty"`
	Image       domain.Image   `json:"image"`
	Address     domain.Address `json:"address"`
	LikeCount   int            `json:"likeCount"`
	LikedByMe   bool           `json:"likedByMe"`
	IsBlocked   bool           `json:"isBlocked,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// LikeResponse is returned by the like toggle.
type LikeResponse struct {
	Card  CardResponse `json:"card"`
	Liked bool         `json:"liked"`
}

func toResponse(c *domain.Card, viewer *auth.Principal) CardResponse {
	resp := CardResponse{
		ID:          c.ID.String(),
		BizNumber:   c.BizNumber,
		Title:       c.Title,
		Subtitle:    c.Subtitle,
		Description: c.Description,
		Phone:       c.Phone,
		Email:       c.Email,
		Web:         c.Web,
		Image:       c.Image,
		Address:     c.Address,
		LikeCount:   len(c.Likes),
		CreatedAt:   c.CreatedAt,
	}
	if viewer != nil {
		resp.LikedByMe = c.LikedBy(viewer.UserID)
		if viewer.IsAdmin || c.OwnedBy(viewer.UserID) {
			resp.UserID = c.UserID.String()
			resp.IsBlocked = c.IsBlocked
		}
	}
	return resp
}

func toResponses(list []*domain.Card, viewer *auth.Principal) []CardResponse {
	out := make([]CardResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c, viewer))
	}
	return out
}

func viewer(r *http.Request) *auth.Principal {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return &p
}

// List returns the directory.
// GET /cards
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	v := viewer(r)
	list, err := h.cards.List(r.Context(), v)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponses(list, v))
}

// Sandbox returns the caller's own cards.
// GET /cards/sandbox
func (h *Handler) Sandbox(w http.ResponseWriter, r *http.Request) {
	v := viewer(r)
	list, err := h.cards.ListByOwner(r.Context(), *v)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponses(list, v))
}

// LegacyMyCards serves the old /cards/my path.
// GET /cards/my
func (h *Handler) LegacyMyCards(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Deprecation", "true")
	w.Header().Set("Warning", `299 - "Deprecated API: use /cards/sandbox"`)
	h.Sandbox(w, r)
}

// Get returns one card.
// GET /cards/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	v := viewer(r)
	card, err := h.cards.Get(r.Context(), id, v)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(card, v))
}

// Create publishes a card for the calling business account.
// POST /cards
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httputil.ReadJSON(w, r, &req) {
		return
	}
	v := viewer(r)
	card, err := h.cards.Create(r.Context(), *v, cardsvc.Input{
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		Description: req.Description,
		Phone:       req.Phone,
		Email:       req.Email,
		Web:         req.Web,
		Image:       req.Image,
		Address:     req.Address,
	})
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	h.logger.Info("card created", "card_id", card.ID, "biz_number", card.BizNumber, "user_id", v.UserID)
	httputil.JSON(w, http.StatusCreated, toResponse(card, v))
}

// Update edits a card.
// PUT /cards/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if !httputil.ReadJSON(w, r, &req) {
		return
	}
	v := viewer(r)
	card, err := h.cards.Update(r.Context(), *v, id, req.patch())
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(card, v))
}

// Patch toggles the caller's like when the body is empty or "{}" and
// otherwise applies it as an update.
// PATCH /cards/{id}
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if isEmptyBody(raw) {
		h.ToggleLike(w, r)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	h.Update(w, r)
}

func isEmptyBody(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	var fields map[string]json.RawMessage
	return json.Unmarshal(raw, &fields) == nil && len(fields) == 0
}

// Delete removes a card.
// DELETE /cards/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	v := viewer(r)
	card, err := h.cards.Delete(r.Context(), *v, id)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	h.logger.Info("card deleted", "card_id", id, "by", v.UserID)
	httputil.JSON(w, http.StatusOK, toResponse(card, v))
}

// ToggleLike adds or removes the caller's like.
// PATCH /cards/{id}/like
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	v := viewer(r)
	card, liked, err := h.cards.ToggleLike(r.Context(), *v, id)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, LikeResponse{Card: toResponse(card, v), Liked: liked})
}

// ChangeBizNumber assigns a new business number.
// PATCH /cards/{id}/bizNumber
func (h *Handler) ChangeBizNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	v := viewer(r)
	card, err := h.cards.ChangeBizNumber(r.Context(), *v, id)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	h.logger.Info("biz number changed", "card_id", id, "biz_number", card.BizNumber, "by", v.UserID)
	httputil.JSON(w, http.StatusOK, toResponse(card, v))
}

// Block hides a card from the directory.
// PATCH /cards/{id}/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock restores a hidden card.
// PATCH /cards/{id}/unblock
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id, ok := h.cardID(w, r)
	if !ok {
		return
	}
	v := viewer(r)
	card, err := h.cards.SetBlocked(r.Context(), id, blocked)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	h.logger.Warn("card block changed", "card_id", id, "blocked", blocked, "by", v.UserID)
	httputil.JSON(w, http.StatusOK, toResponse(card, v))
}

func (h *Handler) cardID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Respond(w, r, domain.ErrCardNotFound)
		return uuid.Nil, false
	}
	return id, true
}

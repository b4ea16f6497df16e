package cards

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cards/internal/config"
	"github.com/tendant/simple-cards/internal/http/middleware"
	"github.com/tendant/simple-cards/internal/httputil"
	"github.com/tendant/simple-cards/internal/testutil"
	"github.com/tendant/simple-cards/pkg/auth"
	cardsvc "github.com/tendant/simple-cards/pkg/cards"
	"github.com/tendant/simple-cards/pkg/domain"
)

type fixture struct {
	router   chi.Router
	cards    *testutil.CardStore
	users    *testutil.UserStore
	tokens   *auth.TokenProvider
	business *domain.User
	other    *domain.User
	regular  *domain.User
	admin    *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		business: &domain.User{ID: uuid.New(), Email: "biz@example.com", IsBusiness: true},
		other:    &domain.User{ID: uuid.New(), Email: "other@example.com", IsBusiness: true},
		regular:  &domain.User{ID: uuid.New(), Email: "user@example.com"},
		admin:    &domain.User{ID: uuid.New(), Email: "admin@example.com", IsAdmin: true},
		cards:    testutil.NewCardStore(),
	}
	f.users = testutil.NewUserStore(f.business, f.other, f.regular, f.admin)

	tokens, err := auth.NewTokenProvider(auth.TokenConfig{Secret: []byte("cards-handler-test-secret-32-byte")})
	require.NoError(t, err)
	f.tokens = tokens

	errs := httputil.NewErrorResponder(logger, false)
	mw := middleware.NewSet(auth.NewGuard(tokens, f.users), errs, middleware.CreateRateLimiters(config.RateLimitConfig{}, logger))
	svc := cardsvc.NewService(f.cards, cardsvc.NewAllocator(f.cards, cardsvc.AllocatorConfig{}, nil))

	f.router = chi.NewRouter()
	NewHandler(logger, svc, errs).RegisterRoutes(f.router, mw)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, user *domain.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req.Header.Set(auth.TokenHeader, f.tokens.Issue(user))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func validRequest() CreateRequest {
	return CreateRequest{
		Title:       "Corner Bakery",
		Subtitle:    "Bread and pastries",
		Description: "Baked fresh every morning",
		Phone:       "03-555 1234",
		Email:       "hello@bakery.com",
		Web:         "https://bakery.com",
		Address: domain.Address{
			Country:     "Israel",
			City:        "Tel Aviv",
			Street:      "Dizengoff",
			HouseNumber: 50,
		},
	}
}

func (f *fixture) createCard(t *testing.T, owner *domain.User) CardResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/cards", owner, validRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[CardResponse](t, rec)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	card := f.createCard(t, f.business)
	assert.True(t, cardsvc.ValidBizNumber(card.BizNumber))
	assert.Equal(t, f.business.ID.String(), card.UserID)
	assert.Equal(t, domain.DefaultImageURL, card.Image.URL)
	assert.Equal(t, 0, card.LikeCount)
}

func TestCreate_RequiresBusiness(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/cards", nil, validRequest()).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/cards", f.regular, validRequest()).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/cards", f.admin, validRequest()).Code)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Title = "x"
	req.Address.City = ""

	rec := f.do(t, http.MethodPost, "/cards", f.business, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[httputil.ErrorBody](t, rec)
	fields := make([]string, 0, len(body.Details))
	for _, d := range body.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"title", "address.city"}, fields)
}

func TestList_HidesOwnerAndBlocked(t *testing.T) {
	f := newFixture(t)
	visible := f.createCard(t, f.business)
	hidden := f.createCard(t, f.business)
	require.NoError(t, f.cards.SetBlocked(context.Background(), uuid.MustParse(hidden.ID), true))

	rec := f.do(t, http.MethodGet, "/cards", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]CardResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, visible.ID, list[0].ID)
	assert.Empty(t, list[0].UserID)

	rec = f.do(t, http.MethodGet, "/cards", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[[]CardResponse](t, rec)
	assert.Len(t, list, 2)
	for _, c := range list {
		assert.Equal(t, f.business.ID.String(), c.UserID)
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)
	path := "/cards/" + card.ID

	rec := f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CardResponse](t, rec).UserID)

	rec = f.do(t, http.MethodGet, path, f.business, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.business.ID.String(), decode[CardResponse](t, rec).UserID)

	require.NoError(t, f.cards.SetBlocked(context.Background(), uuid.MustParse(card.ID), true))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, f.regular, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, f.admin, nil).Code)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/cards/not-a-uuid", nil, nil).Code)
}

func TestSandbox(t *testing.T) {
	f := newFixture(t)
	mine := f.createCard(t, f.business)
	f.createCard(t, f.other)

	for _, path := range []string{"/cards/sandbox", "/cards/my-cards", "/cards/my"} {
		t.Run(path, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, path, f.business, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			list := decode[[]CardResponse](t, rec)
			require.Len(t, list, 1)
			assert.Equal(t, mine.ID, list[0].ID)
		})
	}

	rec := f.do(t, http.MethodGet, "/cards/my", f.business, nil)
	assert.Contains(t, rec.Header().Get("Warning"), "Deprecated")
	assert.Contains(t, rec.Header().Get("Warning"), "/cards/sandbox")
	assert.Empty(t, f.do(t, http.MethodGet, "/cards/sandbox", f.business, nil).Header().Get("Warning"))

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/cards/sandbox", f.regular, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/cards/sandbox", nil, nil).Code)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)
	path := "/cards/" + card.ID
	title := "Corner Bakery & Cafe"
	city := "Jaffa"
	body := UpdateRequest{Title: &title, Address: &AddressUpdate{City: &city}}

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, path, f.other, body).Code)

	rec := f.do(t, http.MethodPut, path, f.business, body)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[CardResponse](t, rec)
	assert.Equal(t, "Corner Bakery &amp; Cafe", updated.Title)
	assert.Equal(t, "Jaffa", updated.Address.City)
	assert.Equal(t, "Dizengoff", updated.Address.Street)
	assert.Equal(t, card.BizNumber, updated.BizNumber)

	// a second update keeps stored text escaped exactly once
	rec = f.do(t, http.MethodPut, path, f.admin, UpdateRequest{Subtitle: &title})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[CardResponse](t, rec)
	assert.Equal(t, "Corner Bakery &amp; Cafe", again.Title)
	assert.Equal(t, "Corner Bakery &amp; Cafe", again.Subtitle)
}

func TestUpdate_ImmutableFieldsIgnored(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)

	body := map[string]any{"bizNumber": 1234567, "userId": f.other.ID.String(), "likes": []string{f.other.ID.String()}}
	rec := f.do(t, http.MethodPut, "/cards/"+card.ID, f.business, body)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[CardResponse](t, rec)
	assert.Equal(t, card.BizNumber, updated.BizNumber)
	assert.Equal(t, f.business.ID.String(), updated.UserID)
	assert.Equal(t, 0, updated.LikeCount)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)
	path := "/cards/" + card.ID

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, path, f.regular, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, path, f.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, f.business, nil).Code)
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)
	path := "/cards/" + card.ID + "/like"

	rec := f.do(t, http.MethodPatch, path, f.regular, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[LikeResponse](t, rec)
	assert.True(t, resp.Liked)
	assert.True(t, resp.Card.LikedByMe)
	assert.Equal(t, 1, resp.Card.LikeCount)

	rec = f.do(t, http.MethodPatch, path, f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[LikeResponse](t, rec).Card.LikeCount)

	rec = f.do(t, http.MethodPatch, path, f.regular, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[LikeResponse](t, rec)
	assert.False(t, resp.Liked)
	assert.Equal(t, 1, resp.Card.LikeCount)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPatch, path, nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPatch, "/cards/"+uuid.NewString()+"/like", f.regular, nil).Code)
}

func TestPatch(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)
	path := "/cards/" + card.ID

	t.Run("empty body toggles like", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, path, f.regular, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[LikeResponse](t, rec)
		assert.True(t, resp.Liked)
		assert.Equal(t, 1, resp.Card.LikeCount)
	})

	t.Run("empty object toggles like", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, path, f.regular, map[string]any{})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[LikeResponse](t, rec)
		assert.False(t, resp.Liked)
		assert.Equal(t, 0, resp.Card.LikeCount)
	})

	t.Run("fields update as owner", func(t *testing.T) {
		title := "New title"
		rec := f.do(t, http.MethodPatch, path, f.business, UpdateRequest{Title: &title})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "New title", decode[CardResponse](t, rec).Title)
	})

	t.Run("fields update needs owner or admin", func(t *testing.T) {
		title := "Hijacked"
		assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPatch, path, f.regular, UpdateRequest{Title: &title}).Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPatch, path, nil, nil).Code)
	})
}

func TestChangeBizNumber(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)
	path := "/cards/" + card.ID + "/bizNumber"

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPatch, path, f.other, nil).Code)

	rec := f.do(t, http.MethodPatch, path, f.business, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[CardResponse](t, rec)
	assert.True(t, cardsvc.ValidBizNumber(updated.BizNumber))

	stored, err := f.cards.GetByID(context.Background(), uuid.MustParse(card.ID))
	require.NoError(t, err)
	assert.Equal(t, updated.BizNumber, stored.BizNumber)
}

func TestBlockUnblock(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, f.business)
	path := "/cards/" + card.ID

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPatch, path+"/block", f.business, nil).Code)

	rec := f.do(t, http.MethodPatch, path+"/block", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[CardResponse](t, rec).IsBlocked)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil, nil).Code)

	rec = f.do(t, http.MethodPatch, path+"/unblock", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, nil).Code)
}

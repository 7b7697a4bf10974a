package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"livingstories/internal/domain"
	"livingstories/internal/service"
	"livingstories/internal/service/mocks"
)

const (
	testPageSize   = 2
	testWindowSize = 4
)

type ServerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	items     *mocks.MockItemStore
	stories   *mocks.MockStoryStore
	themes    *mocks.MockThemeStore
	txManager *mocks.MockTransactionManager

	server *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.items = mocks.NewMockItemStore(s.ctrl)
	s.stories = mocks.NewMockStoryStore(s.ctrl)
	s.themes = mocks.NewMockThemeStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	availability := service.NewAvailabilityService(s.items, s.themes, logger)
	aggregates := service.NewAggregatesRegistry(s.items)
	retrieval := service.NewRetrievalService(s.items, availability, logger, testPageSize, testWindowSize)
	content := service.NewContentService(
		s.items, s.stories, s.themes, s.txManager, nil, availability, aggregates, logger,
	)

	s.server = NewServer(retrieval, content, availability, aggregates, s.stories, s.themes, logger)
}

func (s *ServerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) TestListStories() {
	s.stories.EXPECT().GetAll(gomock.Any()).Return([]*domain.Story{
		{ID: 1, Slug: "the-trial", Title: "The Trial", State: domain.StatePublished},
	}, nil)

	rec := s.do(http.MethodGet, "/api/stories", "")

	s.Equal(http.StatusOK, rec.Code)
	var got []*domain.Story
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Require().Len(got, 1)
	s.Equal("the-trial", got[0].Slug)
}

func (s *ServerTestSuite) TestGetStory_ByID() {
	s.stories.EXPECT().GetByID(gomock.Any(), int64(1)).
		Return(&domain.Story{ID: 1, Slug: "the-trial", Title: "The Trial"}, nil)

	rec := s.do(http.MethodGet, "/api/stories/1", "")

	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerTestSuite) TestGetStory_BySlug() {
	s.stories.EXPECT().GetBySlug(gomock.Any(), "the-trial").
		Return(&domain.Story{ID: 1, Slug: "the-trial", Title: "The Trial"}, nil)

	rec := s.do(http.MethodGet, "/api/stories/the-trial", "")

	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerTestSuite) TestGetStory_NotFound() {
	s.stories.EXPECT().GetByID(gomock.Any(), int64(404)).Return(nil, domain.ErrNotFound)

	rec := s.do(http.MethodGet, "/api/stories/404", "")

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestSaveStory_Create() {
	s.stories.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, story *domain.Story) (*domain.Story, error) {
			saved := *story
			saved.ID = 1
			return &saved, nil
		})

	rec := s.do(http.MethodPost, "/api/stories",
		`{"slug":"the-trial","title":"The Trial","state":"draft"}`)

	s.Equal(http.StatusCreated, rec.Code)
}

func (s *ServerTestSuite) TestSaveStory_InvalidPayload() {
	rec := s.do(http.MethodPost, "/api/stories", `{"title":`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestSaveStory_ValidationFailure() {
	rec := s.do(http.MethodPost, "/api/stories", `{"title":"no slug","state":"draft"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestStoryItems() {
	end := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	event := &domain.ContentItem{
		ID: 1, Kind: domain.KindEvent, Importance: domain.ImportanceMedium,
		State: domain.StatePublished,
		Event: &domain.EventDetails{EndDate: &end},
	}
	s.items.EXPECT().
		Window(gomock.Any(), int64(10), false, nil, testWindowSize).
		Return([]*domain.ContentItem{event}, nil)

	rec := s.do(http.MethodGet, "/api/stories/10/items", "")

	s.Equal(http.StatusOK, rec.Code)
	var bundle domain.DisplayBundle
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &bundle))
	s.Require().Len(bundle.CoreItems, 1)
	s.Equal(int64(1), bundle.CoreItems[0].ID)
	s.Nil(bundle.NextDate)
}

func (s *ServerTestSuite) TestStoryItems_FilterParams() {
	s.items.EXPECT().
		Window(gomock.Any(), int64(10), true, gomock.Any(), testWindowSize).
		Return(nil, nil)

	rec := s.do(http.MethodGet,
		"/api/stories/10/items?type=narrative&opinion=true&important=true&oldestFirst=true", "")

	s.Equal(http.StatusOK, rec.Code)
	var bundle domain.DisplayBundle
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &bundle))
	s.Require().NotNil(bundle.Filter.Kind)
	s.Equal(domain.KindNarrative, *bundle.Filter.Kind)
	s.True(bundle.Filter.Opinion)
	s.True(bundle.Filter.ImportantOnly)
	s.True(bundle.Filter.OldestFirst)
}

func (s *ServerTestSuite) TestStoryItems_UnknownType() {
	rec := s.do(http.MethodGet, "/api/stories/10/items?type=blog", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestStoryItems_BadCutoff() {
	rec := s.do(http.MethodGet, "/api/stories/10/items?cutoff=yesterday", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestStoryItems_CutoffForwarded() {
	cutoff := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	s.items.EXPECT().
		Window(gomock.Any(), int64(10), false, &domain.WindowCursor{Key: cutoff}, testWindowSize).
		Return(nil, nil)

	rec := s.do(http.MethodGet, "/api/stories/10/items?cutoff=2026-01-02T15:04:05Z", "")

	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerTestSuite) TestAvailability() {
	published := domain.StatePublished
	s.items.EXPECT().GetByStory(gomock.Any(), int64(10), &published).Return(nil, nil)
	s.themes.EXPECT().GetByStory(gomock.Any(), int64(10)).Return(nil, nil)

	rec := s.do(http.MethodGet, "/api/stories/10/availability", "")

	s.Equal(http.StatusOK, rec.Code)
	var bundles []*domain.ThemeAvailability
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &bundles))
	s.Require().Len(bundles, 1, "all-coverage entry is always present")
	s.Equal(int64(0), bundles[0].ThemeID)
}

func (s *ServerTestSuite) TestOverview() {
	published := domain.StatePublished
	s.items.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	s.items.EXPECT().GetByStory(gomock.Any(), int64(10), &published).Return(nil, nil)

	rec := s.do(http.MethodGet, "/api/stories/10/overview", "")

	s.Equal(http.StatusOK, rec.Code)
	var overview map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &overview))
	s.Contains(overview, "important_events")
	s.Contains(overview, "important_players")
	s.Contains(overview, "contributors")
}

func (s *ServerTestSuite) TestSaveItem_ValidationFailure() {
	rec := s.do(http.MethodPost, "/api/items", `{"kind":"event","importance":"high","state":"draft"}`)
	s.Equal(http.StatusBadRequest, rec.Code, "event without details is rejected")
}

func (s *ServerTestSuite) TestGetItem() {
	item := &domain.ContentItem{ID: 1, Kind: domain.KindQuote, State: domain.StatePublished}
	s.items.EXPECT().GetByID(gomock.Any(), int64(1)).Return(item, nil)

	rec := s.do(http.MethodGet, "/api/items/1", "")

	s.Equal(http.StatusOK, rec.Code)
	var got domain.ContentItem
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal(domain.KindQuote, got.Kind)
}

func (s *ServerTestSuite) TestGetItem_Resolved() {
	item := &domain.ContentItem{ID: 1, Kind: domain.KindEvent, LinkedIDs: []int64{7},
		Event: &domain.EventDetails{}}
	quote := &domain.ContentItem{ID: 7, Kind: domain.KindQuote}
	s.items.EXPECT().GetByID(gomock.Any(), int64(1)).Return(item, nil)
	s.items.EXPECT().GetByIDs(gomock.Any(), []int64{7}).Return([]*domain.ContentItem{quote}, nil)

	rec := s.do(http.MethodGet, "/api/items/1?resolve=true", "")

	s.Equal(http.StatusOK, rec.Code)
	var payload struct {
		Item   *domain.ContentItem   `json:"item"`
		Linked []*domain.ContentItem `json:"linked"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	s.Equal(int64(1), payload.Item.ID)
	s.Require().Len(payload.Linked, 1)
	s.Equal(int64(7), payload.Linked[0].ID)
}

func (s *ServerTestSuite) TestDeleteItem() {
	item := &domain.ContentItem{ID: 1, Kind: domain.KindQuote}
	s.items.EXPECT().GetByID(gomock.Any(), int64(1)).Return(item, nil)
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.items.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil)

	rec := s.do(http.MethodDelete, "/api/items/1", "")

	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *ServerTestSuite) TestDeleteItem_NotFound() {
	s.items.EXPECT().GetByID(gomock.Any(), int64(1)).Return(nil, domain.ErrNotFound)

	rec := s.do(http.MethodDelete, "/api/items/1", "")

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestItemReferences() {
	linking := []*domain.ContentItem{{ID: 2, Kind: domain.KindEvent, Event: &domain.EventDetails{}}}
	s.items.EXPECT().GetLinkingTo(gomock.Any(), int64(1)).Return(linking, nil)

	rec := s.do(http.MethodGet, "/api/items/1/references", "")

	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerTestSuite) TestContributions() {
	s.items.EXPECT().GetContributedBy(gomock.Any(), int64(7)).Return(nil, nil)

	rec := s.do(http.MethodGet, "/api/players/7/contributions", "")

	s.Equal(http.StatusOK, rec.Code)
}

package notion

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) QueryDatabase(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockAPI) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockAPI) UpdatePage(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

const dbID = notionapi.DatabaseID("db-1")

func TestRows_FollowsCursor(t *testing.T) {
	api := &mockAPI{}
	api.On("QueryDatabase", mock.Anything, dbID, mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}, {ID: "p2"}},
		HasMore:    true,
		NextCursor: "c2",
	}, nil).Once()
	api.On("QueryDatabase", mock.Anything, dbID, mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == "c2"
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p3"}},
	}, nil).Once()

	rows, err := NewDatabase(api, "db-1", 0).Rows(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, notionapi.ObjectID("p3"), rows[2].ID)
	api.AssertExpectations(t)
}

func TestRows_Error(t *testing.T) {
	api := &mockAPI{}
	api.On("QueryDatabase", mock.Anything, dbID, mock.Anything).Return(nil, assert.AnError)

	_, err := NewDatabase(api, "db-1", 0).Rows(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: query database db-1")
}

func TestFindByText(t *testing.T) {
	api := &mockAPI{}
	api.On("QueryDatabase", mock.Anything, dbID, mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		f, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && f.Property == "Run ID" && f.RichText != nil && f.RichText.Equals == "run-1"
	})).Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "p1"}}}, nil).Once()
	api.On("QueryDatabase", mock.Anything, dbID, mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()

	db := NewDatabase(api, "db-1", 0)
	page, err := db.FindByText(context.Background(), "Run ID", "run-1")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, notionapi.ObjectID("p1"), page.ID)

	page, err = db.FindByText(context.Background(), "Run ID", "run-404")
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestInsertAndPatch(t *testing.T) {
	api := &mockAPI{}
	props := notionapi.Properties{"Name": Title("westpark.pdf")}
	api.On("CreatePage", mock.Anything, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		return req.Parent.DatabaseID == dbID && req.Parent.Type == notionapi.ParentTypeDatabaseID
	})).Return(&notionapi.Page{ID: "p1"}, nil).Once()
	api.On("UpdatePage", mock.Anything, notionapi.PageID("p1"), mock.Anything).
		Return(nil, assert.AnError).Once()

	db := NewDatabase(api, "db-1", 0)
	page, err := db.Insert(context.Background(), props)
	require.NoError(t, err)

	_, err = db.Patch(context.Background(), page.ID, props)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: patch row p1")
	api.AssertExpectations(t)
}

func TestRateLimit_HonoursContext(t *testing.T) {
	api := &mockAPI{}
	db := NewDatabase(api, "db-1", 0.001)
	require.NoError(t, db.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := db.wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
	api.AssertNotCalled(t, "QueryDatabase", mock.Anything, mock.Anything, mock.Anything)
}

func TestText_CapsLength(t *testing.T) {
	p := Text(strings.Repeat("é", maxText+10))
	assert.Equal(t, maxText, len([]rune(p.RichText[0].Text.Content)))
	assert.Equal(t, strings.Repeat("é", maxText), PlainText(p))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Needs Review", PlainText(&notionapi.SelectProperty{Select: notionapi.Option{Name: "Needs Review"}}))
	assert.Equal(t, "ab", PlainText(&notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "a"}, {PlainText: "b"}}}))
	assert.Equal(t, "x", PlainText(Title("x")))
	assert.Empty(t, PlainText(nil))
	assert.Empty(t, PlainText(Number(2)))
}

func TestNumberValue(t *testing.T) {
	n, ok := NumberValue(&notionapi.NumberProperty{Number: 81.5})
	assert.True(t, ok)
	assert.Equal(t, 81.5, n)

	_, ok = NumberValue(Text("81.5"))
	assert.False(t, ok)
	_, ok = NumberValue(nil)
	assert.False(t, ok)
}

// Package notion reads and writes the rows of one Notion database.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// API is the part of the Notion REST API a Database calls.
type API interface {
	QueryDatabase(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

type sdkAPI struct {
	c *notionapi.Client
}

// NewAPI returns the SDK-backed API for an integration token.
func NewAPI(token string) API {
	return sdkAPI{c: notionapi.NewClient(notionapi.Token(token))}
}

func (a sdkAPI) QueryDatabase(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return a.c.Database.Query(ctx, id, req)
}

func (a sdkAPI) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return a.c.Page.Create(ctx, req)
}

func (a sdkAPI) UpdatePage(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return a.c.Page.Update(ctx, id, req)
}

// Database is a single Notion database. Every call draws from one token
// bucket; Notion allows about 3 requests per second per integration.
type Database struct {
	api     API
	id      notionapi.DatabaseID
	limiter *rate.Limiter
}

// NewDatabase binds api to the database id. A non-positive rps disables
// throttling.
func NewDatabase(api API, id string, rps float64) *Database {
	d := &Database{api: api, id: notionapi.DatabaseID(id)}
	if rps > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
	return d
}

// ID returns the database ID.
func (d *Database) ID() string {
	return string(d.id)
}

func (d *Database) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return eris.Wrap(d.limiter.Wait(ctx), "notion: rate limit")
}

func (d *Database) query(ctx context.Context, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := d.api.QueryDatabase(ctx, d.id, req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", d.id)
	}
	return resp, nil
}

// Rows returns every row matching filter, following pagination cursors.
// A nil filter returns the whole database.
func (d *Database) Rows(ctx context.Context, filter notionapi.Filter) ([]notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{Filter: filter, PageSize: 100}
	var rows []notionapi.Page
	for {
		resp, err := d.query(ctx, req)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return rows, nil
		}
		next := *req
		next.StartCursor = resp.NextCursor
		req = &next
	}
}

// FindByText returns the first row whose rich_text property equals value,
// or nil when there is none.
func (d *Database) FindByText(ctx context.Context, property, value string) (*notionapi.Page, error) {
	resp, err := d.query(ctx, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{Equals: value},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: find %s=%s", property, value)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// Insert adds a row.
func (d *Database) Insert(ctx context.Context, props notionapi.Properties) (*notionapi.Page, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	page, err := d.api.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: d.id},
		Properties: props,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: insert into %s", d.id)
	}
	return page, nil
}

// Patch overwrites the given properties of an existing row.
func (d *Database) Patch(ctx context.Context, row notionapi.ObjectID, props notionapi.Properties) (*notionapi.Page, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	page, err := d.api.UpdatePage(ctx, notionapi.PageID(row), &notionapi.PageUpdateRequest{Properties: props})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: patch row %s", row)
	}
	return page, nil
}

package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, handling pagination.
// Rate limiting is enforced by the Client (3 req/s by default).
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page

	req := &notionapi.DatabaseQueryRequest{}
	if filter != nil {
		req.Filter = filter.Filter
		req.Sorts = filter.Sorts
		req.PageSize = filter.PageSize
	}

	for {
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		next := &notionapi.DatabaseQueryRequest{StartCursor: resp.NextCursor}
		if filter != nil {
			next.Filter = filter.Filter
			next.Sorts = filter.Sorts
			next.PageSize = filter.PageSize
		}
		req = next
	}

	return all, nil
}

// AllBlockChildren fetches all direct children of a block, handling
// pagination.
func AllBlockChildren(ctx context.Context, c Client, blockID string) ([]notionapi.Block, error) {
	var all []notionapi.Block

	pagination := &notionapi.Pagination{}
	for {
		resp, err := c.GetBlockChildren(ctx, blockID, pagination)
		if err != nil {
			return nil, eris.Wrapf(err, "notion: children of %s", blockID)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		pagination = &notionapi.Pagination{StartCursor: notionapi.Cursor(resp.NextCursor)}
	}

	return all, nil
}

package api

import (
	"context"
	"fmt"
)

var categoryEndpoints = map[Category]string{
	CategoryTop:  "/topstories.json",
	CategoryNew:  "/newstories.json",
	CategoryBest: "/beststories.json",
	CategoryAsk:  "/askstories.json",
	CategoryShow: "/showstories.json",
	CategoryJobs: "/jobstories.json",
}

// FetchRankedIDs fetches the ranked story id list for a category.
func (c *Client) FetchRankedIDs(ctx context.Context, cat Category) ([]int, error) {
	path, ok := categoryEndpoints[cat]
	if !ok {
		return nil, fmt.Errorf("unknown category: %s", cat)
	}
	var ids []int
	if err := c.get(ctx, c.baseURL+path, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

package etherscan

import (
	"context"
	"net/url"
	"strconv"
	"time"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// BlockNumberByTime returns the closest block mined at or before t.
func (c *Client) BlockNumberByTime(ctx context.Context, t time.Time) (uint64, error) {
	params := url.Values{
		"module":    {"block"},
		"action":    {"getblocknobytime"},
		"timestamp": {strconv.FormatInt(t.Unix(), 10)},
		"closest":   {"before"},
	}

	result, err := c.callString(ctx, params)
	if err != nil {
		return 0, roierr.WithCause(roierr.ErrBlockLookup, err)
	}

	height, err := strconv.ParseUint(result, 10, 64)
	if err != nil {
		return 0, roierr.WithCause(roierr.WithDetails(roierr.ErrBlockLookup, map[string]string{
			"result": truncateBody(result, 64),
		}), err)
	}
	return height, nil
}

// BlockAt implements the tracker's block resolver.
func (c *Client) BlockAt(ctx context.Context, t time.Time) (uint64, error) {
	return c.BlockNumberByTime(ctx, t)
}

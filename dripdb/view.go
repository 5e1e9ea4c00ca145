package dripdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/Go/utility"
)

const (
	ViewFmtString = "%s/_design/%s/_view/%s"
	DripTimeFmt   = time.RFC3339
)

type View struct {
	DB     DripDB
	Design string
	Name   string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

type KeyRange struct {
	Start, End time.Time
}

func (v *View) URL() string {
	base := v.DB.URL()
	return fmt.Sprintf(ViewFmtString, base, v.Design, v.Name)
}

func toDripFormat(t time.Time) (s string) {
	s = t.Format(DripTimeFmt)
	return
}

// RangeURL is the view address restricted to keys within r.
func (v *View) RangeURL(r KeyRange) string {
	q := url.Values{}
	q.Set("startkey", strconv.Quote(toDripFormat(r.Start)))
	q.Set("endkey", strconv.Quote(toDripFormat(r.End)))
	return v.URL() + "?" + q.Encode()
}

// GetDataForRange queries the view for r and decodes the response into res.
func (v *View) GetDataForRange(ctx context.Context, r KeyRange, res interface{}) error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("dripdb: range ends (%s) before it starts (%s)", toDripFormat(r.End), toDripFormat(r.Start))
	}
	u := v.RangeURL(r)
	logging.Log.Debugf("Querying %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpRes, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("dripdb: %w", err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return &StatusError{URL: v.URL(), StatusCode: httpRes.StatusCode, Status: httpRes.Status}
	}
	if err := utility.DecodeJSON(httpRes.Body, res); err != nil {
		return fmt.Errorf("dripdb: unable to decode view result: %w", err)
	}
	return nil
}

// LoggedRange fetches all logged rows between r.Start and r.End.
func (v *View) LoggedRange(ctx context.Context, r KeyRange) (*LogViewResult, error) {
	var res LogViewResult
	if err := v.GetDataForRange(ctx, r, &res); err != nil {
		return nil, err
	}
	logging.Log.Infof("Retrieved %d of %d rows", len(res.Rows), res.TotalRows)
	return &res, nil
}

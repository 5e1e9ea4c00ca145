package dripdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewBody = `{"total_rows": 4, "offset": 0, "rows": [
 {"id": "a", "key": "2024-03-14T10:00:00Z", "value": {"sensor_name": "terminator_temp", "uncalibrated_value": "1180.5 ohm", "calibrated_value": "20.1 K", "timestamp_localstring": "2024-03-14T10:00:00Z"}},
 {"id": "b", "key": "2024-03-14T10:00:05Z", "value": {"sensor_name": "cold_head", "uncalibrated_value": "", "calibrated_value": "30.0 K", "timestamp_localstring": "2024-03-14T10:00:05Z"}},
 {"id": "c", "key": "2024-03-14T10:01:00Z", "value": {"sensor_name": "terminator_temp", "uncalibrated_value": "1179.0 ohm", "calibrated_value": "20.3 K", "timestamp_localstring": "2024-03-14T10:01:00Z"}},
 {"id": "d", "key": "2024-03-14T10:02:00Z", "value": {"sensor_name": "terminator_temp", "uncalibrated_value": "1179.0 ohm", "calibrated_value": "off", "timestamp_localstring": "2024-03-14T10:02:00Z"}}
]}`

func testView(t *testing.T, handler http.HandlerFunc) *View {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	db := DripDB{Host: DripDBHost{Host: srv.URL}, Name: "logged"}
	return db.LoggedData()
}

var testRange = KeyRange{
	Start: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 3, 14, 11, 0, 0, 0, time.UTC),
}

func TestURLs(t *testing.T) {
	db := DripDB{Host: DripDBHost{Host: "couch.example", Port: 5985}}
	assert.Equal(t, "http://couch.example:5985/dripline_logged_data", db.URL())

	v := db.LoggedData()
	assert.Equal(t, "http://couch.example:5985/dripline_logged_data/_design/log_access/_view/all_logged_data", v.URL())

	host := DripDBHost{Host: "couch.example"}
	assert.Equal(t, "http://couch.example:5984", host.URL())
}

func TestLoggedRange(t *testing.T) {
	v := testView(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logged/_design/log_access/_view/all_logged_data", r.URL.Path)
		assert.Equal(t, `"2024-03-14T10:00:00Z"`, r.URL.Query().Get("startkey"))
		assert.Equal(t, `"2024-03-14T11:00:00Z"`, r.URL.Query().Get("endkey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(viewBody))
	})

	res, err := v.LoggedRange(context.Background(), testRange)
	require.NoError(t, err)
	assert.Equal(t, uint(4), res.TotalRows)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, []string{"terminator_temp", "cold_head"}, res.Names())

	samples := res.Samples("terminator_temp")
	require.Len(t, samples, 2)
	assert.Equal(t, 20.1, samples[0].Value)
	assert.Equal(t, "K", samples[0].Unit)
	assert.Equal(t, 1180.5, samples[0].Raw)
	assert.Equal(t, "ohm", samples[0].RawUnit)
	assert.Equal(t, testRange.Start, samples[0].Time)

	all := res.Samples()
	require.Len(t, all, 3)
	assert.Equal(t, "cold_head", all[1].Sensor)
	assert.Equal(t, 0.0, all[1].Raw)
}

func TestStatusError(t *testing.T) {
	v := testView(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	})

	_, err := v.LoggedRange(context.Background(), testRange)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestBadBodyAndRange(t *testing.T) {
	v := testView(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err := v.LoggedRange(context.Background(), testRange)
	assert.ErrorContains(t, err, "decode")

	_, err = v.LoggedRange(context.Background(), KeyRange{Start: testRange.End, End: testRange.Start})
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	v := testView(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(viewBody))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.LoggedRange(ctx, testRange)
	assert.ErrorIs(t, err, context.Canceled)
}

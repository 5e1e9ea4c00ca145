// Package dripdb reads logged slow-control data from the dripline CouchDB.
package dripdb

import (
	"fmt"
	"time"
)

const (
	TimeFormat = time.RFC3339
)

type URLer interface {
	URL() string
}

// StatusError is returned when the database answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dripdb: %s returned %s", e.URL, e.Status)
}

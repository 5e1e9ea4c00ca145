package dripdb

import (
	"fmt"
	"net/url"
)

const DefaultPort = 5984

type DripDBHost struct {
	Host string
	Port uint
}

// URL builds the server address; a Host already carrying a scheme
// (e.g. a test server) is used as given.
func (d *DripDBHost) URL() string {
	if u, err := url.Parse(d.Host); err == nil && u.Scheme != "" && u.Host != "" {
		return d.Host
	}
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("http://%s:%d", d.Host, port)
}

package dripdb

import (
	"fmt"
)

const (
	DBFmtString = "%s/%s"
	DefaultName = "dripline_logged_data"
)

type DripDB struct {
	Host DripDBHost
	Name string
}

func (d *DripDB) URL() string {
	base := d.Host.URL()
	name := d.Name
	if name == "" {
		name = DefaultName
	}
	return fmt.Sprintf(DBFmtString, base, name)
}

// LoggedData returns the view holding every logged reading keyed by time.
func (d *DripDB) LoggedData() *View {
	return &View{DB: *d, Design: "log_access", Name: "all_logged_data"}
}

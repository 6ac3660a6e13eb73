package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/London")
	if err != nil {
		panic(err)
	}
}

// force timezone to be UK civil time because the sources we poll publish
// local dates with no zone information, and a server that lands in another
// region would shift .Year()/Month()/Day() across the wrong midnight
func Now() time.Time {
	return time.Now().In(Location)
}

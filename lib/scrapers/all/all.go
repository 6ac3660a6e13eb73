// Package all registers every source adapter. Importing it for side
// effects is how a binary opts into the full adapter set.
package all

import (
	_ "onon-backend/lib/scrapers/gcal"
	_ "onon-backend/lib/scrapers/gsheet"
	_ "onon-backend/lib/scrapers/harrierweb"
	_ "onon-backend/lib/scrapers/hashspace"
	_ "onon-backend/lib/scrapers/trailmaster"
)

package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/twiced-technology-gmbh/lockrun/internal/lockset"
)

// LockCompact renders probed lock statuses in one-line-per-record compact
// format: "name state [pid:N] path".
func LockCompact(w io.Writer, statuses []lockset.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No locks configured.")
		return
	}

	for _, s := range statuses {
		fmt.Fprintln(w, formatLockLine(s))
	}
}

// formatLockLine builds the one-line representation of a lock status.
func formatLockLine(s lockset.Status) string {
	line := s.Name + " " + stateDisplay(s)
	if s.HolderPID != 0 {
		line += " pid:" + strconv.Itoa(s.HolderPID)
	}
	line += " " + s.Path
	if s.Error != "" {
		line += " error:" + s.Error
	}
	return line
}

package render

import (
	"fmt"
	"time"
)

// TimeAgo formats a unix timestamp as a compact relative time.
func TimeAgo(unix int64) string {
	diff := time.Now().Unix() - unix
	switch {
	case diff < 0:
		return "now"
	case diff < 60:
		return fmt.Sprintf("%ds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}

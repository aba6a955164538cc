package utils

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobID derives the stable job id for a source URL. Surrounding whitespace
// is ignored, so the same URL always maps onto the same record set.
func JobID(rawURL string) string {
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(strings.TrimSpace(rawURL))).String()
}

// ValidJobID reports whether id has the shape produced by JobID. Anything
// else is rejected before it is used to build artifact paths.
func ValidJobID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// RedactURL hides any password embedded in rawURL for logging.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable url>"
	}
	return u.Redacted()
}

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func ResolveUserAgent(ua string) string {
	switch ua {
	case "":
		return ToolUserAgent
	case RandomUserAgent:
		return GetRandomUserAgent()
	default:
		return ua
	}
}

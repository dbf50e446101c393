package playlist

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	unsafeCharsRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	dashRunRe     = regexp.MustCompile(`-+`)
	streamExtRe   = regexp.MustCompile(`(?i)\.(m3u8|ts|mp4)$`)
)

// SanitizeName reduces name to [a-zA-Z0-9._-], collapsing dashes and trimming
// leading or trailing dots and dashes. It returns fallback if nothing is left.
func SanitizeName(name, fallback string) string {
	name = whitespaceRe.ReplaceAllString(name, "-")
	name = unsafeCharsRe.ReplaceAllString(name, "")
	name = dashRunRe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return fallback
	}
	return name
}

// DirName derives an output directory name from a playlist URL:
// host (with : and . turned into dashes) plus the last path element without
// its stream extension, e.g. "cdn-example-com-8080-index".
func DirName(playlistURL string) string {
	u, err := url.Parse(playlistURL)
	if err != nil || u.Host == "" {
		return "video"
	}

	host := strings.NewReplacer(":", "-", ".", "-").Replace(u.Host)

	last := "stream"
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			last = part
		}
	}
	last = streamExtRe.ReplaceAllString(last, "")

	return SanitizeName(host+"-"+last, "video")
}

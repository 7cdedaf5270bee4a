package useragent

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind classifies who sent a request.
type Kind string

const (
	KindBrowser Kind = "browser"
	// KindPreview is a link unfurler fetching a page on behalf of a chat or
	// social app. It never represents a visit.
	KindPreview Kind = "preview"
	KindBot     Kind = "bot"
	KindUnknown Kind = "unknown"
)

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// Agent is the classification of a User-Agent header.
type Agent struct {
	Kind   Kind
	Name   string
	Device string
}

// Automated reports whether the agent is a known crawler or unfurler. A
// missing header is not enough to tell.
func (a Agent) Automated() bool {
	return a.Kind == KindBot || a.Kind == KindPreview
}

// Link unfurlers. Matched before generic bot tokens so they get a
// readable name.
var previews = []struct{ token, name string }{
	{"facebookexternalhit", "Facebook"},
	{"facebookcatalog", "Facebook"},
	{"twitterbot", "Twitter"},
	{"slackbot", "Slack"},
	{"slack-imgproxy", "Slack"},
	{"linkedinbot", "LinkedIn"},
	{"discordbot", "Discord"},
	{"telegrambot", "Telegram"},
	{"whatsapp/", "WhatsApp"},
	{"skypeuripreview", "Skype"},
	{"pinterestbot", "Pinterest"},
	{"redditbot", "Reddit"},
	{"embedly", "Embedly"},
	{"iframely", "Iframely"},
}

var (
	botTokens = []string{
		"bot", "spider", "crawler", "crawl", "slurp", "archiver",
		"headlesschrome", "lighthouse", "pagespeed", "phantomjs",
		"python-requests", "python-urllib", "go-http-client", "curl/", "wget/",
		"httpclient", "okhttp", "axios/", "node-fetch", "uptime", "pingdom",
	}
	botName = regexp.MustCompile(`(?i)([a-z0-9_-]*(?:bot|spider|crawler))`)
	title   = cases.Title(language.English)
)

// Parse classifies ua. An empty header is KindUnknown.
func Parse(ua string) Agent {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return Agent{Kind: KindUnknown, Device: DeviceUnknown}
	}
	lower := strings.ToLower(ua)

	for _, p := range previews {
		if strings.Contains(lower, p.token) {
			return Agent{Kind: KindPreview, Name: p.name, Device: DeviceUnknown}
		}
	}
	for _, tok := range botTokens {
		if strings.Contains(lower, tok) {
			return Agent{Kind: KindBot, Name: extractBotName(ua, tok), Device: DeviceUnknown}
		}
	}
	return Agent{Kind: KindBrowser, Name: browserName(lower), Device: device(lower)}
}

// IsAutomated is Parse(ua).Automated().
func IsAutomated(ua string) bool {
	return Parse(ua).Automated()
}

func extractBotName(ua, token string) string {
	if m := botName.FindString(ua); m != "" {
		return title.String(strings.ToLower(m))
	}
	return title.String(strings.Trim(token, "/-"))
}

func device(lower string) string {
	switch {
	case strings.Contains(lower, "ipad"),
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "kindle"),
		strings.Contains(lower, "silk/"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return DeviceTablet
	case strings.Contains(lower, "mobile"),
		strings.Contains(lower, "iphone"),
		strings.Contains(lower, "ipod"),
		strings.Contains(lower, "windows phone"):
		return DeviceMobile
	case strings.Contains(lower, "windows"),
		strings.Contains(lower, "macintosh"),
		strings.Contains(lower, "x11"),
		strings.Contains(lower, "cros"),
		strings.Contains(lower, "linux"):
		return DeviceDesktop
	}
	return DeviceUnknown
}

// browserName checks engines that embed other engines' tokens first.
func browserName(lower string) string {
	switch {
	case strings.Contains(lower, "edg/"), strings.Contains(lower, "edga/"), strings.Contains(lower, "edgios/"):
		return "Edge"
	case strings.Contains(lower, "opr/"), strings.Contains(lower, "opera"):
		return "Opera"
	case strings.Contains(lower, "samsungbrowser/"):
		return "Samsung Internet"
	case strings.Contains(lower, "firefox/"), strings.Contains(lower, "fxios/"):
		return "Firefox"
	case strings.Contains(lower, "chrome/"), strings.Contains(lower, "crios/"):
		return "Chrome"
	case strings.Contains(lower, "safari/"):
		return "Safari"
	}
	return "Unknown"
}

// Package device derives a stable device identity and a human-readable
// device label from a user-agent string.
package device

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imgbed/imgbed/internal/localstate"
)

// DefaultIDKey is the state key under which the device ID is persisted.
const DefaultIDKey = "tg_device_id"

// DefaultIDPrefix is used for the fallback device ID format.
const DefaultIDPrefix = "dev"

// maxDeviceNameHeader caps the X-Device-Name header length.
const maxDeviceNameHeader = 120

// ParsedUserAgent holds the OS/browser breakdown of a user-agent string.
type ParsedUserAgent struct {
	OSName         string
	BrowserName    string
	BrowserVersion string
	Platform       string
}

// Fingerprint is the full device identity: a persisted random ID plus
// fields derived from the user agent. The label is always recomputed from
// the parsed OS/browser and never persisted.
type Fingerprint struct {
	DeviceID       string
	OSName         string
	BrowserName    string
	BrowserVersion string
	Platform       string
	DeviceLabel    string
}

// browserSignature matches one browser family. Order matters: more specific
// signatures come first (Edge UAs also contain "Chrome/", Opera UAs contain
// "Safari/", and so on).
type browserSignature struct {
	name     string
	markers  []string
	versions []*regexp.Regexp
}

var browserSignatures = []browserSignature{
	{
		name:     "Edge",
		markers:  []string{"edg/", "edge/", "edga/", "edgios/"},
		versions: []*regexp.Regexp{regexp.MustCompile(`(?i)(?:Edg|Edge|EdgA|EdgiOS)/([\d.]+)`)},
	},
	{
		name:     "Opera",
		markers:  []string{"opr/", "opera"},
		versions: []*regexp.Regexp{regexp.MustCompile(`(?i)(?:OPR|Opera)/([\d.]+)`)},
	},
	{
		name:     "Samsung Internet",
		markers:  []string{"samsungbrowser/"},
		versions: []*regexp.Regexp{regexp.MustCompile(`(?i)SamsungBrowser/([\d.]+)`)},
	},
	{
		name:     "Firefox",
		markers:  []string{"firefox/", "fxios/"},
		versions: []*regexp.Regexp{regexp.MustCompile(`(?i)(?:Firefox|FxiOS)/([\d.]+)`)},
	},
	{
		name:     "WeChat",
		markers:  []string{"micromessenger/"},
		versions: []*regexp.Regexp{regexp.MustCompile(`(?i)MicroMessenger/([\d.]+)`)},
	},
	{
		name:     "UC Browser",
		markers:  []string{"ucbrowser/"},
		versions: []*regexp.Regexp{regexp.MustCompile(`(?i)UCBrowser/([\d.]+)`)},
	},
	{
		name:     "QQ Browser",
		markers:  []string{"qqbrowser/"},
		versions: []*regexp.Regexp{regexp.MustCompile(`(?i)QQBrowser/([\d.]+)`)},
	},
	{
		name:    "Internet Explorer",
		markers: []string{"msie ", "trident/"},
		versions: []*regexp.Regexp{
			regexp.MustCompile(`(?i)MSIE\s([\d.]+)`),
			regexp.MustCompile(`(?i)rv:([\d.]+)`),
		},
	},
}

var safariVersion = regexp.MustCompile(`(?i)Version/([\d.]+)`)
var chromeVersion = regexp.MustCompile(`(?i)(?:Chrome|CriOS)/([\d.]+)`)

// genericDeviceNames are server-supplied device names considered boilerplate.
var genericDeviceNames = map[string]bool{
	"":                true,
	"web":             true,
	"desktop":         true,
	"android":         true,
	"ios":             true,
	"unknown":         true,
	"current-browser": true,
	"browser":         true,
}

var genericLocalePattern = regexp.MustCompile(`^(desktop|web|android|ios|unknown)\s*[·-]\s*[a-z]{2}(?:-[a-z]{2})?$`)

func extractVersion(userAgent string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(userAgent); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

func detectOSName(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "windows nt") || strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") ||
		strings.Contains(ua, "ipod") || strings.Contains(ua, "ios"):
		return "iOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os x"):
		return "macOS"
	case strings.Contains(ua, "cros"):
		return "ChromeOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	}
	return "Unknown OS"
}

func detectBrowser(userAgent string) (name, version string) {
	ua := strings.ToLower(userAgent)

	for _, sig := range browserSignatures {
		for _, marker := range sig.markers {
			if strings.Contains(ua, marker) {
				return sig.name, extractVersion(userAgent, sig.versions)
			}
		}
	}

	// Safari must be checked before Chrome only in the negative: every
	// Chrome UA also claims "Safari/", so real Safari is "Safari without
	// Chrome".
	if strings.Contains(ua, "safari/") && !strings.Contains(ua, "chrome/") && !strings.Contains(ua, "crios/") {
		return "Safari", extractVersion(userAgent, []*regexp.Regexp{safariVersion})
	}
	if strings.Contains(ua, "chrome/") || strings.Contains(ua, "crios/") {
		return "Chrome", extractVersion(userAgent, []*regexp.Regexp{chromeVersion})
	}

	return "Unknown Browser", ""
}

func inferPlatform(osName string) string {
	switch osName {
	case "iOS":
		return "ios"
	case "Android":
		return "android"
	case "Windows", "macOS", "Linux", "ChromeOS":
		return "desktop"
	}
	return "web"
}

// ParseUserAgent breaks a user-agent string into OS, browser, version and
// platform. Unknown inputs yield "Unknown OS" / "Unknown Browser".
func ParseUserAgent(userAgent string) ParsedUserAgent {
	osName := detectOSName(userAgent)
	browserName, browserVersion := detectBrowser(userAgent)
	return ParsedUserAgent{
		OSName:         osName,
		BrowserName:    browserName,
		BrowserVersion: browserVersion,
		Platform:       inferPlatform(osName),
	}
}

// BuildDeviceLabel renders the "OS · Browser" display label.
func BuildDeviceLabel(osName, browserName string) string {
	safeOS := strings.TrimSpace(osName)
	if safeOS == "" {
		safeOS = "Unknown OS"
	}
	safeBrowser := strings.TrimSpace(browserName)
	if safeBrowser == "" {
		safeBrowser = "Unknown Browser"
	}
	return safeOS + " · " + safeBrowser
}

// IsGenericDeviceName reports whether a server-supplied device name is
// boilerplate (e.g. just "web" or "android") and should be replaced with a
// locally computed label.
func IsGenericDeviceName(value string) bool {
	lowered := strings.ToLower(strings.TrimSpace(value))
	if genericDeviceNames[lowered] {
		return true
	}
	if genericLocalePattern.MatchString(lowered) {
		return true
	}
	return strings.HasSuffix(lowered, " browser")
}

// NormalizeDeviceName keeps a meaningful server-supplied name, otherwise
// substitutes the label derived from the parsed user agent.
func NormalizeDeviceName(value string, parsed ParsedUserAgent) string {
	raw := strings.TrimSpace(value)
	if raw != "" && !IsGenericDeviceName(raw) {
		return raw
	}
	return BuildDeviceLabel(parsed.OSName, parsed.BrowserName)
}

// ParseUserAgentToLabel is a convenience for rendering a session's UA.
func ParseUserAgentToLabel(userAgent string) string {
	parsed := ParseUserAgent(userAgent)
	return BuildDeviceLabel(parsed.OSName, parsed.BrowserName)
}

// EnsureDeviceID reads the persisted device ID, generating and persisting a
// new one on first use. The ID never expires and stays stable for the
// lifetime of the state file.
func EnsureDeviceID(state *localstate.Store, key, prefix string) (string, error) {
	if key == "" {
		key = DefaultIDKey
	}
	if prefix == "" {
		prefix = DefaultIDPrefix
	}

	if id := state.Get(key); id != "" {
		return id, nil
	}

	id := newDeviceID(prefix)
	if err := state.Set(key, id); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}

func newDeviceID(prefix string) string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	// Timestamp + random fallback when the system randomness source fails.
	return fmt.Sprintf("%s-%d-%08x", prefix, time.Now().UnixMilli(), rand.Uint32())
}

// Resolve computes the full fingerprint for this client: the persisted
// device ID plus the parsed user agent and display label.
func Resolve(state *localstate.Store, userAgent string) (*Fingerprint, error) {
	parsed := ParseUserAgent(userAgent)

	deviceID, err := EnsureDeviceID(state, DefaultIDKey, DefaultIDPrefix)
	if err != nil {
		return nil, err
	}

	return &Fingerprint{
		DeviceID:       deviceID,
		OSName:         parsed.OSName,
		BrowserName:    parsed.BrowserName,
		BrowserVersion: parsed.BrowserVersion,
		Platform:       parsed.Platform,
		DeviceLabel:    BuildDeviceLabel(parsed.OSName, parsed.BrowserName),
	}, nil
}

// Headers returns the identification headers sent with every API request.
func (f *Fingerprint) Headers() map[string]string {
	headers := make(map[string]string, 3)
	if f.DeviceID != "" {
		headers["X-Device-Id"] = f.DeviceID
	}
	if f.Platform != "" {
		headers["X-Platform"] = f.Platform
	}
	if f.DeviceLabel != "" {
		label := f.DeviceLabel
		if len(label) > maxDeviceNameHeader {
			label = label[:maxDeviceNameHeader]
		}
		headers["X-Device-Name"] = label
	}
	return headers
}

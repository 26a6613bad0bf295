package device

import (
	"path/filepath"
	"testing"

	"github.com/imgbed/imgbed/internal/localstate"
)

const (
	uaEdgeWindows    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"
	uaChromeWindows  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaSafariMac      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	uaFirefoxLinux   = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaOperaWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 OPR/105.0.0.0"
	uaChromeAndroid  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	uaSafariIPhone   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	uaSamsungBrowser = "Mozilla/5.0 (Linux; Android 13; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name        string
		userAgent   string
		wantOS      string
		wantBrowser string
		wantVersion string
		wantPlat    string
	}{
		{
			name:        "edge on windows classified as edge not chrome",
			userAgent:   uaEdgeWindows,
			wantOS:      "Windows",
			wantBrowser: "Edge",
			wantVersion: "120.0.2210.91",
			wantPlat:    "desktop",
		},
		{
			name:        "chrome on windows",
			userAgent:   uaChromeWindows,
			wantOS:      "Windows",
			wantBrowser: "Chrome",
			wantVersion: "120.0.0.0",
			wantPlat:    "desktop",
		},
		{
			name:        "safari on macos",
			userAgent:   uaSafariMac,
			wantOS:      "macOS",
			wantBrowser: "Safari",
			wantVersion: "17.1",
			wantPlat:    "desktop",
		},
		{
			name:        "firefox on linux",
			userAgent:   uaFirefoxLinux,
			wantOS:      "Linux",
			wantBrowser: "Firefox",
			wantVersion: "121.0",
			wantPlat:    "desktop",
		},
		{
			name:        "opera classified before chrome",
			userAgent:   uaOperaWindows,
			wantOS:      "Windows",
			wantBrowser: "Opera",
			wantVersion: "105.0.0.0",
			wantPlat:    "desktop",
		},
		{
			name:        "chrome on android",
			userAgent:   uaChromeAndroid,
			wantOS:      "Android",
			wantBrowser: "Chrome",
			wantVersion: "120.0.0.0",
			wantPlat:    "android",
		},
		{
			name:        "safari on iphone",
			userAgent:   uaSafariIPhone,
			wantOS:      "iOS",
			wantBrowser: "Safari",
			wantVersion: "17.1",
			wantPlat:    "ios",
		},
		{
			name:        "samsung internet before chrome",
			userAgent:   uaSamsungBrowser,
			wantOS:      "Android",
			wantBrowser: "Samsung Internet",
			wantVersion: "23.0",
			wantPlat:    "android",
		},
		{
			name:        "empty user agent",
			userAgent:   "",
			wantOS:      "Unknown OS",
			wantBrowser: "Unknown Browser",
			wantVersion: "",
			wantPlat:    "web",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUserAgent(tt.userAgent)
			if got.OSName != tt.wantOS {
				t.Errorf("OSName = %q, want %q", got.OSName, tt.wantOS)
			}
			if got.BrowserName != tt.wantBrowser {
				t.Errorf("BrowserName = %q, want %q", got.BrowserName, tt.wantBrowser)
			}
			if got.BrowserVersion != tt.wantVersion {
				t.Errorf("BrowserVersion = %q, want %q", got.BrowserVersion, tt.wantVersion)
			}
			if got.Platform != tt.wantPlat {
				t.Errorf("Platform = %q, want %q", got.Platform, tt.wantPlat)
			}
		})
	}
}

func TestBuildDeviceLabel(t *testing.T) {
	if got := BuildDeviceLabel("Windows", "Edge"); got != "Windows · Edge" {
		t.Errorf("BuildDeviceLabel() = %q", got)
	}
	if got := BuildDeviceLabel("", ""); got != "Unknown OS · Unknown Browser" {
		t.Errorf("BuildDeviceLabel() = %q", got)
	}
}

func TestIsGenericDeviceName(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"web", true},
		{"Android", true},
		{"current-browser", true},
		{"desktop · en", true},
		{"web - zh-cn", true},
		{"Unknown Browser", true},
		{"Windows · Edge", false},
		{"My Laptop", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := IsGenericDeviceName(tt.value); got != tt.want {
				t.Errorf("IsGenericDeviceName(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeDeviceName(t *testing.T) {
	parsed := ParseUserAgent(uaEdgeWindows)

	if got := NormalizeDeviceName("My Laptop", parsed); got != "My Laptop" {
		t.Errorf("meaningful name replaced: %q", got)
	}
	if got := NormalizeDeviceName("web", parsed); got != "Windows · Edge" {
		t.Errorf("generic name not replaced: %q", got)
	}
}

func TestEnsureDeviceID_Stable(t *testing.T) {
	state, err := localstate.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	first, err := EnsureDeviceID(state, "", "")
	if err != nil {
		t.Fatalf("EnsureDeviceID() failed: %v", err)
	}
	if first == "" {
		t.Fatal("EnsureDeviceID() returned empty ID")
	}

	// Repeated reads return the same persisted ID.
	for i := 0; i < 3; i++ {
		again, err := EnsureDeviceID(state, "", "")
		if err != nil {
			t.Fatalf("EnsureDeviceID() failed: %v", err)
		}
		if again != first {
			t.Errorf("device ID changed across reads: %q != %q", again, first)
		}
	}
}

func TestResolveHeaders(t *testing.T) {
	state, err := localstate.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	fp, err := Resolve(state, uaEdgeWindows)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	headers := fp.Headers()
	if headers["X-Device-Id"] != fp.DeviceID {
		t.Errorf("X-Device-Id = %q, want %q", headers["X-Device-Id"], fp.DeviceID)
	}
	if headers["X-Platform"] != "desktop" {
		t.Errorf("X-Platform = %q, want desktop", headers["X-Platform"])
	}
	if headers["X-Device-Name"] != "Windows · Edge" {
		t.Errorf("X-Device-Name = %q", headers["X-Device-Name"])
	}
}

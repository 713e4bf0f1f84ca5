// Package useragent classifies raw User-Agent strings into coarse OS, browser
// and device labels using ordered substring rules.
//
// The rules are a heuristic, not a parser. Their order is the tie-break: the
// first rule whose substring is contained in the user agent wins, so a
// Chrome-on-macOS string that also carries a "Safari" token is labeled Chrome.
package useragent

import "strings"

// Labels returned by Classify.
const (
	OSWindows = "Windows"
	OSLinux   = "Linux"
	OSMacOS   = "macOS"
	OSUnknown = "Unknown"

	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserUnknown = "Unknown"

	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// Rule maps a case-sensitive substring to a label.
type Rule struct {
	Substring string
	Label     string
}

// OSRules are evaluated in order; the first match wins.
var OSRules = []Rule{
	{"Windows", OSWindows},
	{"Linux", OSLinux},
	{"Macintosh", OSMacOS},
}

// BrowserRules are evaluated in order; the first match wins.
var BrowserRules = []Rule{
	{"Chrome", BrowserChrome},
	{"Firefox", BrowserFirefox},
	{"Safari", BrowserSafari},
}

// DeviceRules are evaluated in order; the first match wins.
var DeviceRules = []Rule{
	{"Mobile", DeviceMobile},
	{"Tablet", DeviceTablet},
}

// Info is the classification of one user agent.
type Info struct {
	OS         string
	Browser    string
	DeviceType string
}

// Classify returns the OS, browser and device labels for ua.
func Classify(ua string) Info {
	return Info{
		OS:         match(OSRules, ua, OSUnknown),
		Browser:    match(BrowserRules, ua, BrowserUnknown),
		DeviceType: match(DeviceRules, ua, DeviceDesktop),
	}
}

func match(rules []Rule, ua, fallback string) string {
	for _, r := range rules {
		if strings.Contains(ua, r.Substring) {
			return r.Label
		}
	}
	return fallback
}

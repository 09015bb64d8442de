// Package useragent maps raw User-Agent strings to coarse device facts.
package useragent

import (
	"strings"

	"fitfoco/internal/domain"
)

// Info is the parsed result. Unrecognized strings fall back to
// Unknown/Desktop rather than failing.
type Info struct {
	Browser    string
	OS         string
	DeviceType domain.DeviceType
}

// Parse extracts browser, operating system, and device class from a raw
// user-agent string. Matching is ordered substring search, first hit wins.
func Parse(ua string) Info {
	return Info{
		Browser:    browser(ua),
		OS:         operatingSystem(ua),
		DeviceType: deviceType(ua),
	}
}

func browser(ua string) string {
	switch {
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome"):
		return "Safari"
	case strings.Contains(ua, "Edge"):
		return "Edge"
	case strings.Contains(ua, "Opera"):
		return "Opera"
	}
	return "Unknown"
}

func operatingSystem(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac OS"):
		return "MacOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iOS"), strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return "iOS"
	}
	return "Unknown"
}

func deviceType(ua string) domain.DeviceType {
	switch {
	case strings.Contains(ua, "Mobile"), strings.Contains(ua, "Android"), strings.Contains(ua, "iPhone"):
		return domain.DeviceMobile
	case strings.Contains(ua, "Tablet"), strings.Contains(ua, "iPad"):
		return domain.DeviceTablet
	}
	return domain.DeviceDesktop
}

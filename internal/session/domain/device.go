package domain

import "strings"

// DeviceClass is a coarse bucket derived from the User-Agent, used for session stats.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceBot     DeviceClass = "bot"
	DeviceUnknown DeviceClass = "unknown"
)

// ClassifyDevice buckets a User-Agent string. Order matters: tablets also
// advertise "mobile" on some platforms and bots often mimic desktop browsers.
func ClassifyDevice(userAgent string) DeviceClass {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	switch {
	case ua == "":
		return DeviceUnknown
	case strings.Contains(ua, "bot"), strings.Contains(ua, "crawler"), strings.Contains(ua, "spider"),
		strings.HasPrefix(ua, "curl/"), strings.HasPrefix(ua, "wget/"):
		return DeviceBot
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		return DeviceMobile
	case strings.Contains(ua, "windows"), strings.Contains(ua, "macintosh"), strings.Contains(ua, "linux"),
		strings.Contains(ua, "x11"), strings.Contains(ua, "cros"):
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

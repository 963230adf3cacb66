package service

import (
	"strings"

	"github.com/rryowa/authsession/internal/models"
)

// NewDeviceInfo derives coarse browser and OS labels from a User-Agent.
// The labels are informational only and never take part in any auth decision.
func NewDeviceInfo(userAgent, ip string) models.DeviceInfo {
	return models.DeviceInfo{
		UserAgent: userAgent,
		Browser:   detectBrowser(userAgent),
		OS:        detectOS(userAgent),
		IPAddress: ip,
	}
}

// Order matters: Edge and Opera UAs also contain "Chrome", Chrome contains "Safari".
var browserMarkers = []struct{ marker, name string }{
	{"Edg/", "Edge"},
	{"OPR/", "Opera"},
	{"Firefox/", "Firefox"},
	{"Chrome/", "Chrome"},
	{"Safari/", "Safari"},
	{"curl/", "curl"},
}

var osMarkers = []struct{ marker, name string }{
	{"Windows", "Windows"},
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
}

func detectBrowser(ua string) string {
	for _, m := range browserMarkers {
		if strings.Contains(ua, m.marker) {
			return m.name
		}
	}
	return "unknown"
}

func detectOS(ua string) string {
	for _, m := range osMarkers {
		if strings.Contains(ua, m.marker) {
			return m.name
		}
	}
	return "unknown"
}

// mergeDevice keeps previously known fields when the new request does not carry them.
func mergeDevice(old, next models.DeviceInfo) models.DeviceInfo {
	if next.UserAgent == "" {
		next.UserAgent = old.UserAgent
		next.Browser = old.Browser
		next.OS = old.OS
	}
	if next.IPAddress == "" {
		next.IPAddress = old.IPAddress
	}
	return next
}

// Package asset holds branding passed through to notification services.
package asset

import "notifyconf/internal/domain"

const defaultColor = "#888888"

// Asset is the branding context attached to every service.
// Services read it but never modify it.
type Asset struct {
	AppID   string
	AppDesc string
	AppURL  string
	Colors  map[domain.NotifyType]string
}

// Default returns a freshly constructed asset with the built-in branding.
func Default() *Asset {
	return &Asset{
		AppID:   "notifyconf",
		AppDesc: "notifyconf notifications",
		AppURL:  "https://example.invalid/notifyconf",
		Colors: map[domain.NotifyType]string{
			domain.NotifyTypeInfo:    "#3AA3E3",
			domain.NotifyTypeSuccess: "#3AA337",
			domain.NotifyTypeFailure: "#A32037",
			domain.NotifyTypeWarning: "#CACF29",
		},
	}
}

// Color returns the hex color for a notify type, or a neutral gray.
func (a *Asset) Color(t domain.NotifyType) string {
	if a == nil {
		return defaultColor
	}
	if color, ok := a.Colors[t]; ok && color != "" {
		return color
	}
	return defaultColor
}

// OrDefault returns a when non-nil, otherwise a new default asset.
func OrDefault(a *Asset) *Asset {
	if a != nil {
		return a
	}
	return Default()
}

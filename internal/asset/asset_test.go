package asset

import (
	"testing"

	"notifyconf/internal/domain"
)

func TestColorFallsBackToGray(t *testing.T) {
	t.Parallel()

	a := Default()
	if got := a.Color(domain.NotifyTypeFailure); got != "#A32037" {
		t.Fatalf("unexpected failure color %q", got)
	}
	if got := a.Color("unknown"); got != defaultColor {
		t.Fatalf("unexpected fallback color %q", got)
	}
	var empty *Asset
	if got := empty.Color(domain.NotifyTypeInfo); got != defaultColor {
		t.Fatalf("nil asset should fall back, got %q", got)
	}
}

func TestOrDefaultKeepsGivenAsset(t *testing.T) {
	t.Parallel()

	custom := &Asset{AppID: "custom"}
	if OrDefault(custom) != custom {
		t.Fatalf("expected the given asset to be returned")
	}
	if OrDefault(nil).AppID != "notifyconf" {
		t.Fatalf("expected default asset")
	}
}

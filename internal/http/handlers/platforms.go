package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aureon-one/mediaplan-api/internal/platform"
)

// PlatformsHandler serves the supported ad platform catalog.
type PlatformsHandler struct {
	registry *platform.Registry
}

// NewPlatformsHandler creates a new platforms handler.
func NewPlatformsHandler(registry *platform.Registry) *PlatformsHandler {
	return &PlatformsHandler{registry: registry}
}

// PlatformEntry is one supported platform with its declared capabilities.
type PlatformEntry struct {
	platform.Info
	Capabilities platform.Capabilities `json:"capabilities"`
}

// ListPlatformsOutput represents the platform catalog response.
type ListPlatformsOutput struct {
	Body struct {
		Platforms []PlatformEntry `json:"platforms"`
	}
}

// ListPlatforms handles listing all supported platforms. Public endpoint.
func (h *PlatformsHandler) ListPlatforms(ctx context.Context, input *struct{}) (*ListPlatformsOutput, error) {
	infos := h.registry.List()
	entries := make([]PlatformEntry, 0, len(infos))
	for _, info := range infos {
		caps, _ := h.registry.CapabilitiesFor(info.Name)
		entries = append(entries, PlatformEntry{Info: info, Capabilities: caps})
	}

	out := &ListPlatformsOutput{}
	out.Body.Platforms = entries
	return out, nil
}

// GetPlatformCapabilitiesInput represents a capability lookup request.
type GetPlatformCapabilitiesInput struct {
	Platform string `path:"platform" doc:"Platform name or alias, e.g. GOOGLE_ADS"`
}

// GetPlatformCapabilitiesOutput represents a capability lookup response.
type GetPlatformCapabilitiesOutput struct {
	Body struct {
		Platform     string                `json:"platform" doc:"Canonical platform name"`
		Capabilities platform.Capabilities `json:"capabilities"`
	}
}

// GetPlatformCapabilities resolves a platform name (including aliases) to
// its canonical name and capability flags.
func (h *PlatformsHandler) GetPlatformCapabilities(ctx context.Context, input *GetPlatformCapabilitiesInput) (*GetPlatformCapabilitiesOutput, error) {
	name, ok := h.registry.Resolve(input.Platform)
	if !ok {
		return nil, huma.Error404NotFound("unsupported platform: " + input.Platform)
	}

	caps, _ := h.registry.CapabilitiesFor(name)
	out := &GetPlatformCapabilitiesOutput{}
	out.Body.Platform = name
	out.Body.Capabilities = caps
	return out, nil
}

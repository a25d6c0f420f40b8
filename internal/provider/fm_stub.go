//go:build !darwin

package provider

// NewPlatformBridge returns nil on platforms without the Foundation Models
// framework; the foundation provider then reports unavailable.
func NewPlatformBridge() Bridge {
	return nil
}

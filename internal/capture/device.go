package capture

import "strings"

// Device selects the emulated browsing context.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
)

// MobileUserAgent is the iPhone Safari identity sent by the mobile profile.
const MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 13_2_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/13.0.3 Mobile/15E148 Safari/604.1"

// Viewport is the emulated screen size in CSS pixels.
type Viewport struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Mobile bool `json:"mobile"`
}

// DeviceProfile bundles a viewport with a user agent. An empty UserAgent
// keeps the browser's own.
type DeviceProfile struct {
	Name      Device
	Viewport  Viewport
	UserAgent string
}

var profiles = map[Device]DeviceProfile{
	DeviceDesktop: {
		Name:     DeviceDesktop,
		Viewport: Viewport{Width: 1920, Height: 1080},
	},
	DeviceMobile: {
		Name:      DeviceMobile,
		Viewport:  Viewport{Width: 375, Height: 812, Mobile: true},
		UserAgent: MobileUserAgent,
	},
}

// Valid reports whether d names a known profile.
func (d Device) Valid() bool {
	_, ok := profiles[d]
	return ok
}

// ProfileFor returns the profile for d. Unknown or empty devices get the
// desktop profile.
func ProfileFor(d Device) DeviceProfile {
	return profiles[NormalizeDevice(d)]
}

// NormalizeDevice maps d onto a known profile name, ignoring case and
// surrounding space. Unknown values become DeviceDesktop.
func NormalizeDevice(d Device) Device {
	d = Device(strings.ToLower(strings.TrimSpace(string(d))))
	if d.Valid() {
		return d
	}
	return DeviceDesktop
}

// Devices lists the supported device names.
func Devices() []Device {
	return []Device{DeviceDesktop, DeviceMobile}
}

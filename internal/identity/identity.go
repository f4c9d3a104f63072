package identity

import (
	"sort"
	"strings"

	"github.com/servicekpi/internal/model"
)

// Map is the bidirectional technician identity lookup: canonical code ↔
// GPS device name (the full name the fleet platform uses). Staff without a
// tracker are valid codes with no device side. It is a plain dictionary
// structure built once from configuration and never mutated afterwards.
type Map struct {
	deviceToCode map[string]string // lowercased device name -> code
	codeToDevice map[string]string // code -> device name as configured
	codeToName   map[string]string // code -> display name
	validCodes   map[string]bool
}

// NewMap builds the lookup from the device mapping (device name -> code)
// and the no-tracker staff table (code -> display name).
func NewMap(techMapping, staffNoGPS map[string]string) *Map {
	m := &Map{
		deviceToCode: make(map[string]string, len(techMapping)),
		codeToDevice: make(map[string]string, len(techMapping)),
		codeToName:   make(map[string]string, len(techMapping)+len(staffNoGPS)),
		validCodes:   make(map[string]bool, len(techMapping)+len(staffNoGPS)),
	}

	for device, code := range techMapping {
		code = strings.ToUpper(strings.TrimSpace(code))
		device = strings.TrimSpace(device)
		if code == "" || device == "" {
			continue
		}
		m.deviceToCode[strings.ToLower(device)] = code
		m.codeToDevice[code] = device
		m.codeToName[code] = device
		m.validCodes[code] = true
	}
	for code, name := range staffNoGPS {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		m.codeToName[code] = strings.TrimSpace(name)
		m.validCodes[code] = true
	}

	return m
}

// CodeForDevice resolves a GPS device name to the canonical technician
// code, or the UNKNOWN sentinel when the device is not mapped.
func (m *Map) CodeForDevice(device string) string {
	device = strings.ToLower(strings.TrimSpace(device))
	if device == "" {
		return model.Unknown
	}
	if code, ok := m.deviceToCode[device]; ok {
		return code
	}
	return model.Unknown
}

// DeviceForCode returns the configured device name for a code, if the
// technician carries a tracker.
func (m *Map) DeviceForCode(code string) (string, bool) {
	device, ok := m.codeToDevice[strings.ToUpper(strings.TrimSpace(code))]
	return device, ok
}

// NameForCode returns the display name for a code, or the code itself
// when no name is configured.
func (m *Map) NameForCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if name, ok := m.codeToName[code]; ok && name != "" {
		return name
	}
	return code
}

// IsValidCode reports whether the code belongs to a known technician or
// staff member.
func (m *Map) IsValidCode(code string) bool {
	return m.validCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// HasTracker reports whether the code has a GPS device side.
func (m *Map) HasTracker(code string) bool {
	_, ok := m.codeToDevice[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Codes returns every valid code in sorted order.
func (m *Map) Codes() []string {
	codes := make([]string, 0, len(m.validCodes))
	for code := range m.validCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

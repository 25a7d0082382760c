package vss

import (
	"encoding/json"
	"fmt"
	"time"
)

// cimShadowCopy mirrors the JSON shape PowerShell's ConvertTo-Json emits
// for a Win32_ShadowCopy instance. InstallDate arrives as a .NET
// "/Date(ms)/" wrapped string via the CIM-to-JSON bridge.
type cimShadowCopy struct {
	ID           string `json:"ID"`
	VolumeName   string `json:"VolumeName"`
	DeviceObject string `json:"DeviceObject"`
	InstallDate  string `json:"InstallDate"`
}

// parseShadowCopyJSON decodes Get-CimInstance's ConvertTo-Json output,
// which emits a single object (not an array) when exactly one shadow copy
// exists.
func parseShadowCopyJSON(data []byte) ([]ShadowCopy, error) {
	trimmed := data
	if len(trimmed) == 0 {
		return nil, nil
	}

	var raw []cimShadowCopy
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decoding shadow copy list: %w", err)
		}
	} else {
		var single cimShadowCopy
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("decoding shadow copy: %w", err)
		}
		raw = []cimShadowCopy{single}
	}

	copies := make([]ShadowCopy, 0, len(raw))
	for _, r := range raw {
		copies = append(copies, ShadowCopy{
			ID:           r.ID,
			VolumeName:   r.VolumeName,
			DeviceObject: r.DeviceObject,
			InstallDate:  parseCIMDate(r.InstallDate),
		})
	}
	return copies, nil
}

// parseCIMDate parses the "/Date(1700000000000)/" wrapper PowerShell's
// JSON cmdlets produce for DateTime fields. Unparsable input yields the
// zero time, which candidate selection naturally excludes as "too old".
func parseCIMDate(s string) time.Time {
	const prefix = "/Date("
	const suffix = ")/"
	if len(s) < len(prefix)+len(suffix) || s[:len(prefix)] != prefix {
		return time.Time{}
	}
	msStr := s[len(prefix) : len(s)-len(suffix)]
	var ms int64
	if _, err := fmt.Sscanf(msStr, "%d", &ms); err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Package hardware identifies the machine (its SMBIOS UUID) and
// captures the hardware inventory the server keeps per computer.
package hardware

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/network"
	"github.com/migasfree/migasfree-client/shell"
)

// Some ASRock boards report this placeholder instead of a real UUID.
const asrockPlaceholderUUID = "03000200-0400-0500-0006-000700080009"

// UUID returns the machine identifier the server keys computers on.
// It reads the SMBIOS system UUID via dmidecode and falls back to a
// MAC-derived identifier when firmware gives nothing usable.
func UUID(ctx context.Context) string {
	cmd := "sudo dmidecode --string system-uuid"
	if runtime.GOOS == "windows" {
		cmd = "dmidecode --string system-uuid"
	}

	res := shell.Run(ctx, cmd)
	raw := stripComments(res.Stdout)
	if !res.OK || raw == "" {
		return uuidFromMAC()
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuidFromMAC()
	}

	major, minor := smbiosVersion(ctx)
	id := formatUUID(parsed, major > 2 || (major == 2 && minor >= 6))

	if id == asrockPlaceholderUUID {
		return uuidFromMAC()
	}

	return id
}

// formatUUID renders the UUID the way the server expects. Firmware
// older than SMBIOS 2.6 stored the time fields little-endian, so those
// bytes get swapped to match what Windows agents report.
//
// https://stackoverflow.com/questions/10850075
func formatUUID(id uuid.UUID, smbios26 bool) string {
	hex := strings.ReplaceAll(id.String(), "-", "")

	var out string
	if smbios26 {
		out = fmt.Sprintf("%s-%s-%s-%s-%s",
			hex[0:8], hex[8:12], hex[12:16], hex[16:20], hex[20:32])
	} else {
		out = fmt.Sprintf("%s%s%s%s-%s%s-%s%s-%s-%s",
			hex[6:8], hex[4:6], hex[2:4], hex[0:2],
			hex[10:12], hex[8:10],
			hex[14:16], hex[12:14],
			hex[16:20], hex[20:32])
	}

	return strings.ToUpper(out)
}

func uuidFromMAC() string {
	return fmt.Sprintf("00000000-0000-0000-0000-%s", network.FirstMAC())
}

// smbiosVersion probes the firmware tables. Unknown versions report
// as 0.0, which selects the legacy byte order.
func smbiosVersion(ctx context.Context) (major, minor int) {
	cmd := "LC_ALL=C sudo dmidecode -t 0 | grep SMBIOS | grep present"
	if runtime.GOOS == "windows" {
		cmd = "dmidecode -t bios | findstr /i SMBIOS | findstr /i present"
	}

	res := shell.Run(ctx, cmd)
	if !res.OK {
		return 0, 0
	}

	return parseSMBIOSVersion(res.Stdout)
}

// parseSMBIOSVersion extracts the version from a line of the form
// "SMBIOS x.y present.".
func parseSMBIOSVersion(out string) (major, minor int) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) < 2 {
		return 0, 0
	}

	parts := strings.Split(fields[1], ".")
	if len(parts) < 2 {
		return 0, 0
	}

	major, _ = strconv.Atoi(parts[0])
	minor, _ = strconv.Atoi(parts[1])

	return major, minor
}

// stripComments drops the '#' prefixed lines dmidecode mixes into its
// output and returns the remainder trimmed.
func stripComments(out string) string {
	var kept []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Capture runs lshw and returns the parsed inventory document.
func Capture(ctx context.Context) (json.RawMessage, error) {
	cmd := "LC_ALL=C lshw -json"
	if runtime.GOOS == "windows" {
		cmd = "lshw --json"
	}

	res := shell.Run(ctx, cmd)
	if !res.OK {
		return nil, errors.Errorf("lshw command failed: %s", res.CombinedOutput())
	}

	raw := []byte(strings.TrimSpace(res.Stdout))
	if !json.Valid(raw) {
		return nil, errors.New("lshw produced invalid inventory document")
	}

	return raw, nil
}

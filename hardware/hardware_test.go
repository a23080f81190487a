package hardware

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUUIDByteOrder(t *testing.T) {
	id, err := uuid.Parse("03000200-0400-0500-0006-000700080009")
	require.NoError(t, err)

	// modern firmware: identity rendering, upper case
	assert.Equal(t, "03000200-0400-0500-0006-000700080009", formatUUID(id, true))

	// legacy firmware: time fields byte swapped
	assert.Equal(t, "00020003-0004-0005-0006-000700080009", formatUUID(id, false))
}

func TestParseSMBIOSVersion(t *testing.T) {
	major, minor := parseSMBIOSVersion("SMBIOS 2.7 present.\n")
	assert.Equal(t, 2, major)
	assert.Equal(t, 7, minor)

	major, minor = parseSMBIOSVersion("SMBIOS 3.0.0 present.")
	assert.Equal(t, 3, major)
	assert.Equal(t, 0, minor)

	major, minor = parseSMBIOSVersion("")
	assert.Zero(t, major)
	assert.Zero(t, minor)

	major, minor = parseSMBIOSVersion("garbage")
	assert.Zero(t, major)
	assert.Zero(t, minor)
}

func TestStripComments(t *testing.T) {
	out := "# dmidecode 3.3\n# SMBIOS entry point at 0x000f04d0\n6BA7B810-9DAD-11D1-80B4-00C04FD430C8\n"
	assert.Equal(t, "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", stripComments(out))

	assert.Empty(t, stripComments("# only comments\n"))
	assert.Empty(t, stripComments(""))
}

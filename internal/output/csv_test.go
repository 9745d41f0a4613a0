package output

import (
	"bytes"
	"testing"

	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/fields"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arpOutput = `Protocol  Address   Age  Hardware Addr   Type  Interface
Internet  10.0.0.1  4    0000.0c07.ac00  ARPA  Vlan100
Internet  10.0.0.2  -    0012.7f4b.1c00  ARPA  Vlan100`

func ciscoLookup(device string) (string, bool) {
	if device == "ar1.mel" {
		return "cisco", true
	}
	return "", false
}

func TestCSVRenderer_ExtractsRows(t *testing.T) {
	var buf bytes.Buffer
	r := NewCSVRenderer(NewSyncWriter(&buf), fields.Builtin(), ciscoLookup, true)

	r.Render(successResponse("ar1.mel", "show arp", arpOutput))

	out := buf.String()
	assert.Contains(t, out, "ar1.mel,Internet,10.0.0.1,4,0000.0c07.ac00,ARPA,Vlan100\n")
	assert.Contains(t, out, "ar1.mel,Internet,10.0.0.2,-,0012.7f4b.1c00,ARPA,Vlan100\n")
}

func TestCSVRenderer_InteractiveFallbackToRawText(t *testing.T) {
	var buf bytes.Buffer
	r := NewCSVRenderer(NewSyncWriter(&buf), fields.Builtin(), ciscoLookup, true)

	// No parser registered for this command: fall back to raw output.
	r.Render(successResponse("ar1.mel", "show version", "IOS 15.2"))

	assert.Equal(t, "ar1.mel:\nIOS 15.2\n", buf.String())
}

func TestCSVRenderer_ScriptedFailureSuppressesOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewCSVRenderer(NewSyncWriter(&buf), fields.Builtin(), ciscoLookup, false)

	r.Render(successResponse("ar1.mel", "show version", "IOS 15.2"))

	assert.Empty(t, buf.String(), "scripted runs never emit partial records")
}

func TestCSVRenderer_UnknownDeviceTypeFallsBack(t *testing.T) {
	var buf bytes.Buffer
	r := NewCSVRenderer(NewSyncWriter(&buf), fields.Builtin(), ciscoLookup, true)

	// cr9.akl is not in the device cache, so its type is tagged unknown
	// and no parser matches.
	r.Render(successResponse("cr9.akl", "show arp", arpOutput))

	assert.Contains(t, buf.String(), "cr9.akl:\n")
}

func TestCSVRenderer_ErrorStillPrinted(t *testing.T) {
	var buf bytes.Buffer
	r := NewCSVRenderer(NewSyncWriter(&buf), fields.Builtin(), ciscoLookup, true)

	r.Render(errorResponse("ar1.mel", "show arp", &broker.Error{Message: "boom"}))

	assert.Contains(t, buf.String(), "ERROR:")
}

func TestCSVRenderer_Availability(t *testing.T) {
	var buf bytes.Buffer
	w := NewSyncWriter(&buf)

	available := NewCSVRenderer(w, fields.Builtin(), ciscoLookup, true)
	assert.NoError(t, available.Available())

	missing := NewCSVRenderer(w, nil, ciscoLookup, true)
	err := missing.Available()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCapability))
}

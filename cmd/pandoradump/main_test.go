package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hep-reco/pandora/internal/pandora"
	"github.com/hep-reco/pandora/internal/pandora/serialize"
)

func TestDump_EventContainerReportsHitAndTrackCounts(t *testing.T) {
	t.Parallel()

	hit := pandora.NewCaloHit(pandora.Identifier(1), pandora.Address(1))
	hit.Geometry = pandora.NewRectangularCellGeometry(1, 1, 0.5)
	hit.ElectromagneticEnergy = 2.5

	track := pandora.NewStandaloneTrack(pandora.Identifier(2), pandora.Address(2))
	track.Mass = 0.105

	var buf bytes.Buffer
	w := serialize.NewWriter(&buf)
	w.WriteCaloHit(hit)
	w.WriteTrack(track)
	require.NoError(t, w.Flush(serialize.ContainerEvent))

	var out bytes.Buffer
	err := dump(&out, &buf, 0)
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "container 0: tag=EVENT")
	assert.Contains(t, output, "1 hits, 1 tracks")
}

func TestDump_GeometryContainerReportsSubDetector(t *testing.T) {
	t.Parallel()

	sd := &serialize.SubDetector{
		Name:           "ECal",
		InnerRCm:       100,
		OuterRCm:       150,
		Layers:         []serialize.SubDetectorLayer{{DistanceToIPCm: 100}},
		HasMainTracker: false,
		HasCoil:        false,
	}

	var buf bytes.Buffer
	w := serialize.NewWriter(&buf)
	w.WriteSubDetector(sd)
	require.NoError(t, w.Flush(serialize.ContainerGeometry))

	var out bytes.Buffer
	err := dump(&out, &buf, 0)
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, `subdetector "ECal"`)
	assert.Contains(t, output, "mainTracker=false coil=false")
}

func TestDump_MultipleContainersAreReadInSequence(t *testing.T) {
	t.Parallel()

	sd := &serialize.SubDetector{Name: "HCal", InnerRCm: 150, OuterRCm: 250}
	hit := pandora.NewCaloHit(pandora.Identifier(1), pandora.Address(1))
	hit.Geometry = pandora.NewRectangularCellGeometry(1, 1, 0.5)

	var buf bytes.Buffer
	w := serialize.NewWriter(&buf)
	w.WriteSubDetector(sd)
	require.NoError(t, w.Flush(serialize.ContainerGeometry))

	w.WriteCaloHit(hit)
	require.NoError(t, w.Flush(serialize.ContainerEvent))

	var out bytes.Buffer
	err := dump(&out, &buf, 0)
	require.NoError(t, err)

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "container 0")
	containerLine := ""
	for _, l := range lines {
		if strings.HasPrefix(l, "container 1") {
			containerLine = l
		}
	}
	assert.Contains(t, containerLine, "tag=EVENT")
}

func TestDump_RejectsBadMagic(t *testing.T) {
	t.Parallel()

	bad := bytes.NewReader(make([]byte, 16))
	err := dump(io.Discard, bad, 0)
	assert.Error(t, err)
}

func TestDump_EmptyInputIsNotAnError(t *testing.T) {
	t.Parallel()

	err := dump(io.Discard, bytes.NewReader(nil), 0)
	assert.NoError(t, err)
}

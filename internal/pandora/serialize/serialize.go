// Package serialize implements the binary event/geometry wire format of
// spec.md §4.7: a magic-hashed container with a tag, a size, and a
// sequence of typed little-endian components. The fixed-width,
// encoding/binary-driven layout is spec'd byte-for-byte (spec.md §4.7,
// §6, grounded in original_source/Framework/src/Utilities/FileWriter.cc
// and FileReader.cc), so it is hand-rolled rather than routed through a
// general-purpose framing library such as protobuf or gRPC — see
// DESIGN.md for that decision.
package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/hep-reco/pandora/internal/pandora"
)

// FileMagic is the 32-bit magic value every container opens with
// (spec.md §6's "Header: 32-bit magic").
const FileMagic uint32 = 0x50414e44 // "PAND"

// ContainerTag distinguishes an EVENT container from a GEOMETRY container.
type ContainerTag uint32

const (
	ContainerEvent ContainerTag = iota
	ContainerGeometry
)

func (t ContainerTag) String() string {
	switch t {
	case ContainerEvent:
		return "EVENT"
	case ContainerGeometry:
		return "GEOMETRY"
	default:
		return "UNKNOWN"
	}
}

// ComponentTag identifies one typed component within a container body.
type ComponentTag uint32

const (
	ComponentCaloHit ComponentTag = iota
	ComponentTrack
	ComponentSubDetector
	ComponentEventEnd
)

// Writer emits containers to an underlying stream in the format of
// spec.md §4.7: header, body, footer tag, no compression, no indirection.
type Writer struct {
	w   *bufio.Writer
	buf []byte // staged body, so the container size can be back-filled
}

// NewWriter wraps dst for container writes.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(dst)}
}

func (w *Writer) reset() { w.buf = w.buf[:0] }

func (w *Writer) putUint32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) putUint64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) putFloat64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}
func (w *Writer) putByte(b byte) { w.buf = append(w.buf, b) }
func (w *Writer) putVector(v pandora.CartesianVector) {
	w.putFloat64(v.X)
	w.putFloat64(v.Y)
	w.putFloat64(v.Z)
}
func (w *Writer) putString(s string) {
	w.putUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteCaloHit appends a CALO_HIT component for hit to the staged body
// (spec.md §6's per-hit payload layout).
func (w *Writer) WriteCaloHit(hit *pandora.CaloHit) {
	w.putUint32(uint32(ComponentCaloHit))
	w.putVector(hit.Position)
	w.putVector(hit.ExpectedDirection)
	w.putVector(hit.CellNormal)
	a, b := hit.Geometry.PlanarExtent()
	w.putFloat64(a)
	w.putFloat64(b)
	w.putFloat64(hit.Geometry.CellThickness)
	w.putFloat64(hit.RadiationLengths)
	w.putFloat64(hit.InteractionLengths)
	w.putFloat64(hit.RadiationFromIP)
	w.putFloat64(hit.InteractionFromIP)
	w.putFloat64(hit.Time)
	w.putFloat64(hit.InputEnergy)
	w.putFloat64(hit.MIPEnergy)
	w.putFloat64(hit.ElectromagneticEnergy)
	w.putFloat64(hit.HadronicEnergy)
	if hit.IsDigital {
		w.putByte(1)
	} else {
		w.putByte(0)
	}
	w.putUint32(uint32(hit.Type))
	w.putUint32(uint32(hit.Region))
	w.putUint32(uint32(hit.Pseudolayer))
	if hit.IsOuterSamplingLayer {
		w.putByte(1)
	} else {
		w.putByte(0)
	}
	w.putUint64(uint64(hit.Address()))
}

// WriteTrack appends a TRACK component for track to the staged body
// (spec.md §6: "Track payload analogous").
func (w *Writer) WriteTrack(track *pandora.Track) {
	w.putUint32(uint32(ComponentTrack))
	w.putFloat64(track.D0)
	w.putFloat64(track.Z0)
	w.putUint32(uint32(track.ParticleID))
	w.putUint32(uint32(track.ChargeSign))
	w.putFloat64(track.Mass)
	w.putVector(track.Momentum)
	w.putVector(track.Position)
	w.putVector(track.Start.Position)
	w.putVector(track.Start.Momentum)
	w.putVector(track.End.Position)
	w.putVector(track.End.Momentum)
	w.putVector(track.Calorimeter.Position)
	w.putVector(track.Calorimeter.Momentum)
	w.putUint64(uint64(track.Address()))
}

// SubDetectorLayer is one entry in a sub-detector's layer table.
type SubDetectorLayer struct {
	DistanceToIPCm     float64
	RadiationLengths   float64
	InteractionLengths float64
}

// SubDetector is one sub-detector geometry block (spec.md §6).
type SubDetector struct {
	Name               string
	InnerRCm, OuterRCm float64
	InnerZCm, OuterZCm float64
	InnerPhi           float64
	SymmetryOrder      uint32
	IsMirroredInZ      bool
	Layers             []SubDetectorLayer

	HasMainTracker bool
	MainTrackerRCm float64
	MainTrackerZCm float64
	MainTrackerPhi float64
	HasCoil        bool
	CoilInnerRCm   float64
	CoilOuterRCm   float64
	CoilZCm        float64
}

// WriteSubDetector appends a SUB_DETECTOR component (spec.md §6's geometry
// payload, including the presence-byte-gated optional main-tracker and
// coil blocks).
func (w *Writer) WriteSubDetector(sd *SubDetector) {
	w.putUint32(uint32(ComponentSubDetector))
	w.putString(sd.Name)
	w.putFloat64(sd.InnerRCm)
	w.putFloat64(sd.OuterRCm)
	w.putFloat64(sd.InnerZCm)
	w.putFloat64(sd.OuterZCm)
	w.putFloat64(sd.InnerPhi)
	w.putUint32(sd.SymmetryOrder)
	if sd.IsMirroredInZ {
		w.putByte(1)
	} else {
		w.putByte(0)
	}
	w.putUint32(uint32(len(sd.Layers)))
	for _, l := range sd.Layers {
		w.putFloat64(l.DistanceToIPCm)
		w.putFloat64(l.RadiationLengths)
		w.putFloat64(l.InteractionLengths)
	}

	if sd.HasMainTracker {
		w.putByte(1)
		w.putFloat64(sd.MainTrackerRCm)
		w.putFloat64(sd.MainTrackerZCm)
		w.putFloat64(sd.MainTrackerPhi)
	} else {
		w.putByte(0)
	}
	if sd.HasCoil {
		w.putByte(1)
		w.putFloat64(sd.CoilInnerRCm)
		w.putFloat64(sd.CoilOuterRCm)
		w.putFloat64(sd.CoilZCm)
	} else {
		w.putByte(0)
	}
}

// Flush writes the staged body to dst as one complete container: magic,
// tag, size, body, EVENT_END footer — then clears the stage for the next
// container.
func (w *Writer) Flush(tag ContainerTag) error {
	footer := make([]byte, 4)
	binary.LittleEndian.PutUint32(footer, uint32(ComponentEventEnd))
	body := append(w.buf, footer...)

	var header [16]byte
	binary.LittleEndian.PutUint32(header[0:4], FileMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(tag))
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(body)))

	if _, err := w.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(body); err != nil {
		return err
	}
	w.reset()
	return w.w.Flush()
}

// Reader reads containers in the format Writer emits.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps src for container reads.
func NewReader(src io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(src)}
}

// Header is a container's fixed-size header.
type Header struct {
	Magic     uint32
	Tag       ContainerTag
	SizeBytes uint64
}

// ReadHeader reads the next container's header, validating the magic
// value (spec.md §6).
func (r *Reader) ReadHeader() (*Header, error) {
	var raw [16]byte
	if _, err := io.ReadFull(r.r, raw[:]); err != nil {
		return nil, err
	}
	magic := binary.LittleEndian.Uint32(raw[0:4])
	if magic != FileMagic {
		return nil, pandora.NewStatusError(pandora.StatusFailure, "bad file magic")
	}
	return &Header{
		Magic:     magic,
		Tag:       ContainerTag(binary.LittleEndian.Uint32(raw[4:8])),
		SizeBytes: binary.LittleEndian.Uint64(raw[8:16]),
	}, nil
}

// SkipContainer advances past a container's body without decoding it,
// using its declared size (spec.md §4.7: "Seek-to-event uses container
// size").
func (r *Reader) SkipContainer(h *Header) error {
	_, err := io.CopyN(io.Discard, r.r, int64(h.SizeBytes))
	return err
}

// NextComponentTag reads and consumes the tag of the next component in the
// current container body, leaving that component's payload unread.
func (r *Reader) NextComponentTag() (ComponentTag, error) {
	var raw [4]byte
	if _, err := io.ReadFull(r.r, raw[:]); err != nil {
		return 0, err
	}
	return ComponentTag(binary.LittleEndian.Uint32(raw[:])), nil
}

func (r *Reader) readFloat64() (float64, error) {
	var raw [8]byte
	if _, err := io.ReadFull(r.r, raw[:]); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(raw[:])
	return floatFromBits(bits), nil
}

func (r *Reader) readUint32() (uint32, error) {
	var raw [4]byte
	if _, err := io.ReadFull(r.r, raw[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw[:]), nil
}

func (r *Reader) readUint64() (uint64, error) {
	var raw [8]byte
	if _, err := io.ReadFull(r.r, raw[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw[:]), nil
}

func (r *Reader) readByte() (byte, error) {
	return r.r.ReadByte()
}

func (r *Reader) readVector() (pandora.CartesianVector, error) {
	x, err := r.readFloat64()
	if err != nil {
		return pandora.CartesianVector{}, err
	}
	y, err := r.readFloat64()
	if err != nil {
		return pandora.CartesianVector{}, err
	}
	z, err := r.readFloat64()
	if err != nil {
		return pandora.CartesianVector{}, err
	}
	return pandora.CartesianVector{X: x, Y: y, Z: z}, nil
}

// ReadCaloHitPayload decodes one CALO_HIT component's fields (the
// ComponentCaloHit tag itself must already have been consumed by the
// caller via NextComponentTag) into the returned CaloHit. The trailing
// framework address token is read past but not kept: the returned hit's
// Address is 0.
func (r *Reader) ReadCaloHitPayload(id pandora.Identifier) (*pandora.CaloHit, error) {
	hit := pandora.NewCaloHit(id, 0)
	var err error
	if hit.Position, err = r.readVector(); err != nil {
		return nil, err
	}
	if hit.ExpectedDirection, err = r.readVector(); err != nil {
		return nil, err
	}
	if hit.CellNormal, err = r.readVector(); err != nil {
		return nil, err
	}
	u, err := r.readFloat64()
	if err != nil {
		return nil, err
	}
	v, err := r.readFloat64()
	if err != nil {
		return nil, err
	}
	thickness, err := r.readFloat64()
	if err != nil {
		return nil, err
	}
	hit.Geometry = pandora.NewRectangularCellGeometry(u, v, thickness)
	if hit.RadiationLengths, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.InteractionLengths, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.RadiationFromIP, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.InteractionFromIP, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.Time, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.InputEnergy, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.MIPEnergy, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.ElectromagneticEnergy, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if hit.HadronicEnergy, err = r.readFloat64(); err != nil {
		return nil, err
	}
	digital, err := r.readByte()
	if err != nil {
		return nil, err
	}
	hit.IsDigital = digital != 0
	typ, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	hit.Type = pandora.HitType(typ)
	region, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	hit.Region = pandora.Region(region)
	layer, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	hit.Pseudolayer = int(layer)
	outer, err := r.readByte()
	if err != nil {
		return nil, err
	}
	hit.IsOuterSamplingLayer = outer != 0
	if _, err := r.readUint64(); err != nil {
		return nil, err
	}
	return hit, nil
}

// ReadTrackPayload decodes one TRACK component's fields (the
// ComponentTrack tag itself must already have been consumed by the
// caller via NextComponentTag) into a fresh Track.
func (r *Reader) ReadTrackPayload(id pandora.Identifier) (*pandora.Track, error) {
	track := pandora.NewStandaloneTrack(id, 0)
	var err error
	if track.D0, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if track.Z0, err = r.readFloat64(); err != nil {
		return nil, err
	}
	particleID, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	track.ParticleID = int(int32(particleID))
	chargeSign, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	track.ChargeSign = int(int32(chargeSign))
	if track.Mass, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if track.Momentum, err = r.readVector(); err != nil {
		return nil, err
	}
	if track.Position, err = r.readVector(); err != nil {
		return nil, err
	}
	if track.Start.Position, err = r.readVector(); err != nil {
		return nil, err
	}
	if track.Start.Momentum, err = r.readVector(); err != nil {
		return nil, err
	}
	if track.End.Position, err = r.readVector(); err != nil {
		return nil, err
	}
	if track.End.Momentum, err = r.readVector(); err != nil {
		return nil, err
	}
	if track.Calorimeter.Position, err = r.readVector(); err != nil {
		return nil, err
	}
	if track.Calorimeter.Momentum, err = r.readVector(); err != nil {
		return nil, err
	}
	if _, err := r.readUint64(); err != nil {
		return nil, err
	}
	return track, nil
}

// ReadString decodes a length-prefixed string (spec.md §4.7).
func (r *Reader) ReadString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadSubDetector decodes one SUB_DETECTOR component's fields (the
// ComponentSubDetector tag itself must already have been consumed by the
// caller via NextComponentTag).
func (r *Reader) ReadSubDetector() (*SubDetector, error) {
	sd := &SubDetector{}
	var err error
	if sd.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if sd.InnerRCm, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if sd.OuterRCm, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if sd.InnerZCm, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if sd.OuterZCm, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if sd.InnerPhi, err = r.readFloat64(); err != nil {
		return nil, err
	}
	if sd.SymmetryOrder, err = r.readUint32(); err != nil {
		return nil, err
	}
	mirrored, err := r.readByte()
	if err != nil {
		return nil, err
	}
	sd.IsMirroredInZ = mirrored != 0
	nLayers, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	sd.Layers = make([]SubDetectorLayer, nLayers)
	for i := range sd.Layers {
		if sd.Layers[i].DistanceToIPCm, err = r.readFloat64(); err != nil {
			return nil, err
		}
		if sd.Layers[i].RadiationLengths, err = r.readFloat64(); err != nil {
			return nil, err
		}
		if sd.Layers[i].InteractionLengths, err = r.readFloat64(); err != nil {
			return nil, err
		}
	}

	hasMainTracker, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if sd.HasMainTracker = hasMainTracker != 0; sd.HasMainTracker {
		if sd.MainTrackerRCm, err = r.readFloat64(); err != nil {
			return nil, err
		}
		if sd.MainTrackerZCm, err = r.readFloat64(); err != nil {
			return nil, err
		}
		if sd.MainTrackerPhi, err = r.readFloat64(); err != nil {
			return nil, err
		}
	}
	hasCoil, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if sd.HasCoil = hasCoil != 0; sd.HasCoil {
		if sd.CoilInnerRCm, err = r.readFloat64(); err != nil {
			return nil, err
		}
		if sd.CoilOuterRCm, err = r.readFloat64(); err != nil {
			return nil, err
		}
		if sd.CoilZCm, err = r.readFloat64(); err != nil {
			return nil, err
		}
	}
	return sd, nil
}

func floatFromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

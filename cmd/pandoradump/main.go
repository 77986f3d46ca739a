// Command pandoradump is a debug CLI: it reads a binary geometry or event
// file written by internal/pandora/serialize and prints a human-readable
// summary of its containers, grounded on the teacher's flag-based CLI
// style (cmd/lidar/lidar.go).
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hep-reco/pandora/internal/pandora"
	"github.com/hep-reco/pandora/internal/pandora/serialize"
)

var (
	inputPath = flag.String("in", "", "path to a binary geometry/event file")
	limit     = flag.Int("limit", 0, "stop once an event container has yielded this many components (0 = no limit)")
)

// errComponentLimit ends the dump once an event container reaches the
// -limit component count.
var errComponentLimit = errors.New("component limit reached")

func main() {
	flag.Parse()
	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: pandoradump -in <file>")
		os.Exit(2)
	}

	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("open %s: %v", *inputPath, err)
	}
	defer f.Close()

	if err := dump(os.Stdout, f, *limit); err != nil {
		log.Fatalf("dump %s: %v", *inputPath, err)
	}
}

func dump(w io.Writer, r io.Reader, componentLimit int) error {
	reader := serialize.NewReader(r)

	for containerIndex := 0; ; containerIndex++ {
		header, err := reader.ReadHeader()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read container %d header: %w", containerIndex, err)
		}

		fmt.Fprintf(w, "container %d: tag=%v size=%d bytes\n", containerIndex, header.Tag, header.SizeBytes)

		switch header.Tag {
		case serialize.ContainerEvent:
			if err := dumpEvent(w, reader, componentLimit); err != nil {
				if errors.Is(err, errComponentLimit) {
					return nil
				}
				return fmt.Errorf("container %d: %w", containerIndex, err)
			}
		case serialize.ContainerGeometry:
			if err := dumpGeometry(w, reader); err != nil {
				return fmt.Errorf("container %d: %w", containerIndex, err)
			}
		default:
			if err := reader.SkipContainer(header); err != nil {
				return fmt.Errorf("skip unknown container %d: %w", containerIndex, err)
			}
		}
	}
}

func dumpEvent(w io.Writer, reader *serialize.Reader, componentLimit int) error {
	hits, tracks := 0, 0
	for i := 0; componentLimit == 0 || i < componentLimit; i++ {
		tag, err := reader.NextComponentTag()
		if err != nil {
			return fmt.Errorf("read component tag: %w", err)
		}
		switch tag {
		case serialize.ComponentEventEnd:
			fmt.Fprintf(w, "  event end: %d hits, %d tracks\n", hits, tracks)
			return nil
		case serialize.ComponentCaloHit:
			hit, err := reader.ReadCaloHitPayload(pandora.Identifier(i))
			if err != nil {
				return fmt.Errorf("read calo hit %d: %w", i, err)
			}
			hits++
			fmt.Fprintf(w, "  hit %d: position=%+v em=%.4f had=%.4f\n", i, hit.Position, hit.ElectromagneticEnergy, hit.HadronicEnergy)
		case serialize.ComponentTrack:
			track, err := reader.ReadTrackPayload(pandora.Identifier(i))
			if err != nil {
				return fmt.Errorf("read track %d: %w", i, err)
			}
			tracks++
			fmt.Fprintf(w, "  track %d: momentum=%+v mass=%.4f charge=%d\n", i, track.Momentum, track.Mass, track.ChargeSign)
		default:
			return fmt.Errorf("unexpected component tag %v", tag)
		}
	}
	return errComponentLimit
}

func dumpGeometry(w io.Writer, reader *serialize.Reader) error {
	tag, err := reader.NextComponentTag()
	if err != nil {
		return fmt.Errorf("read subdetector tag: %w", err)
	}
	if tag != serialize.ComponentSubDetector {
		return fmt.Errorf("unexpected component tag %v in geometry container", tag)
	}
	sd, err := reader.ReadSubDetector()
	if err != nil {
		return fmt.Errorf("read subdetector: %w", err)
	}
	fmt.Fprintf(w, "  subdetector %q: innerR=%.1f outerR=%.1f layers=%d mainTracker=%v coil=%v\n",
		sd.Name, sd.InnerRCm, sd.OuterRCm, len(sd.Layers), sd.HasMainTracker, sd.HasCoil)

	tag, err = reader.NextComponentTag()
	if err != nil {
		return fmt.Errorf("read geometry container footer: %w", err)
	}
	if tag != serialize.ComponentEventEnd {
		return fmt.Errorf("unexpected trailing component tag %v in geometry container", tag)
	}
	return nil
}

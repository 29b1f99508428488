package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"helioframe/internal/acquire"
	"helioframe/internal/services"
)

// Schema selects the binary container layout.
type Schema string

const (
	// SchemaRaw stores one grayscale plane record per successful channel.
	SchemaRaw Schema = "raw"
	// SchemaComposite stores two RGB images built by interleaving channel
	// groups of three.
	SchemaComposite Schema = "composite"
	// SchemaCompressed stores one length-prefixed compressed blob per
	// successful channel.
	SchemaCompressed Schema = "compressed"
)

// ParseSchema validates a configured schema string.
func ParseSchema(value string) (Schema, error) {
	switch Schema(value) {
	case SchemaRaw, SchemaComposite, SchemaCompressed:
		return Schema(value), nil
	default:
		return "", fmt.Errorf("unknown container schema %q", value)
	}
}

// TimestampLayout is the fixed 19-byte ASCII header timestamp format.
// No timezone marker; the instant is implicitly UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// compositeChannels is the successful-channel cardinality a composite
// container requires: two images of three interleaved planes each.
const compositeChannels = 6

// FormatTimestamp renders the canonical instant as the 19-character header
// and sidecar representation.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

// Assemble serializes an acquisition outcome into container bytes for the
// selected schema. The container is built fully in memory so a failed
// assembly never leaves partial output behind. Assembly is deterministic:
// the same outcome yields byte-identical containers.
func Assemble(outcome *acquire.Outcome, schema Schema) ([]byte, error) {
	if outcome == nil || len(outcome.Results) == 0 {
		return nil, services.Wrap(services.ErrAssembly, "assembling", "validate outcome",
			"no channel results to assemble", nil)
	}

	switch schema {
	case SchemaRaw:
		return assembleRaw(outcome)
	case SchemaComposite:
		return assembleComposite(outcome)
	case SchemaCompressed:
		return assembleCompressed(outcome)
	default:
		return nil, services.Wrap(services.ErrAssembly, "assembling", "select schema",
			fmt.Sprintf("unknown schema %q", schema), nil)
	}
}

func writeHeader(buf *bytes.Buffer, count int, canonical time.Time) error {
	if count < 1 || count > 0xFF {
		return services.Wrap(services.ErrAssembly, "assembling", "write header",
			fmt.Sprintf("record count %d does not fit the count byte", count), nil)
	}
	buf.WriteByte(byte(count))
	buf.WriteString(FormatTimestamp(canonical))
	return nil
}

func channelByte(channel int) (byte, error) {
	if channel < 0 || channel > 0xFF {
		return 0, services.Wrap(services.ErrAssembly, "assembling", "write record",
			fmt.Sprintf("channel %d does not fit the id byte", channel), nil)
	}
	return byte(channel), nil
}

// assembleRaw writes records in arrival order: channel id, 16-bit dimensions,
// then width*height grayscale bytes.
func assembleRaw(outcome *acquire.Outcome) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeader(&buf, len(outcome.Results), outcome.Canonical); err != nil {
		return nil, err
	}

	for _, result := range outcome.Results {
		id, err := channelByte(result.Channel)
		if err != nil {
			return nil, err
		}
		plane := result.Plane
		if len(plane.Data) != plane.Width*plane.Height {
			return nil, services.Wrap(services.ErrAssembly, "assembling", "write record",
				fmt.Sprintf("channel %d buffer is %d bytes, want %d (%dx%d)",
					result.Channel, len(plane.Data), plane.Width*plane.Height, plane.Width, plane.Height), nil)
		}
		buf.WriteByte(id)
		writeUint16(&buf, plane.Width)
		writeUint16(&buf, plane.Height)
		buf.Write(plane.Data)
	}

	return buf.Bytes(), nil
}

// assembleComposite sorts the six successful channels ascending, partitions
// them into two groups of three, and writes one interleaved RGB record per
// group: byte i of each group member lands at output offsets 3i, 3i+1, 3i+2.
func assembleComposite(outcome *acquire.Outcome) ([]byte, error) {
	if len(outcome.Results) != compositeChannels {
		return nil, services.Wrap(services.ErrAssembly, "assembling", "validate outcome",
			fmt.Sprintf("composite schema requires %d channels, outcome has %d",
				compositeChannels, len(outcome.Results)), nil)
	}

	ordered := make([]acquire.ChannelResult, len(outcome.Results))
	copy(ordered, outcome.Results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Channel < ordered[j].Channel })

	var buf bytes.Buffer
	if err := writeHeader(&buf, 2, outcome.Canonical); err != nil {
		return nil, err
	}

	for _, group := range [][]acquire.ChannelResult{ordered[:3], ordered[3:]} {
		record, err := interleave(group)
		if err != nil {
			return nil, err
		}
		writeUint16(&buf, group[0].Plane.Width)
		writeUint16(&buf, group[0].Plane.Height)
		buf.Write(record)
	}

	return buf.Bytes(), nil
}

func interleave(group []acquire.ChannelResult) ([]byte, error) {
	length := len(group[0].Plane.Data)
	for _, member := range group[1:] {
		if len(member.Plane.Data) != length {
			return nil, services.Wrap(services.ErrAssembly, "assembling", "interleave group",
				fmt.Sprintf("channel length mismatch: channel %d has %d bytes, channel %d has %d",
					group[0].Channel, length, member.Channel, len(member.Plane.Data)), nil)
		}
	}

	out := make([]byte, length*3)
	for i := 0; i < length; i++ {
		out[3*i] = group[0].Plane.Data[i]
		out[3*i+1] = group[1].Plane.Data[i]
		out[3*i+2] = group[2].Plane.Data[i]
	}
	return out, nil
}

// assembleCompressed writes records in arrival order: channel id, 32-bit blob
// length, then the opaque compressed bytes with no padding.
func assembleCompressed(outcome *acquire.Outcome) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeader(&buf, len(outcome.Results), outcome.Canonical); err != nil {
		return nil, err
	}

	for _, result := range outcome.Results {
		id, err := channelByte(result.Channel)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(id)
		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], uint32(len(result.Plane.Data)))
		buf.Write(length[:])
		buf.Write(result.Plane.Data)
	}

	return buf.Bytes(), nil
}

func writeUint16(buf *bytes.Buffer, value int) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(value))
	buf.Write(b[:])
}

// Package filereader implements chunked, keyframe-aware reading of Annex-B
// H.264 recording files (spec §4.2): a keyframe index built once at open
// time supports sub-second seek, and NextChunk groups NAL units into
// emission-sized chunks for the playback source.
package filereader

// nalType is the low 5 bits of a NAL unit's header byte.
type nalType uint8

const (
	nalTypeSlice nalType = 1
	nalTypeIDR   nalType = 5
	nalTypeSPS   nalType = 7
	nalTypePPS   nalType = 8
)

func (t nalType) isKeyframeMarker() bool {
	return t == nalTypeIDR || t == nalTypeSPS || t == nalTypePPS
}

// nalUnit is one parsed Annex-B NAL, spanning [Start, End) in the source
// buffer including its start code.
type nalUnit struct {
	Start      int
	End        int
	PayloadOff int // offset of the header byte, i.e. Start + len(start code)
	Type       nalType
}

// scanNALUnits locates every Annex-B start code (3- or 4-byte) in data and
// returns the resulting NAL unit spans. A stream with no start codes
// yields an empty slice (callers surface NoVideoStream).
func scanNALUnits(data []byte) []nalUnit {
	starts := findStartCodes(data)
	if len(starts) == 0 {
		return nil
	}

	units := make([]nalUnit, 0, len(starts))
	for i, sc := range starts {
		payloadOff := sc.offset + sc.length
		end := len(data)
		if i+1 < len(starts) {
			end = starts[i+1].offset
		}
		if payloadOff >= len(data) {
			continue
		}
		units = append(units, nalUnit{
			Start:      sc.offset,
			End:        end,
			PayloadOff: payloadOff,
			Type:       nalType(data[payloadOff] & 0x1f),
		})
	}
	return units
}

type startCode struct {
	offset int
	length int // 3 or 4
}

// findStartCodes scans for 00 00 00 01 and 00 00 01 sequences, preferring
// the longer match when both align at the same offset.
func findStartCodes(data []byte) []startCode {
	var out []startCode
	i := 0
	for i+2 < len(data) {
		if data[i] != 0x00 || data[i+1] != 0x00 {
			i++
			continue
		}
		switch {
		case i+3 < len(data) && data[i+2] == 0x00 && data[i+3] == 0x01:
			out = append(out, startCode{offset: i, length: 4})
			i += 4
		case data[i+2] == 0x01:
			out = append(out, startCode{offset: i, length: 3})
			i += 3
		default:
			i++
		}
	}
	return out
}

package mp4demux

import (
	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec names reported in ports.StreamInfo.Codec.
const (
	CodecH264    = "h264"
	CodecAV1     = "av1"
	CodecHEVC    = "hevc"
	CodecAAC     = "aac"
	CodecUnknown = "unknown"
)

// sampleEntry returns the first sample description of a track.
func sampleEntry(trak *mp4.TrakBox) mp4.Box {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil
	}
	children := trak.Mdia.Minf.Stbl.Stsd.Children
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// detectCodec maps the sample entry type to a codec name.
func detectCodec(entry mp4.Box) string {
	if entry == nil {
		return CodecUnknown
	}
	switch entry.Type() {
	case "avc1", "avc3":
		return CodecH264
	case "av01":
		return CodecAV1
	case "hvc1", "hev1":
		return CodecHEVC
	case "mp4a":
		return CodecAAC
	default:
		return CodecUnknown
	}
}

// annexBParameterSets returns SPS and PPS as Annex B for an avc1 entry.
func annexBParameterSets(entry mp4.Box) []byte {
	vse, ok := entry.(*mp4.VisualSampleEntryBox)
	if !ok || vse.AvcC == nil {
		return nil
	}
	var out []byte
	for _, sps := range vse.AvcC.SPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, sps...)
	}
	for _, pps := range vse.AvcC.PPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, pps...)
	}
	return out
}

// avccToAnnexB converts length-prefixed NAL units to start-code prefixed ones,
// appending to dst.
func avccToAnnexB(dst, data []byte) []byte {
	offset := 0
	for offset+4 <= len(data) {
		n := int(data[offset])<<24 | int(data[offset+1])<<16 | int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if n < 0 || offset+n > len(data) {
			break
		}
		dst = append(dst, 0, 0, 0, 1)
		dst = append(dst, data[offset:offset+n]...)
		offset += n
	}
	return dst
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Package mp4demux reads progressive and fragmented MP4 files with mp4ff and
// exposes them as a ports.Demuxer. Decoding is delegated to a DecoderFactory.
package mp4demux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/johnblat/scrubcache/pkg/ports"
)

var (
	// ErrNoTracks is returned for files without a usable track.
	ErrNoTracks = errors.New("mp4demux: no tracks found")

	// ErrSeekRange is returned when a seek target lies past the end of the stream.
	ErrSeekRange = errors.New("mp4demux: seek target out of range")

	// ErrNoDecoder is returned by OpenDecoder when no factory can serve the codec.
	ErrNoDecoder = errors.New("mp4demux: no decoder for codec")
)

// DecoderFactory opens a decoder for one stream.
type DecoderFactory func(info ports.StreamInfo, opts ports.DecoderOptions) (ports.Decoder, error)

// Opener implements ports.MediaOpener for MP4 files.
type Opener struct {
	Decoders DecoderFactory
}

// Open implements ports.MediaOpener.
func (o *Opener) Open(path string) (ports.Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	d, err := New(f, o.Decoders)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// sample is one entry of the demux index.
type sample struct {
	stream int
	pts    int64
	dts    int64
	dur    int64
	key    bool
	offset int64  // file offset, progressive files only
	size   int64  // byte size, progressive files only
	data   []byte // payload, fragmented files only
}

// Demuxer implements ports.Demuxer over an indexed MP4 file.
type Demuxer struct {
	r        io.ReaderAt
	closer   io.Closer
	decoders DecoderFactory

	streams []ports.StreamInfo
	samples []sample // all tracks, in file order
	keys    [][]int  // per stream: sample indices of sync samples in pts order
	ends    []int64  // per stream: pts after the last sample
	cursor  int
}

// New indexes the MP4 file read from r.
func New(r io.ReadSeeker, decoders DecoderFactory) (*Demuxer, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	d := &Demuxer{decoders: decoders}
	if ra, ok := r.(io.ReaderAt); ok {
		d.r = ra
	}

	if f.IsFragmented() {
		err = d.indexFragmented(f)
	} else {
		err = d.indexProgressive(f)
	}
	if err != nil {
		return nil, err
	}
	if len(d.streams) == 0 {
		return nil, ErrNoTracks
	}
	d.finish()
	return d, nil
}

func (d *Demuxer) addStream(trak *mp4.TrakBox) int {
	entry := sampleEntry(trak)
	info := ports.StreamInfo{
		Index: len(d.streams),
		Codec: detectCodec(entry),
	}
	if trak.Mdia != nil {
		if trak.Mdia.Hdlr != nil {
			switch trak.Mdia.Hdlr.HandlerType {
			case "vide":
				info.MediaType = ports.MediaVideo
			case "soun":
				info.MediaType = ports.MediaAudio
			default:
				info.MediaType = ports.MediaData
			}
		}
		if trak.Mdia.Mdhd != nil {
			info.TimeBase = ports.Rational{Num: 1, Den: int64(trak.Mdia.Mdhd.Timescale)}
			info.Duration = int64(trak.Mdia.Mdhd.Duration)
		}
	}
	if vse, ok := entry.(*mp4.VisualSampleEntryBox); ok {
		info.Width = int(vse.Width)
		info.Height = int(vse.Height)
	}
	if info.Codec == CodecH264 {
		info.Extradata = annexBParameterSets(entry)
	}
	d.streams = append(d.streams, info)
	return info.Index
}

func (d *Demuxer) indexProgressive(f *mp4.File) error {
	if f.Moov == nil {
		return fmt.Errorf("no moov box found")
	}
	if d.r == nil {
		return fmt.Errorf("progressive mp4 needs an io.ReaderAt")
	}
	for _, trak := range f.Moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
			continue
		}
		stbl := trak.Mdia.Minf.Stbl
		if stbl.Stsz == nil || stbl.Stsc == nil || stbl.Stts == nil {
			continue
		}
		stream := d.addStream(trak)

		var syncSamples map[uint32]bool
		if stbl.Stss != nil {
			syncSamples = make(map[uint32]bool, len(stbl.Stss.SampleNumber))
			for _, nr := range stbl.Stss.SampleNumber {
				syncSamples[nr] = true
			}
		}

		prevChunk := -1
		var offset int64
		for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
			chunkNr, firstInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
			if err != nil {
				return fmt.Errorf("track %d sample %d: %w", stream, nr, err)
			}
			if chunkNr != prevChunk {
				base, err := chunkOffset(stbl, chunkNr)
				if err != nil {
					return fmt.Errorf("track %d sample %d: %w", stream, nr, err)
				}
				offset = int64(base)
				for s := uint32(firstInChunk); s < nr; s++ {
					offset += int64(stbl.Stsz.GetSampleSize(int(s)))
				}
				prevChunk = chunkNr
			}
			size := int64(stbl.Stsz.GetSampleSize(int(nr)))

			dts, dur := stbl.Stts.GetDecodeTime(nr)
			pts := int64(dts)
			if stbl.Ctts != nil {
				pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
			}

			d.samples = append(d.samples, sample{
				stream: stream,
				pts:    pts,
				dts:    int64(dts),
				dur:    int64(dur),
				key:    syncSamples == nil || syncSamples[nr],
				offset: offset,
				size:   size,
			})
			offset += size
		}
	}

	sort.SliceStable(d.samples, func(i, j int) bool {
		return d.samples[i].offset < d.samples[j].offset
	})
	return nil
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (uint64, error) {
	switch {
	case stbl.Stco != nil:
		return stbl.Stco.GetOffset(chunkNr)
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		return stbl.Co64.ChunkOffset[chunkNr-1], nil
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}
}

func (d *Demuxer) indexFragmented(f *mp4.File) error {
	if f.Init == nil || f.Init.Moov == nil {
		return fmt.Errorf("no init segment found")
	}

	byTrackID := make(map[uint32]int)
	trexs := make(map[uint32]*mp4.TrexBox)
	for _, trak := range f.Init.Moov.Traks {
		byTrackID[trak.Tkhd.TrackID] = d.addStream(trak)
	}
	if f.Init.Moov.Mvex != nil {
		for _, t := range f.Init.Moov.Mvex.Trexs {
			trexs[t.TrackID] = t
		}
	}

	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			// GetFullSamples reads the first traf only.
			if frag.Moof == nil || len(frag.Moof.Trafs) == 0 {
				continue
			}
			trackID := frag.Moof.Trafs[0].Tfhd.TrackID
			stream, ok := byTrackID[trackID]
			if !ok {
				continue
			}
			samples, err := frag.GetFullSamples(trexs[trackID])
			if err != nil {
				return fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				d.samples = append(d.samples, sample{
					stream: stream,
					pts:    int64(s.DecodeTime) + int64(s.CompositionTimeOffset),
					dts:    int64(s.DecodeTime),
					dur:    int64(s.Dur),
					key:    s.Flags == mp4.SyncSampleFlags,
					data:   s.Data,
				})
			}
		}
	}
	return nil
}

// finish derives per-stream timing and the keyframe index.
func (d *Demuxer) finish() {
	n := len(d.streams)
	d.keys = make([][]int, n)
	d.ends = make([]int64, n)
	counts := make([]int64, n)
	starts := make([]int64, n)
	seen := make([]bool, n)

	for i, s := range d.samples {
		counts[s.stream]++
		if !seen[s.stream] || s.pts < starts[s.stream] {
			starts[s.stream] = s.pts
			seen[s.stream] = true
		}
		if end := s.pts + s.dur; end > d.ends[s.stream] {
			d.ends[s.stream] = end
		}
		if s.key {
			d.keys[s.stream] = append(d.keys[s.stream], i)
		}
	}

	for i := range d.streams {
		info := &d.streams[i]
		info.StartTime = starts[i]
		if info.Duration == 0 {
			info.Duration = d.ends[i] - starts[i]
		}
		if info.MediaType == ports.MediaVideo {
			info.FrameCount = counts[i]
			if info.Duration > 0 && info.TimeBase.Valid() {
				num, den := counts[i]*info.TimeBase.Den, info.Duration*info.TimeBase.Num
				g := gcd(num, den)
				if g > 0 {
					info.AvgFrameRate = ports.Rational{Num: num / g, Den: den / g}
				}
			}
		}
		keys := d.keys[i]
		sort.Slice(keys, func(a, b int) bool {
			return d.samples[keys[a]].pts < d.samples[keys[b]].pts
		})
	}
}

// Streams implements ports.Demuxer.
func (d *Demuxer) Streams() []ports.StreamInfo {
	return d.streams
}

// ReadPacket implements ports.Demuxer.
func (d *Demuxer) ReadPacket(pkt *ports.Packet) error {
	if d.cursor >= len(d.samples) {
		return ports.ErrEOF
	}
	s := d.samples[d.cursor]
	d.cursor++

	data := s.data
	if data == nil {
		data = make([]byte, s.size)
		if _, err := d.r.ReadAt(data, s.offset); err != nil {
			return fmt.Errorf("read sample at %d: %w", s.offset, err)
		}
	}

	info := d.streams[s.stream]
	if info.Codec == CodecH264 {
		var buf []byte
		if s.key {
			buf = append(buf, info.Extradata...)
		}
		data = avccToAnnexB(buf, data)
	}

	*pkt = ports.Packet{
		StreamIndex: s.stream,
		PTS:         s.pts,
		DTS:         s.dts,
		Duration:    s.dur,
		Keyframe:    s.key,
		Data:        data,
	}
	return nil
}

// SeekBackward implements ports.Demuxer. The read cursor moves to the latest
// sync sample of the stream whose pts is at or before ts, or to the first
// sync sample when ts precedes it.
func (d *Demuxer) SeekBackward(streamIndex int, ts int64) error {
	if streamIndex < 0 || streamIndex >= len(d.streams) {
		return fmt.Errorf("mp4demux: no stream %d", streamIndex)
	}
	keys := d.keys[streamIndex]
	if len(keys) == 0 {
		return fmt.Errorf("mp4demux: stream %d has no sync samples", streamIndex)
	}
	if ts >= d.ends[streamIndex] {
		return fmt.Errorf("%w: %d >= %d", ErrSeekRange, ts, d.ends[streamIndex])
	}

	i := sort.Search(len(keys), func(i int) bool {
		return d.samples[keys[i]].pts > ts
	})
	if i > 0 {
		i--
	}
	d.cursor = keys[i]
	return nil
}

// OpenDecoder implements ports.Demuxer.
func (d *Demuxer) OpenDecoder(streamIndex int, opts ports.DecoderOptions) (ports.Decoder, error) {
	if streamIndex < 0 || streamIndex >= len(d.streams) {
		return nil, fmt.Errorf("mp4demux: no stream %d", streamIndex)
	}
	info := d.streams[streamIndex]
	if d.decoders == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDecoder, info.Codec)
	}
	return d.decoders(info, opts)
}

// Close implements ports.Demuxer.
func (d *Demuxer) Close() error {
	if d.closer != nil {
		err := d.closer.Close()
		d.closer = nil
		return err
	}
	return nil
}

var (
	_ ports.Demuxer     = (*Demuxer)(nil)
	_ ports.MediaOpener = (*Opener)(nil)
)

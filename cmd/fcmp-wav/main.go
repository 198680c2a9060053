// Command fcmp-wav demonstrates fcmp compression over raw PCM audio: the
// interleaved sample bytes of a WAV file are compressed as an opaque byte
// stream, with just enough header information kept alongside to rebuild a
// playable WAV on extraction.
package main

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"fcmp"
	"fcmp/search"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// pcmHeader precedes the compressed container in a .fcmpwav file; it carries
// just enough to reconstruct a WAV encoder on extraction.
type pcmHeader struct {
	SampleRate uint32
	BitDepth   uint8
	NumChans   uint8
	NumFrames  uint32
}

const headerSize = 4 + 1 + 1 + 4

func main() {
	var (
		force       bool
		extractMode bool
		threads     int
		verbosity   int
	)
	pflag.BoolVarP(&force, "force", "f", false, "force overwrite of existing output file")
	pflag.BoolVarP(&extractMode, "extract", "x", false, "rebuild a WAV file from a .fcmpwav file")
	pflag.IntVarP(&threads, "threads", "t", 0, "worker thread count (0 selects the number of CPUs)")
	pflag.IntVarP(&verbosity, "verbose", "v", 0, "trace verbosity")
	pflag.Parse()

	opts := search.Options{Threads: threads, Verbosity: verbosity}
	for _, path := range pflag.Args() {
		var err error
		if extractMode {
			err = fcmpwavToWav(path, force)
		} else {
			err = wavToFcmpwav(path, force, opts)
		}
		if err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

func wavToFcmpwav(wavPath string, force bool, opts search.Options) error {
	outPath := pathutil.TrimExt(wavPath) + ".fcmpwav"
	exists, err := osutil.Exists(outPath)
	if err != nil {
		return errors.WithStack(err)
	}
	if !force && exists {
		return errors.Errorf("output file %q already present; use -f to force overwrite", outPath)
	}

	r, err := os.Open(wavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer r.Close()

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return errors.Errorf("invalid WAV file %q", wavPath)
	}
	if err := dec.FwdToPCM(); err != nil {
		return errors.WithStack(err)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return errors.WithStack(err)
	}

	hdr := pcmHeader{
		SampleRate: uint32(dec.SampleRate),
		BitDepth:   uint8(dec.BitDepth),
		NumChans:   uint8(dec.NumChans),
		NumFrames:  uint32(len(buf.Data)),
	}
	pcm := packSamples(buf.Data, hdr.BitDepth)

	fmt.Println("compressing", wavPath)
	coded, err := fcmp.Compress(pcm, opts)
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Printf("%d PCM bytes -> %d bytes\n", len(pcm), len(coded))

	out := make([]byte, 0, headerSize+len(coded))
	out = appendHeader(out, hdr)
	out = append(out, coded...)
	return ioutil.WriteFile(outPath, out, 0o644)
}

func fcmpwavToWav(fcmpwavPath string, force bool) error {
	outPath := pathutil.TrimExt(fcmpwavPath) + ".wav"
	exists, err := osutil.Exists(outPath)
	if err != nil {
		return errors.WithStack(err)
	}
	if !force && exists {
		return errors.Errorf("output file %q already present; use -f to force overwrite", outPath)
	}

	raw, err := ioutil.ReadFile(fcmpwavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(raw) < headerSize {
		return errors.Errorf("%q is too short to contain a pcm header", fcmpwavPath)
	}
	hdr := parseHeader(raw[:headerSize])

	fmt.Println("extracting", fcmpwavPath)
	pcm, err := fcmp.Extract(raw[headerSize:])
	if err != nil {
		return errors.WithStack(err)
	}

	w, err := os.Create(outPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()

	enc := wav.NewEncoder(w, int(hdr.SampleRate), int(hdr.BitDepth), int(hdr.NumChans), 1)
	samples := unpackSamples(pcm, hdr.BitDepth)
	ibuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: int(hdr.NumChans), SampleRate: int(hdr.SampleRate)},
		Data:           samples,
		SourceBitDepth: int(hdr.BitDepth),
	}
	if err := enc.Write(ibuf); err != nil {
		return errors.WithStack(err)
	}
	return enc.Close()
}

// packSamples flattens PCM samples into their little-endian byte
// representation at the given bit depth, the byte stream fcmp actually
// compresses.
func packSamples(samples []int, bitDepth uint8) []byte {
	width := int(bitDepth) / 8
	if width == 0 {
		width = 1
	}
	out := make([]byte, len(samples)*width)
	for i, s := range samples {
		v := uint32(int32(s))
		for b := 0; b < width; b++ {
			out[i*width+b] = byte(v >> (8 * uint(b)))
		}
	}
	return out
}

// unpackSamples reverses packSamples.
func unpackSamples(pcm []byte, bitDepth uint8) []int {
	width := int(bitDepth) / 8
	if width == 0 {
		width = 1
	}
	n := len(pcm) / width
	out := make([]int, n)
	for i := 0; i < n; i++ {
		var v uint32
		for b := 0; b < width; b++ {
			v |= uint32(pcm[i*width+b]) << (8 * uint(b))
		}
		out[i] = int(int32(v))
	}
	return out
}

func appendHeader(buf []byte, hdr pcmHeader) []byte {
	var tmp [headerSize]byte
	binary.LittleEndian.PutUint32(tmp[0:4], hdr.SampleRate)
	tmp[4] = hdr.BitDepth
	tmp[5] = hdr.NumChans
	binary.LittleEndian.PutUint32(tmp[6:10], hdr.NumFrames)
	return append(buf, tmp[:]...)
}

func parseHeader(buf []byte) pcmHeader {
	return pcmHeader{
		SampleRate: binary.LittleEndian.Uint32(buf[0:4]),
		BitDepth:   buf[4],
		NumChans:   buf[5],
		NumFrames:  binary.LittleEndian.Uint32(buf[6:10]),
	}
}

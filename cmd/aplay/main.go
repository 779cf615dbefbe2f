// Command aplay plays a WAV or MP3 file through the realtime engine.
//
// Usage:
//
//	aplay [flags] file
//
// The file is decoded up front, registered as a clip and streamed
// through a source whose effect chain is assembled from the flags. A
// peak-frequency meter from the spectrum analyzer prints once per
// second while audio runs.
//
// Examples:
//
//	aplay song.wav
//	aplay -echo -reverb song.mp3
//	aplay -lowpass 800 -gain 0.5 song.wav
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/cwbudde/algo-audio/dsp/effects"
	"github.com/cwbudde/algo-audio/engine"
	"github.com/cwbudde/algo-audio/spectrum"
)

const periodFrames = 1024

func main() {
	echoOn := flag.Bool("echo", false, "add an echo to the chain")
	phaserOn := flag.Bool("phaser", false, "add a phaser to the chain")
	reverbOn := flag.Bool("reverb", false, "add a reverb to the chain")
	distortOn := flag.Bool("distort", false, "add a distortion to the chain")
	lowpass := flag.Float64("lowpass", 0, "add a lowpass filter at this cutoff in Hz")
	gain := flag.Float64("gain", 1, "source gain in [0, 4]")
	volume := flag.Float64("volume", 1, "master volume in [0, 1]")
	meter := flag.Bool("meter", true, "print a peak-frequency meter while playing")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aplay [flags] file\n\n")
		fmt.Fprintf(os.Stderr, "Plays a WAV or MP3 file through the audio engine.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), options{
		echo:    *echoOn,
		phaser:  *phaserOn,
		reverb:  *reverbOn,
		distort: *distortOn,
		lowpass: *lowpass,
		gain:    *gain,
		volume:  *volume,
		meter:   *meter,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "aplay: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	echo    bool
	phaser  bool
	reverb  bool
	distort bool
	lowpass float64
	gain    float64
	volume  float64
	meter   bool
}

// clip holds fully decoded interleaved PCM.
type clip struct {
	samples    []float32
	sampleRate int
	channels   int
}

// clipProvider streams a decoded clip from a cursor.
type clipProvider struct {
	clip   *clip
	cursor int
}

func (p *clipProvider) ReadPCM(dst []float32, frames, channels int) int {
	if channels != p.clip.channels {
		return 0
	}

	remaining := (len(p.clip.samples) - p.cursor) / channels
	if remaining <= 0 {
		return 0
	}

	n := frames
	if n > remaining {
		n = remaining
	}

	copy(dst, p.clip.samples[p.cursor:p.cursor+n*channels])
	p.cursor += n * channels

	return n
}

func run(path string, opts options) error {
	c, err := decodeFile(path)
	if err != nil {
		return err
	}

	ctx, err := engine.New()
	if err != nil {
		return err
	}
	defer ctx.Deinitialize()

	ctx.Initialize(engine.Config{
		SampleRate:   c.sampleRate,
		Channels:     c.channels,
		PeriodFrames: periodFrames,
	})

	if !ctx.Initialized() {
		return fmt.Errorf("audio device unavailable")
	}

	if err := ctx.SetMasterVolume(opts.volume); err != nil {
		return err
	}

	// The clip registry keeps the decoded data alive until the
	// context tears down.
	h := fnv.New64a()
	h.Write([]byte(path))
	hash := h.Sum64()

	ctx.RegisterClip(hash, func() { c.samples = nil })

	src, err := engine.NewSource(&clipProvider{clip: c}, engine.WithGain(opts.gain))
	if err != nil {
		return err
	}

	if err := buildChain(src.Chain(), c, opts); err != nil {
		return err
	}

	ctx.AddSource(src)
	src.Play()

	var analyzer *spectrum.Analyzer
	if opts.meter {
		analyzer, err = spectrum.NewAnalyzer(float64(c.sampleRate), 2048)
		if err != nil {
			return err
		}
	}

	frames := len(c.samples) / c.channels
	fmt.Printf("%s: %d Hz, %d ch, %.1f s\n",
		filepath.Base(path), c.sampleRate, c.channels,
		float64(frames)/float64(c.sampleRate))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var dst []float32
	for src.Playing() {
		<-ticker.C
		ctx.Update()

		if analyzer == nil {
			continue
		}

		var n int
		dst, n = ctx.ReadOutput(dst)
		if n == 0 {
			continue
		}

		if _, err := analyzer.Analyze(dst[:n], c.channels); err != nil {
			continue
		}

		peakHz, levelDB := analyzer.Peak()
		fmt.Printf("  peak %7.1f Hz  %6.1f dB\n", peakHz, levelDB)
	}

	ctx.FreeClip(hash)

	return nil
}

func buildChain(chain *engine.Chain, c *clip, opts options) error {
	sampleRate := float64(c.sampleRate)

	if opts.distort {
		chain.Add(effects.NewDistortion())
	}

	if opts.lowpass > 0 {
		f, err := effects.NewFilter(sampleRate, c.channels)
		if err != nil {
			return err
		}

		if err := f.SetCutoffHz(opts.lowpass); err != nil {
			return err
		}

		chain.Add(f)
	}

	if opts.phaser {
		p, err := effects.NewPhaser(sampleRate)
		if err != nil {
			return err
		}

		chain.Add(p)
	}

	if opts.echo {
		e, err := effects.NewEcho(sampleRate, c.channels)
		if err != nil {
			return err
		}

		chain.Add(e)
	}

	if opts.reverb {
		r, err := effects.NewReverb(sampleRate, c.channels)
		if err != nil {
			return err
		}

		chain.Add(r)
	}

	return nil
}

func decodeFile(path string) (*clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

func decodeWAV(f *os.File) (*clip, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	return clipFromIntBuffer(buf, int(dec.BitDepth))
}

func clipFromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) (*clip, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("wav file carries no format")
	}

	var maxVal float32
	switch bitDepth {
	case 8:
		maxVal = 128
	case 16:
		maxVal = 32768
	case 24:
		maxVal = 8388608
	case 32:
		maxVal = 2147483648
	default:
		maxVal = 32768
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / maxVal
	}

	return &clip{
		samples:    samples,
		sampleRate: buf.Format.SampleRate,
		channels:   buf.Format.NumChannels,
	}, nil
}

func decodeMP3(f *os.File) (*clip, error) {
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 pcm: %w", err)
	}

	// go-mp3 emits 16-bit little-endian stereo.
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}

	return &clip{
		samples:    samples,
		sampleRate: dec.SampleRate(),
		channels:   2,
	}, nil
}

package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// output is where decoded sounds go. The default is the system speaker.
type output struct {
	init  func(sr beep.SampleRate, bufferSize int) error
	play  func(s ...beep.Streamer)
	close func()
}

var speakerOutput = output{
	init:  speaker.Init,
	play:  speaker.Play,
	close: speaker.Close,
}

// Player decodes, caches and plays sound files.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger
	out    output

	// Volume control (0.0 to 1.0)
	volume float64

	initialized bool
	sampleRate  beep.SampleRate

	cacheMu sync.RWMutex
	cache   map[string]*beep.Buffer
}

// NewPlayer creates a new audio player.
func NewPlayer(logger *slog.Logger) *Player {
	return newPlayer(logger, speakerOutput)
}

func newPlayer(logger *slog.Logger, out output) *Player {
	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		logger:     logger,
		out:        out,
		volume:     1.0,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*beep.Buffer),
	}
}

// SetVolume sets the playback volume, clamped to 0.0-1.0.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = math.Max(0, math.Min(1, volume))
	p.logger.Debug("volume set", "volume", p.volume)
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play plays a sound file, decoding it on first use.
// Supports WAV, OGG, and MP3 formats.
func (p *Player) Play(path string) error {
	if path == "" {
		return nil
	}

	buffer, err := p.buffer(path)
	if err != nil {
		p.logger.Warn("failed to load sound", "path", path, "error", err)
		return err
	}
	p.playBuffer(buffer)
	return nil
}

// Preload decodes a sound file into the cache.
func (p *Player) Preload(path string) error {
	if path == "" {
		return nil
	}
	if _, err := p.buffer(path); err != nil {
		return err
	}
	p.logger.Debug("preloaded sound", "path", path)
	return nil
}

// Cached reports whether path is decoded and cached.
func (p *Player) Cached(path string) bool {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	_, ok := p.cache[path]
	return ok
}

// buffer returns the cached sound for path, loading it if needed.
func (p *Player) buffer(path string) (*beep.Buffer, error) {
	p.cacheMu.RLock()
	buffer, ok := p.cache[path]
	p.cacheMu.RUnlock()
	if ok {
		return buffer, nil
	}

	buffer, err := p.loadSound(path)
	if err != nil {
		return nil, err
	}

	p.cacheMu.Lock()
	p.cache[path] = buffer
	p.cacheMu.Unlock()
	return buffer, nil
}

func (p *Player) loadSound(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	if err := p.ensureInitialized(format.SampleRate); err != nil {
		return nil, err
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	return buffer, nil
}

func (p *Player) ensureInitialized(sampleRate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	bufferSize := sampleRate.N(100 * time.Millisecond)
	if err := p.out.init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

func (p *Player) playBuffer(buffer *beep.Buffer) {
	p.mu.Lock()
	volume := p.volume
	sampleRate := p.sampleRate
	p.mu.Unlock()

	var streamer beep.Streamer = buffer.Streamer(0, buffer.Len())

	if buffer.Format().SampleRate != sampleRate {
		streamer = beep.Resample(4, buffer.Format().SampleRate, sampleRate, streamer)
	}

	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeToDecibels(volume),
			Silent:   volume == 0,
		}
	}

	p.out.play(streamer)
}

// Invalidate drops path from the cache.
func (p *Player) Invalidate(path string) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	delete(p.cache, path)
}

// ClearCache drops every cached sound.
func (p *Player) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache = make(map[string]*beep.Buffer)
}

// Close stops playback and releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	if p.initialized {
		p.out.close()
		p.initialized = false
	}
	p.mu.Unlock()

	p.ClearCache()
	p.logger.Debug("audio player closed")
}

// volumeToDecibels converts a linear volume (0-1) to decibels:
// 0.5 is about -6dB, 0.25 about -12dB.
func volumeToDecibels(volume float64) float64 {
	if volume <= 0 {
		return -100
	}
	return 20 * math.Log10(volume)
}

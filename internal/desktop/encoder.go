package desktop

import (
	"errors"
	"fmt"
	"sync"
)

type Codec string

const (
	CodecVP8 Codec = "vp8"
	CodecVP9 Codec = "vp9"
)

type QualityPreset string

const (
	QualityAuto   QualityPreset = "auto"
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
	QualityUltra  QualityPreset = "ultra"
)

var (
	ErrInvalidCodec   = errors.New("invalid codec")
	ErrInvalidQuality = errors.New("invalid quality preset")
	ErrInvalidBitrate = errors.New("invalid bitrate")
	ErrInvalidFPS     = errors.New("invalid fps")
)

type EncoderConfig struct {
	Codec   Codec
	Quality QualityPreset
	Bitrate int // kbps
	FPS     int
	Width   int
	Height  int
}

func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Codec:   CodecVP8,
		Quality: QualityAuto,
		Bitrate: 2500,
		FPS:     30,
	}
}

// encoderBackend is implemented by a concrete codec binding. encoderVPX
// (encoder_vpx.go) is the only production backend; NewVideoEncoder
// constructs it directly via newEncoderVPX.
type encoderBackend interface {
	Encode(planes I420Planes, forceKeyframe bool) ([]byte, error)
	SetCodec(codec Codec) error
	SetQuality(quality QualityPreset) error
	SetBitrate(kbps int) error
	SetFPS(fps int) error
	SetDimensions(width, height int) error
	Close() error
	Name() string
}

type VideoEncoder struct {
	mu      sync.Mutex
	cfg     EncoderConfig
	backend encoderBackend
}

func NewVideoEncoder(cfg EncoderConfig) (*VideoEncoder, error) {
	cfg = applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	backend, err := newEncoderVPX(cfg)
	if err != nil {
		return nil, err
	}

	return &VideoEncoder{cfg: cfg, backend: backend}, nil
}

func (v *VideoEncoder) Encode(planes I420Planes, forceKeyframe bool) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return nil, errors.New("encoder not initialized")
	}
	return v.backend.Encode(planes, forceKeyframe)
}

func (v *VideoEncoder) SetCodec(codec Codec) error {
	if !codec.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidCodec, codec)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.SetCodec(codec); err != nil {
		return err
	}
	v.cfg.Codec = codec
	return nil
}

func (v *VideoEncoder) SetQuality(quality QualityPreset) error {
	if !quality.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidQuality, quality)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.SetQuality(quality); err != nil {
		return err
	}
	v.cfg.Quality = quality
	return nil
}

// SetBitrate satisfies BitrateSetter so a CongestionGovernor can drive the
// encoder directly. kbps must be positive.
func (v *VideoEncoder) SetBitrate(kbps int) error {
	if kbps <= 0 {
		return ErrInvalidBitrate
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.SetBitrate(kbps); err != nil {
		return err
	}
	v.cfg.Bitrate = kbps
	return nil
}

func (v *VideoEncoder) SetFPS(fps int) error {
	if fps <= 0 {
		return ErrInvalidFPS
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.SetFPS(fps); err != nil {
		return err
	}
	v.cfg.FPS = fps
	return nil
}

func (v *VideoEncoder) SetDimensions(width, height int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cfg.Width = width
	v.cfg.Height = height
	return v.backend.SetDimensions(width, height)
}

func (v *VideoEncoder) Close() error {
	v.mu.Lock()
	backend := v.backend
	v.backend = nil
	v.mu.Unlock()
	if backend == nil {
		return nil
	}
	return backend.Close()
}

// CurrentCodec returns the codec currently active on the encoder.
func (v *VideoEncoder) CurrentCodec() Codec {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg.Codec
}

func (v *VideoEncoder) BackendName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return ""
	}
	return v.backend.Name()
}

func (c Codec) valid() bool {
	switch c {
	case CodecVP8, CodecVP9:
		return true
	default:
		return false
	}
}

func (q QualityPreset) valid() bool {
	switch q {
	case QualityAuto, QualityLow, QualityMedium, QualityHigh, QualityUltra:
		return true
	default:
		return false
	}
}

func applyDefaults(cfg EncoderConfig) EncoderConfig {
	defaults := DefaultEncoderConfig()
	if cfg.Codec == "" {
		cfg.Codec = defaults.Codec
	}
	if cfg.Quality == "" {
		cfg.Quality = defaults.Quality
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = defaults.Bitrate
	}
	if cfg.FPS == 0 {
		cfg.FPS = defaults.FPS
	}
	return cfg
}

func validateConfig(cfg EncoderConfig) error {
	if !cfg.Codec.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidCodec, cfg.Codec)
	}
	if !cfg.Quality.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidQuality, cfg.Quality)
	}
	if cfg.Bitrate <= 0 {
		return ErrInvalidBitrate
	}
	if cfg.FPS <= 0 {
		return ErrInvalidFPS
	}
	return nil
}

package desktop

import (
	"fmt"
	"sync"

	"github.com/Azunyan1111/libvpx-go/vpx"
)

// encoderVPX wraps libvpx's VP8/VP9 encoder. It is the only encoderBackend
// implementation: this pipeline targets software VP8/VP9 output only, with
// no hardware codec path (MFT, NVENC, VideoToolbox).
type encoderVPX struct {
	mu     sync.Mutex
	codec  vpx.CodecCtx
	iface  *vpx.CodecIface
	cfg    *vpx.CodecEncCfg
	which  Codec
	width  int
	height int
	frame  int64
}

func newEncoderVPX(cfg EncoderConfig) (encoderBackend, error) {
	e := &encoderVPX{which: cfg.Codec}
	if err := e.init(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

func ifaceFor(codec Codec) *vpx.CodecIface {
	if codec == CodecVP9 {
		return vpx.EncoderIfaceVP9()
	}
	return vpx.EncoderIfaceVP8()
}

func (e *encoderVPX) init(cfg EncoderConfig) error {
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}

	iface := ifaceFor(cfg.Codec)
	encCfg := vpx.NewCodecEncCfg()
	if err := vpx.Error(vpx.CodecEncConfigDefault(iface, encCfg, 0)); err != nil {
		return fmt.Errorf("vpx: default config: %w", err)
	}

	encCfg.GW = uint32(width)
	encCfg.GH = uint32(height)
	encCfg.RcTargetBitrate = uint32(cfg.Bitrate)
	encCfg.GTimebase.Num = 1
	encCfg.GTimebase.Den = uint32(cfg.FPS)
	applyQualityRCParams(encCfg, cfg.Quality)

	if err := vpx.Error(vpx.CodecEncInitVer(&e.codec, iface, encCfg, 0, vpx.EncoderABIVersion)); err != nil {
		return fmt.Errorf("vpx: init: %w", err)
	}

	e.iface = iface
	e.cfg = encCfg
	e.width = width
	e.height = height
	return nil
}

// applyQualityRCParams maps a QualityPreset onto libvpx's CQ-level/min-max
// quantizer knobs. Auto leaves the library defaults from
// CodecEncConfigDefault untouched.
func applyQualityRCParams(cfg *vpx.CodecEncCfg, quality QualityPreset) {
	switch quality {
	case QualityLow:
		cfg.RcMinQuantizer, cfg.RcMaxQuantizer = 20, 56
	case QualityMedium:
		cfg.RcMinQuantizer, cfg.RcMaxQuantizer = 10, 42
	case QualityHigh:
		cfg.RcMinQuantizer, cfg.RcMaxQuantizer = 4, 32
	case QualityUltra:
		cfg.RcMinQuantizer, cfg.RcMaxQuantizer = 0, 24
	}
}

func (e *encoderVPX) Encode(planes I420Planes, forceKeyframe bool) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	img := vpx.ImageAlloc(nil, vpx.ImgFmtI420, uint32(e.width), uint32(e.height), 1)
	copyPlane(img.Planes[0], planes.Y, e.width, e.height, int(img.Stride[0]), planes.YStride)
	copyPlane(img.Planes[1], planes.U, (e.width+1)/2, (e.height+1)/2, int(img.Stride[1]), planes.UVStride)
	copyPlane(img.Planes[2], planes.V, (e.width+1)/2, (e.height+1)/2, int(img.Stride[2]), planes.UVStride)

	flags := vpx.CodecFlags(0)
	if forceKeyframe {
		flags = vpx.EFlagForceKF
	}

	e.frame++
	if err := vpx.Error(vpx.CodecEncode(&e.codec, img, vpx.CodecPts(e.frame), 1, flags, vpx.EncoderDeadlineRealtime)); err != nil {
		return nil, fmt.Errorf("vpx: encode: %w", err)
	}

	var iter vpx.CodecIter
	var out []byte
	for {
		pkt := vpx.CodecGetCxData(&e.codec, &iter)
		if pkt == nil {
			break
		}
		if pkt.Kind == vpx.CodecCxFramePkt {
			out = append(out, pkt.Data()...)
		}
	}
	return out, nil
}

func copyPlane(dst, src []byte, width, height, dstStride, srcStride int) {
	for y := 0; y < height; y++ {
		copy(dst[y*dstStride:y*dstStride+width], src[y*srcStride:y*srcStride+width])
	}
}

func (e *encoderVPX) SetCodec(codec Codec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if codec == e.which {
		return nil
	}
	vpx.CodecDestroy(&e.codec)
	cfg := EncoderConfig{Codec: codec, Width: e.width, Height: e.height, Bitrate: int(e.cfg.RcTargetBitrate), FPS: int(e.cfg.GTimebase.Den)}
	e.which = codec
	return e.init(cfg)
}

func (e *encoderVPX) SetQuality(quality QualityPreset) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	applyQualityRCParams(e.cfg, quality)
	return vpx.Error(vpx.CodecEncConfigSet(&e.codec, e.cfg))
}

func (e *encoderVPX) SetBitrate(kbps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.RcTargetBitrate = uint32(kbps)
	return vpx.Error(vpx.CodecEncConfigSet(&e.codec, e.cfg))
}

func (e *encoderVPX) SetFPS(fps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.GTimebase.Den = uint32(fps)
	return vpx.Error(vpx.CodecEncConfigSet(&e.codec, e.cfg))
}

func (e *encoderVPX) SetDimensions(width, height int) error {
	e.mu.Lock()
	bitrate := int(e.cfg.RcTargetBitrate)
	fps := int(e.cfg.GTimebase.Den)
	codec := e.which
	e.mu.Unlock()

	if err := e.Close(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.init(EncoderConfig{Codec: codec, Width: width, Height: height, Bitrate: bitrate, FPS: fps})
}

func (e *encoderVPX) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return vpx.Error(vpx.CodecDestroy(&e.codec))
}

func (e *encoderVPX) Name() string {
	return string(e.which) + "/libvpx"
}

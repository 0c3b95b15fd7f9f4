package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/aretw0/nkas/pkg/domain"
)

// ScreenshotMethod selects how frames are captured.
type ScreenshotMethod string

const (
	// ScreenshotPNG captures with "screencap -p". Slower on the device, smaller on the wire.
	ScreenshotPNG ScreenshotMethod = "png"
	// ScreenshotRaw captures the raw framebuffer dump of "screencap".
	ScreenshotRaw ScreenshotMethod = "raw"
)

// Android PixelFormat values found in screencap headers.
const (
	pixelRGBA8888 = 1
	pixelRGBX8888 = 2
	pixelBGRA8888 = 5
)

// DecodePNG converts PNG data to an RGB frame.
func DecodePNG(data []byte) (*domain.Frame, error) {
	if len(data) == 0 {
		return nil, domain.NewFailure(domain.Protocol, "screenshot", fmt.Errorf("%w: empty png", domain.ErrImageTruncated))
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewFailure(domain.Protocol, "screenshot", fmt.Errorf("%w: %v", domain.ErrImageTruncated, err))
	}
	return fromImage(img), nil
}

// DecodeRaw converts a "screencap" framebuffer dump to an RGB frame. The dump starts with a
// little-endian header of width, height and pixel format, followed by a color space word on
// Android 9 and later.
func DecodeRaw(data []byte) (*domain.Frame, error) {
	if len(data) < 12 {
		return nil, rawError("header is %d bytes", len(data))
	}
	w := int(binary.LittleEndian.Uint32(data[0:4]))
	h := int(binary.LittleEndian.Uint32(data[4:8]))
	format := binary.LittleEndian.Uint32(data[8:12])
	if w <= 0 || h <= 0 || w > 1<<14 || h > 1<<14 {
		return nil, rawError("bad dimensions %dx%d", w, h)
	}

	size := w * h * 4
	var pix []byte
	switch {
	case len(data) == 12+size:
		pix = data[12:]
	case len(data) >= 16+size:
		pix = data[16 : 16+size]
	default:
		return nil, rawError("%dx%d needs %d pixel bytes, got %d", w, h, size, len(data)-12)
	}

	f := domain.NewFrame(w, h)
	for i, j := 0, 0; i < size; i, j = i+4, j+3 {
		switch format {
		case pixelRGBA8888, pixelRGBX8888:
			f.Pix[j], f.Pix[j+1], f.Pix[j+2] = pix[i], pix[i+1], pix[i+2]
		case pixelBGRA8888:
			f.Pix[j], f.Pix[j+1], f.Pix[j+2] = pix[i+2], pix[i+1], pix[i]
		default:
			return nil, domain.NewFailure(domain.Protocol, "screenshot", fmt.Errorf("unsupported pixel format %d", format))
		}
	}
	return f, nil
}

func rawError(format string, args ...any) error {
	return domain.NewFailure(domain.Protocol, "screenshot",
		fmt.Errorf("%w: "+format, append([]any{domain.ErrImageTruncated}, args...)...))
}

func fromImage(img image.Image) *domain.Frame {
	b := img.Bounds()
	f := domain.NewFrame(b.Dx(), b.Dy())
	if rgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < f.Height; y++ {
			row := rgba.Pix[y*rgba.Stride:]
			for x := 0; x < f.Width; x++ {
				f.Set(x, y, row[x*4], row[x*4+1], row[x*4+2])
			}
		}
		return f
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return f
}

// EncodePNG writes f as an opaque PNG.
func EncodePNG(w io.Writer, f *domain.Frame) error {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = f.Pix[i], f.Pix[i+1], f.Pix[i+2], 0xff
	}
	return png.Encode(w, img)
}

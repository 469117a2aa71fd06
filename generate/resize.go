package generate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	// registered decoders for provider output and uploads
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/gift"
	_ "golang.org/x/image/webp"
)

const (
	MaxOutputWidth  = 2048
	MaxOutputHeight = 2048
	JPEGQuality     = 92
	OutputMIMEType  = "image/jpeg"
	OutputExtension = ".jpg"
)

func processImage(src image.Image, filters []gift.Filter) image.Image {
	g := gift.New(filters...)
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	// JPEG has no alpha channel
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	g.DrawAt(dst, src, dst.Bounds().Min, gift.OverOperator)
	return dst
}

func encodeImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ResizeAndEncode decodes a generated image, shrinks it to fit inside 2048x2048 and re-encodes
// it as JPEG.
func ResizeAndEncode(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// ResizeToFit keeps images that already fit at their own size
	return encodeImage(processImage(src, []gift.Filter{
		gift.ResizeToFit(MaxOutputWidth, MaxOutputHeight, gift.LanczosResampling),
	}))
}

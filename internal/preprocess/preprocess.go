// Package preprocess turns an image file into the float32 tensor the
// classifier consumes.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/ingredient-classifier/internal/config"
)

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

type Options struct {
	Size          int
	Layout        string
	Interpolation string
}

// LoadFile reads and decodes the image at path. The content type is sniffed
// from the bytes, so the file extension does not matter.
func LoadFile(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	mime := mimetype.Detect(data)
	if !supportedTypes[mime.String()] {
		return nil, "", fmt.Errorf("unsupported image type %s", mime.String())
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s image: %w", mime.String(), err)
	}
	return img, format, nil
}

// Tensor resizes img to a Size x Size RGB square and scales each channel to
// [0,1]. NHWC keeps the channels interleaved per pixel; NCHW stores one
// plane per channel.
func Tensor(img image.Image, opts Options) ([]float32, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %d", opts.Size)
	}
	if opts.Layout != config.LayoutNHWC && opts.Layout != config.LayoutNCHW {
		return nil, fmt.Errorf("unknown layout %q", opts.Layout)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	resized, err := scale(img, opts.Size, opts.Interpolation)
	if err != nil {
		return nil, err
	}

	bounds = resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	channels := 3
	inputData := make([]float32, channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)

			rNorm := float32(c.R) / 255.0
			gNorm := float32(c.G) / 255.0
			bNorm := float32(c.B) / 255.0

			pixelIndex := y*width + x
			if opts.Layout == config.LayoutNCHW {
				inputData[pixelIndex] = rNorm
				inputData[plane+pixelIndex] = gNorm
				inputData[2*plane+pixelIndex] = bNorm
				continue
			}
			inputData[pixelIndex*channels] = rNorm
			inputData[pixelIndex*channels+1] = gNorm
			inputData[pixelIndex*channels+2] = bNorm
		}
	}

	return inputData, nil
}

// scale resamples img to size x size. Nearest takes exactly one source
// pixel per output pixel.
func scale(img image.Image, size int, name string) (image.Image, error) {
	var interp resize.InterpolationFunction
	switch name {
	case config.InterpolationNearest:
	case config.InterpolationBilinear:
		interp = resize.Bilinear
	case config.InterpolationLanczos3:
		interp = resize.Lanczos3
	default:
		return nil, fmt.Errorf("unknown interpolation %q", name)
	}

	bounds := img.Bounds()
	if bounds.Dx() == size && bounds.Dy() == size {
		return img, nil
	}

	if name == config.InterpolationNearest {
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		draw.NearestNeighbor.Scale(dst, dst.Rect, img, bounds, draw.Src, nil)
		return dst, nil
	}
	return resize.Resize(uint(size), uint(size), img, interp), nil
}

package encoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used for the payload sent to the API
const DefaultQuality = 95

var (
	// ErrFileNotFound is returned when the image path does not exist
	ErrFileNotFound = errors.New("file not found")
	// ErrImageDecode is returned when the file is not a supported image
	ErrImageDecode = errors.New("cannot decode image")
)

// Config holds configuration for the encoder
type Config struct {
	// Quality is the JPEG quality (1-100)
	Quality int
	// MaxDim limits the long side in pixels, 0 keeps the original size
	MaxDim int
}

// Encoder turns images into base64 JPEG payloads
type Encoder struct {
	config Config
}

// New creates an Encoder with quality 95 and no resizing
func New() *Encoder {
	return &Encoder{config: Config{Quality: DefaultQuality}}
}

// NewWithConfig creates an Encoder with custom configuration.
// An out of range quality falls back to DefaultQuality.
func NewWithConfig(config Config) *Encoder {
	if config.Quality < 1 || config.Quality > 100 {
		config.Quality = DefaultQuality
	}
	if config.MaxDim < 0 {
		config.MaxDim = 0
	}
	return &Encoder{config: config}
}

// Quality returns the JPEG quality in use
func (e *Encoder) Quality() int {
	return e.config.Quality
}

// LoadImage loads an image from a file path with WebP support
func (e *Encoder) LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrImageDecode, path, err)
	}
	return img, nil
}

// LoadImageFromReader loads an image from an io.Reader
func (e *Encoder) LoadImageFromReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, nil
}

// EncodeFile loads the image at path and returns its base64 JPEG payload
func (e *Encoder) EncodeFile(path string) (string, error) {
	img, err := e.LoadImage(path)
	if err != nil {
		return "", err
	}
	return e.EncodeImage(img)
}

// EncodeReader decodes an image from r and returns its base64 JPEG payload
func (e *Encoder) EncodeReader(r io.Reader) (string, error) {
	img, err := e.LoadImageFromReader(r)
	if err != nil {
		return "", err
	}
	return e.EncodeImage(img)
}

// EncodeImage flattens img to opaque RGB, re-encodes it as JPEG and
// returns the bytes as standard base64.
func (e *Encoder) EncodeImage(img image.Image) (string, error) {
	if e.config.MaxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > e.config.MaxDim || h > e.config.MaxDim {
			if w >= h {
				img = imaging.Resize(img, e.config.MaxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, e.config.MaxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Flatten(img), imaging.JPEG, imaging.JPEGQuality(e.config.Quality)); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Flatten drops the alpha channel. Colour values are kept as stored
// (non-premultiplied) and every pixel becomes fully opaque, so transparent
// regions show whatever colour they carried. Paletted images are expanded.
func Flatten(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func decode(r io.ReadSeeker) (image.Image, error) {
	// imaging.Decode covers the registered decoders (jpeg, png, gif, bmp, tiff, webp)
	img, err := imaging.Decode(r)
	if err == nil {
		return img, nil
	}
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, err
	}
	if wimg, werr := webp.Decode(r); werr == nil {
		return wimg, nil
	}
	return nil, err
}

package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/tiff"

	"markestedt/pasteimagepath/platform"
)

// ErrNoImage means neither PNG nor TIFF data is on the clipboard
var ErrNoImage = errors.New("no image on clipboard")

// DecodeError reports image bytes that could not be decoded
type DecodeError struct {
	Type platform.ContentType
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type decoder func([]byte) (image.Image, error)

// imageTypes is the lookup order for image payloads
var imageTypes = []struct {
	typ    platform.ContentType
	decode decoder
}{
	{platform.TypePNG, func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) }},
	{platform.TypeTIFF, func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) }},
}

// ReadImage decodes the first image found on cb, trying PNG before TIFF
func ReadImage(cb platform.Clipboard) (image.Image, platform.ContentType, error) {
	for _, it := range imageTypes {
		data, err := cb.Data(it.typ)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", it.typ, err)
		}
		if len(data) == 0 {
			continue
		}

		img, err := it.decode(data)
		if err != nil {
			return nil, it.typ, &DecodeError{Type: it.typ, Err: err}
		}
		return img, it.typ, nil
	}
	return nil, "", ErrNoImage
}

package materialize

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	// Register decoders for the formats attachments commonly arrive in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// normalizeImage decodes src, applies the EXIF orientation so the pixel
// data is upright, and writes the result to dest as PNG. PNG carries no
// orientation tag, so downstream viewers cannot double-rotate.
func normalizeImage(src, dest string) error {
	f, err := openNoFollow(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	img = applyOrientation(img, readOrientation(src))

	if err := imaging.Save(img, dest); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// readOrientation returns the EXIF orientation value (1-8), or 1 when
// the file has no usable EXIF data.
func readOrientation(path string) int {
	f, err := openNoFollow(path)
	if err != nil {
		return 1
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	return orientationFromTag(tag)
}

func orientationFromTag(tag *tiff.Tag) int {
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// applyOrientation transforms img per the standard 8-value EXIF
// orientation enumeration. imaging's rotations are counter-clockwise.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

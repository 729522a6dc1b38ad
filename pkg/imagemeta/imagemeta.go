// Package imagemeta reads camera metadata out of mirrored images and
// derives per-pixel ground geometry from it. It layers on mirror.Path:
// parsing pulls the image into the mirror first when no local copy exists.
//
// Camera identity, location, and focal length come from the EXIF block.
// Pose angles and the altitude above ground come from the XMP packet,
// where drone vendors record them.
package imagemeta

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/mirrorkit/s3mirror/pkg/mirror"

	_ "golang.org/x/image/tiff"
	_ "image/jpeg"
	_ "image/png"
)

var (
	// ErrNoRotation indicates the image metadata carries no pose angles.
	ErrNoRotation = errors.New("imagemeta: no rotation angles in the image metadata")
	// ErrNoFocalLength indicates the focal length could not be determined
	// in pixels.
	ErrNoFocalLength = errors.New("imagemeta: no focal length in the image metadata")
	// ErrNoAltitude indicates the image metadata carries no altitude above
	// ground.
	ErrNoAltitude = errors.New("imagemeta: no altitude in the image metadata")
)

// Euler holds pose angles in degrees. Zero pitch points the camera
// straight down.
type Euler struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Coordinates holds a position in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Metadata is the camera and pose data parsed from one mirrored image.
// Pointer fields are nil when the image does not carry them.
type Metadata struct {
	Path   mirror.Path
	Name   string // terminal key segment without its extension
	Width  int
	Height int
	Make   string
	Model  string

	Location    *Coordinates
	Rotation    *Euler
	FocalLength *float64 // pixels
	Altitude    *float64 // meters above ground
}

// Parse mirrors the image when no local copy exists, then reads its
// dimensions, camera identity, and pose metadata.
func Parse(ctx context.Context, p mirror.Path) (*Metadata, error) {
	if err := p.DownloadToMirror(ctx, false); err != nil {
		return nil, err
	}
	f, err := p.Open()
	if err != nil {
		return nil, fmt.Errorf("imagemeta: opening %q: %w", p.Key(), err)
	}
	defer f.Close()

	meta := &Metadata{
		Path: p,
		Name: strings.TrimSuffix(p.Name(), filepath.Ext(p.Name())),
	}

	config, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("imagemeta: decoding dimensions of %q: %w", p.Key(), err)
	}
	meta.Width = config.Width
	meta.Height = config.Height

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("imagemeta: rewinding %q: %w", p.Key(), err)
	}
	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imagemeta: reading exif from %q: %w", p.Key(), err)
	}
	meta.Make = stringField(x, exif.Make)
	meta.Model = stringField(x, exif.Model)
	if lat, lon, err := x.LatLong(); err == nil {
		meta.Location = &Coordinates{Latitude: lat, Longitude: lon}
	}
	if focal, ok := focalLengthPixels(x); ok {
		meta.FocalLength = &focal
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("imagemeta: rewinding %q: %w", p.Key(), err)
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("imagemeta: reading %q: %w", p.Key(), err)
	}
	fields := scanXMP(raw)
	meta.Altitude = fields.altitude
	meta.Rotation = fields.rotation

	return meta, nil
}

// GSDAt parses the image's metadata and returns the ground sample distance
// in millimeters at the given pixel.
func GSDAt(ctx context.Context, p mirror.Path, x, y float64) (float64, error) {
	meta, err := Parse(ctx, p)
	if err != nil {
		return 0, err
	}
	return meta.GSD(x, y)
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// focalLengthPixels converts the EXIF focal length in millimeters to
// pixels through the focal plane resolution, when both are present.
func focalLengthPixels(x *exif.Exif) (float64, bool) {
	focalMM, ok := ratField(x, exif.FocalLength)
	if !ok || focalMM <= 0 {
		return 0, false
	}
	res, ok := ratField(x, exif.FocalPlaneXResolution)
	if !ok || res <= 0 {
		return 0, false
	}
	unitMM, ok := resolutionUnitMM(x)
	if !ok {
		return 0, false
	}
	return focalMM * res / unitMM, true
}

func ratField(x *exif.Exif, name exif.FieldName) (float64, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

// resolutionUnitMM maps the EXIF focal plane resolution unit to
// millimeters per unit.
func resolutionUnitMM(x *exif.Exif) (float64, bool) {
	tag, err := x.Get(exif.FocalPlaneResolutionUnit)
	if err != nil {
		return 0, false
	}
	unit, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	switch unit {
	case 2:
		return 25.4, true // inches
	case 3:
		return 10, true // centimeters
	case 4:
		return 1, true // millimeters
	default:
		return 0, false
	}
}

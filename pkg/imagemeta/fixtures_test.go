package imagemeta

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"
)

// EXIF tag ids used by the fixtures.
const (
	tagMake                     = 0x010F
	tagModel                    = 0x0110
	tagExifIFD                  = 0x8769
	tagGPSIFD                   = 0x8825
	tagFocalLength              = 0x920A
	tagFocalPlaneXResolution    = 0xA20E
	tagFocalPlaneResolutionUnit = 0xA210

	tagGPSLatitudeRef  = 0x0001
	tagGPSLatitude     = 0x0002
	tagGPSLongitudeRef = 0x0003
	tagGPSLongitude    = 0x0004
)

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func asciiEntry(tag uint16, s string) tiffEntry {
	value := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: 2, count: uint32(len(value)), value: value}
}

func shortEntry(tag uint16, v uint16) tiffEntry {
	value := make([]byte, 2)
	binary.LittleEndian.PutUint16(value, v)
	return tiffEntry{tag: tag, typ: 3, count: 1, value: value}
}

func longEntry(tag uint16, v uint32) tiffEntry {
	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, v)
	return tiffEntry{tag: tag, typ: 4, count: 1, value: value}
}

// rationalEntry takes numerator, denominator pairs.
func rationalEntry(tag uint16, rats ...uint32) tiffEntry {
	value := make([]byte, 4*len(rats))
	for i, r := range rats {
		binary.LittleEndian.PutUint32(value[4*i:], r)
	}
	return tiffEntry{tag: tag, typ: 5, count: uint32(len(rats) / 2), value: value}
}

// buildTIFF assembles a little-endian TIFF stream the way cameras lay EXIF
// out: the main IFD first, optional Exif and GPS sub-IFDs reached through
// pointer tags, and an out-of-line value area at the end. Values longer
// than four bytes go to the value area; shorter ones are inlined.
func buildTIFF(main, exifSub, gpsSub []tiffEntry) []byte {
	const headerSize = 8
	ifdSize := func(entries []tiffEntry) uint32 { return uint32(2 + 12*len(entries) + 4) }

	if exifSub != nil {
		main = append(main, longEntry(tagExifIFD, 0))
	}
	if gpsSub != nil {
		main = append(main, longEntry(tagGPSIFD, 0))
	}

	ifds := [][]tiffEntry{main}
	offsets := []uint32{headerSize}
	if exifSub != nil {
		offsets = append(offsets, offsets[len(offsets)-1]+ifdSize(ifds[len(ifds)-1]))
		ifds = append(ifds, exifSub)
	}
	if gpsSub != nil {
		offsets = append(offsets, offsets[len(offsets)-1]+ifdSize(ifds[len(ifds)-1]))
		ifds = append(ifds, gpsSub)
	}

	next := 1
	for i := range main {
		if main[i].tag == tagExifIFD || main[i].tag == tagGPSIFD {
			binary.LittleEndian.PutUint32(main[i].value, offsets[next])
			next++
		}
	}

	dataStart := offsets[len(offsets)-1] + ifdSize(ifds[len(ifds)-1])

	var out bytes.Buffer
	out.WriteString("II")
	binary.Write(&out, binary.LittleEndian, uint16(0x2A))
	binary.Write(&out, binary.LittleEndian, uint32(headerSize))

	var data bytes.Buffer
	for _, entries := range ifds {
		binary.Write(&out, binary.LittleEndian, uint16(len(entries)))
		for _, e := range entries {
			binary.Write(&out, binary.LittleEndian, e.tag)
			binary.Write(&out, binary.LittleEndian, e.typ)
			binary.Write(&out, binary.LittleEndian, e.count)
			if len(e.value) <= 4 {
				padded := make([]byte, 4)
				copy(padded, e.value)
				out.Write(padded)
			} else {
				binary.Write(&out, binary.LittleEndian, dataStart+uint32(data.Len()))
				data.Write(e.value)
			}
		}
		binary.Write(&out, binary.LittleEndian, uint32(0))
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

// droneEXIF is the EXIF block of the fixture camera: DJI FC6310, 10mm
// focal length, 4000 px/cm focal plane resolution (so 4000 px focal
// length), positioned over San Francisco.
func droneEXIF() []byte {
	main := []tiffEntry{
		asciiEntry(tagMake, "DJI"),
		asciiEntry(tagModel, "FC6310"),
	}
	exifSub := []tiffEntry{
		rationalEntry(tagFocalLength, 10, 1),
		rationalEntry(tagFocalPlaneXResolution, 4000, 1),
		shortEntry(tagFocalPlaneResolutionUnit, 3),
	}
	gpsSub := []tiffEntry{
		asciiEntry(tagGPSLatitudeRef, "N"),
		rationalEntry(tagGPSLatitude, 37, 1, 46, 1, 2964, 100),
		asciiEntry(tagGPSLongitudeRef, "W"),
		rationalEntry(tagGPSLongitude, 122, 1, 25, 1, 984, 100),
	}
	return buildTIFF(main, exifSub, gpsSub)
}

const droneXMP = `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description xmlns:drone-dji="http://www.dji.com/drone-dji/1.0/" drone-dji:RelativeAltitude="+30.00" drone-dji:GimbalRollDegree="+0.00" drone-dji:GimbalPitchDegree="-90.00" drone-dji:GimbalYawDegree="+12.30"/></rdf:RDF></x:xmpmeta>`

// buildJPEG encodes a gray image of the given size and splices the EXIF
// and XMP payloads in as APP1 segments right after the start-of-image
// marker, the way cameras write them.
func buildJPEG(t *testing.T, width, height int, exifTIFF []byte, xmp string) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	var encoded bytes.Buffer
	require.NoError(t, jpeg.Encode(&encoded, img, nil))
	raw := encoded.Bytes()

	var out bytes.Buffer
	out.Write(raw[:2])
	if exifTIFF != nil {
		writeApp1(&out, append([]byte("Exif\x00\x00"), exifTIFF...))
	}
	if xmp != "" {
		writeApp1(&out, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), xmp...))
	}
	out.Write(raw[2:])
	return out.Bytes()
}

func writeApp1(out *bytes.Buffer, payload []byte) {
	out.Write([]byte{0xFF, 0xE1})
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(payload)+2))
	out.Write(length[:])
	out.Write(payload)
}

package formats

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"sigs.k8s.io/yaml"
)

// jpegQuality matches the quality the mirrored imagery is archived at
const jpegQuality = 95

type jsonCodec struct{}

func (jsonCodec) Decode(r io.Reader) (interface{}, error) {
	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

func (jsonCodec) Encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

type yamlCodec struct{}

func (yamlCodec) Decode(r io.Reader) (interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return v, nil
}

func (yamlCodec) Encode(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// imageCodec decodes any registered raster format and encodes with the
// function bound to the extension it was registered under
type imageCodec struct {
	encode func(io.Writer, image.Image) error
}

func (imageCodec) Decode(r io.Reader) (interface{}, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (c imageCodec) Encode(w io.Writer, v interface{}) error {
	img, ok := v.(image.Image)
	if !ok {
		return fmt.Errorf("encode image: %T is not an image.Image", v)
	}
	return c.encode(w, img)
}

func encodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func encodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
}

type textCodec struct{}

func (textCodec) Decode(r io.Reader) (interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (textCodec) Encode(w io.Writer, v interface{}) error {
	switch s := v.(type) {
	case string:
		_, err := io.WriteString(w, s)
		return err
	case []byte:
		_, err := w.Write(s)
		return err
	case fmt.Stringer:
		_, err := io.WriteString(w, s.String())
		return err
	default:
		return fmt.Errorf("encode text: cannot write %T", v)
	}
}

type bytesCodec struct{}

func (bytesCodec) Decode(r io.Reader) (interface{}, error) {
	return io.ReadAll(r)
}

func (bytesCodec) Encode(w io.Writer, v interface{}) error {
	switch b := v.(type) {
	case []byte:
		_, err := w.Write(b)
		return err
	case io.Reader:
		_, err := io.Copy(w, b)
		return err
	default:
		return fmt.Errorf("encode bytes: cannot write %T", v)
	}
}

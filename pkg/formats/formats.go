// Package formats maps file extensions to codecs so mirrored objects can be
// loaded and saved as values instead of byte streams. A Registry starts from
// the default codec set and can be extended per instance without touching
// the defaults.
package formats

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrUnsupportedExtension indicates no codec is registered for an extension
var ErrUnsupportedExtension = errors.New("formats: unsupported extension")

// Codec reads and writes one on-disk representation
type Codec interface {
	// Decode reads a value from r
	Decode(r io.Reader) (interface{}, error)
	// Encode writes v to w
	Encode(w io.Writer, v interface{}) error
}

// Registry resolves extensions to codecs. The zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry returns a registry preloaded with the default codecs:
// json, yaml/yml, png, jpg/jpeg, txt and bin. The default set is copied,
// so registering on one registry never affects another.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec, len(defaultCodecs))}
	for ext, codec := range defaultCodecs {
		r.codecs[ext] = codec
	}
	return r
}

// Register adds or replaces the codec for an extension.
func (r *Registry) Register(ext string, codec Codec) {
	r.codecs[normalizeExt(ext)] = codec
}

// Lookup returns the codec for an extension. The extension is matched
// case-insensitively, with or without the leading dot.
func (r *Registry) Lookup(ext string) (Codec, error) {
	codec, ok := r.codecs[normalizeExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	return codec, nil
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

var defaultCodecs = map[string]Codec{
	"json": jsonCodec{},
	"yaml": yamlCodec{},
	"yml":  yamlCodec{},
	"png":  imageCodec{encode: encodePNG},
	"jpg":  imageCodec{encode: encodeJPEG},
	"jpeg": imageCodec{encode: encodeJPEG},
	"txt":  textCodec{},
	"bin":  bytesCodec{},
}

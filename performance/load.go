package performance

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a performance descriptor
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor guesses the descriptor format from a path or URL
func FormatFor(ref string) Format {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	switch strings.ToLower(path.Ext(ref)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Source retrieves raw bytes by path or URL
type Source interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Parse decodes a descriptor
func Parse(data []byte, format Format) (*Performance, error) {
	var p Performance
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("decode performance"), ftag.With(ftag.InvalidArgument))
	}
	return &p, nil
}

// Load fetches and decodes the descriptor at ref
func Load(ctx context.Context, src Source, ref string) (*Performance, error) {
	data, err := src.Get(ctx, ref)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("read performance "+ref))
	}
	p, err := Parse(data, FormatFor(ref))
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With(ref))
	}
	p.Location = ref
	return p, nil
}

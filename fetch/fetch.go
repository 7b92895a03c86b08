// Package fetch retrieves performance descriptors and MIDI files from
// local paths or http(s) URLs.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// MaxSize caps a single response body
const MaxSize = 32 << 20

// Fetcher reads from the filesystem or over http(s)
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

func New(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}, maxSize: MaxSize}
}

// IsURL reports whether ref names an http(s) resource
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Get returns the bytes named by ref
func (f *Fetcher) Get(ctx context.Context, ref string) ([]byte, error) {
	ctx = fctx.WithMeta(ctx, "ref", ref)

	if IsURL(ref) {
		return f.getURL(ctx, ref)
	}

	path := strings.TrimPrefix(ref, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		tag := ftag.Internal
		if os.IsNotExist(err) {
			tag = ftag.NotFound
		}
		return nil, fault.Wrap(err, fctx.With(ctx), ftag.With(tag), fmsg.With("read file"))
	}
	return data, nil
}

func (f *Fetcher) getURL(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("request failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tag := ftag.Internal
		if resp.StatusCode == http.StatusNotFound {
			tag = ftag.NotFound
		}
		return nil, fault.Wrap(fault.New("unexpected status "+resp.Status), fctx.With(ctx), ftag.With(tag))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("read body"))
	}
	if int64(len(data)) > f.maxSize {
		return nil, fault.Wrap(fault.New("response larger than "+strconv.FormatInt(f.maxSize, 10)+" bytes"), fctx.With(ctx), ftag.With(ftag.InvalidArgument))
	}
	return data, nil
}

// Resolve interprets ref relative to base, the location of the descriptor
// that names it. Absolute paths and URLs are returned unchanged.
func Resolve(base, ref string) string {
	if ref == "" || base == "" || IsURL(ref) || filepath.IsAbs(ref) {
		return ref
	}
	if IsURL(base) {
		b, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return b.ResolveReference(r).String()
	}
	return filepath.Join(filepath.Dir(strings.TrimPrefix(base, "file://")), ref)
}

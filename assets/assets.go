// Package assets opens the text resources sent in bulk when an easter egg fires.
package assets

import (
	"errors"
	"fmt"
	"github.com/fuad-daoud/pastabot/integrations/digitalocean"
	"golang.org/x/net/context"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("asset not found")

type Source interface {
	// Open returns the resource stored for key. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Name is the object name of the resource for key.
func Name(key string) string {
	return key + ".txt"
}

type Dir string

func (d Dir) Open(_ context.Context, key string) (io.ReadCloser, error) {
	name := Name(key)
	if !fs.ValidPath(name) || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	file, err := os.Open(filepath.Join(string(d), name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return file, err
}

// Downloader is satisfied by *digitalocean.Spaces.
type Downloader interface {
	Download(ctx context.Context, name string) (io.ReadCloser, error)
}

type Remote struct {
	Downloader Downloader
}

func (r Remote) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := r.Downloader.Download(ctx, Name(key))
	if errors.Is(err, digitalocean.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", Name(key), ErrNotFound)
	}
	return body, err
}

// Open picks a Source from uri: file://<dir> or spaces://<bucket>/<prefix>.
// A bare path is treated as a directory.
func Open(uri string, spaces digitalocean.Options) (Source, error) {
	if !strings.Contains(uri, "://") {
		return Dir(uri), nil
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse assets uri: %w", err)
	}
	switch parsed.Scheme {
	case "file":
		return Dir(parsed.Host + parsed.Path), nil
	case "spaces", "s3":
		spaces.Bucket = parsed.Host
		spaces.Prefix = strings.Trim(parsed.Path, "/")
		client, err := digitalocean.NewSpaces(spaces)
		if err != nil {
			return nil, err
		}
		return Remote{Downloader: client}, nil
	}
	return nil, fmt.Errorf("unsupported assets scheme %q", parsed.Scheme)
}

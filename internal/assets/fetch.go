package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// fetch reads the resource at rawURL: http(s) URLs over the network, file://
// URLs and bare paths from disk.
func fetch(ctx context.Context, client *http.Client, rawURL string, progress Progress) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || len(u.Scheme) <= 1 {
		// bare paths, including Windows drive letters
		return readFile(ctx, rawURL, progress)
	}

	switch u.Scheme {
	case "http", "https":
		return fetchHTTP(ctx, client, rawURL, progress)
	case "file":
		return readFile(ctx, filepath.FromSlash(u.Path), progress)
	default:
		return nil, fmt.Errorf("fetching %s: %w %q", rawURL, ErrUnsupportedScheme, u.Scheme)
	}
}

func fetchHTTP(ctx context.Context, client *http.Client, rawURL string, progress Progress) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	data, err := readAll(ctx, resp.Body, resp.ContentLength, progress)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return data, nil
}

func readFile(ctx context.Context, path string, progress Progress) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	total := int64(-1)
	if st, err := f.Stat(); err == nil {
		total = st.Size()
	}

	data, err := readAll(ctx, f, total, progress)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// readAll copies r into memory, reporting progress after each chunk and
// stopping early when ctx ends.
func readAll(ctx context.Context, r io.Reader, total int64, progress Progress) ([]byte, error) {
	if total < 0 {
		total = -1
	}
	capHint := 64 << 10
	if total > 0 && total < 512<<20 {
		capHint = int(total)
	}
	data := make([]byte, 0, capHint)
	buf := make([]byte, 32<<10)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			if progress != nil {
				progress(int64(len(data)), total)
			}
		}
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

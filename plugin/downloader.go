package plugin

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultReleaseBase = "https://github.com"
	checksumsFile      = "checksums.txt"
	binaryName         = "plugin"
)

// ErrBinaryNotFound is returned when a release archive has no plugin binary
var ErrBinaryNotFound = errors.New("plugin binary not found in archive")

// Release identifies one GitHub release of a plugin
type Release struct {
	Owner   string
	Repo    string
	Version string
}

// ParseRelease reads "github.com/owner/repo" plus a version, adding the v prefix when missing
func ParseRelease(source, version string) (Release, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(source, "https://"), "github.com/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Release{}, fmt.Errorf("invalid GitHub source: %s", source)
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return Release{Owner: parts[0], Repo: parts[1], Version: version}, nil
}

// Archive is the release asset built for this platform
func (r Release) Archive() string {
	return fmt.Sprintf("%s_%s_%s.tar.gz", r.Repo, runtime.GOOS, runtime.GOARCH)
}

// Downloader fetches plugin releases and installs their binary
type Downloader struct {
	// BaseURL replaces https://github.com, mostly for tests
	BaseURL string
	client  *retryablehttp.Client
}

// NewDownloader creates a Downloader with two retries and a silent logger
func NewDownloader() *Downloader {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.Logger = nil
	return &Downloader{BaseURL: defaultReleaseBase, client: c}
}

func (d *Downloader) assetURL(r Release, asset string) string {
	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s",
		strings.TrimSuffix(d.BaseURL, "/"), r.Owner, r.Repo, r.Version, asset)
}

// Install downloads the release archive, checks it against checksums.txt
// and writes the binary to destDir/plugin.
func (d *Downloader) Install(ctx context.Context, r Release, destDir string) error {
	want, err := d.checksum(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to fetch checksum: %w", err)
	}

	tmp, got, err := d.downloadArchive(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	defer os.Remove(tmp)

	if got != want {
		return fmt.Errorf("checksum verification failed: got %s, want %s", got, want)
	}
	if err := extractBinary(tmp, destDir); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}
	return nil
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp, nil
}

// checksum finds the archive's entry in checksums.txt ("hash  filename" lines)
func (d *Downloader) checksum(ctx context.Context, r Release) (string, error) {
	resp, err := d.get(ctx, d.assetURL(r, checksumsFile))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	archive := r.Archive()
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[1] == archive {
			return strings.ToLower(fields[0]), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("checksum not found for %s", archive)
}

// downloadArchive saves the archive to a temp file, hashing it on the way
func (d *Downloader) downloadArchive(ctx context.Context, r Release) (path, sum string, err error) {
	resp, err := d.get(ctx, d.assetURL(r, r.Archive()))
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp("", "plugin-*.tar.gz")
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		os.Remove(f.Name())
		return "", "", err
	}
	return f.Name(), hex.EncodeToString(h.Sum(nil)), nil
}

// extractBinary copies the entry named "plugin" out of a .tar.gz
func extractBinary(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return ErrBinaryNotFound
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg || filepath.Base(header.Name) != binaryName {
			continue
		}

		if err := os.MkdirAll(destDir, 0755); err != nil {
			return err
		}
		out, err := os.OpenFile(filepath.Join(destDir, binaryName), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}
}

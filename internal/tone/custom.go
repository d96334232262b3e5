package tone

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// MaxCustomSoundSize bounds custom sound payloads in bytes.
const MaxCustomSoundSize = 5 * 1024 * 1024

type sourceKind int

const (
	sourceDataURI sourceKind = iota
	sourceURL
	sourceFile
)

type customSource struct {
	kind    sourceKind
	payload []byte
	url     string
	path    string
}

// ValidateCustomSound reports whether data names a playable custom sound:
// a base64 data URI, an absolute http(s) URL, or an existing file.
func ValidateCustomSound(data string) error {
	_, err := parseCustomSound(data)
	return err
}

func parseCustomSound(data string) (customSource, error) {
	data = strings.TrimSpace(data)
	switch {
	case data == "":
		return customSource{}, fmt.Errorf("%w: empty", ErrInvalidCustomSound)
	case strings.HasPrefix(data, "data:"):
		return parseDataURI(data)
	case isHTTPURL(data):
		u, err := url.Parse(data)
		if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return customSource{}, fmt.Errorf("%w: bad url %q", ErrInvalidCustomSound, data)
		}
		return customSource{kind: sourceURL, url: u.String()}, nil
	default:
		info, err := os.Stat(data)
		if err != nil {
			return customSource{}, fmt.Errorf("%w: %v", ErrInvalidCustomSound, err)
		}
		if info.IsDir() {
			return customSource{}, fmt.Errorf("%w: %s is a directory", ErrInvalidCustomSound, data)
		}
		if info.Size() > MaxCustomSoundSize {
			return customSource{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidCustomSound, data, MaxCustomSoundSize)
		}
		return customSource{kind: sourceFile, path: data}, nil
	}
}

func isHTTPURL(data string) bool {
	lower := strings.ToLower(data)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func parseDataURI(data string) (customSource, error) {
	header, encoded, ok := strings.Cut(data, ",")
	if !ok {
		return customSource{}, fmt.Errorf("%w: data uri without payload", ErrInvalidCustomSound)
	}
	if !strings.HasSuffix(header, ";base64") {
		return customSource{}, fmt.Errorf("%w: data uri is not base64", ErrInvalidCustomSound)
	}
	if size := len(encoded) * 3 / 4; size > MaxCustomSoundSize {
		return customSource{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidCustomSound, size, MaxCustomSoundSize)
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return customSource{}, fmt.Errorf("%w: %v", ErrInvalidCustomSound, err)
	}
	return customSource{kind: sourceDataURI, payload: payload}, nil
}

func (c customSource) load(ctx context.Context, client *http.Client) ([]byte, error) {
	switch c.kind {
	case sourceDataURI:
		return c.payload, nil
	case sourceFile:
		data, err := os.ReadFile(c.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", c.path, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: %s", c.url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxCustomSoundSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.url, err)
	}
	if len(data) > MaxCustomSoundSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", c.url, MaxCustomSoundSize)
	}
	return data, nil
}

package viralworker

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/USBABC1/V75VIRAL/pkg/logging"
	"github.com/USBABC1/V75VIRAL/pkg/version"
)

// fallbackExtension is used when the URL does not carry a recognizable image
// extension.
const fallbackExtension = "jpg"

// downloadImage fetches imageURL and persists it under dir as
// <filenameBase>.<ext>. Returns the saved path, or "" when the URL is empty
// or anything goes wrong. Downloads are single-shot and never fatal for the
// overall search.
func (c *Client) downloadImage(ctx context.Context, imageURL, dir, filenameBase string) string {
	if imageURL == "" {
		return ""
	}

	ext := c.imageExtension(imageURL)
	target := filepath.Join(dir, filenameBase+"."+ext)

	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		c.logger.WithError(err).WithField("url", imageURL).Warn("invalid image URL")
		return ""
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.imageClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("url", imageURL).Warn("image download failed")
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logging.Fields{
			"url":    imageURL,
			"status": resp.StatusCode,
		}).Warn("image download rejected")
		return ""
	}

	// Read one byte past the cap to detect oversized bodies.
	content, err := io.ReadAll(io.LimitReader(resp.Body, c.maxImageBytes+1))
	if err != nil {
		c.logger.WithError(err).WithField("url", imageURL).Warn("failed to read image body")
		return ""
	}
	if int64(len(content)) > c.maxImageBytes {
		c.logger.WithField("url", imageURL).Warn("image exceeds size limit, discarding")
		return ""
	}

	if err := os.WriteFile(target, content, 0o644); err != nil {
		c.logger.WithError(err).WithField("path", target).Warn("failed to save image")
		return ""
	}

	c.logger.WithField("path", target).Debug("image saved")
	return target
}

// imageExtension derives the file extension from the URL path's trailing
// suffix, but only when it is on the allow-list; anything else gets the
// generic fallback.
func (c *Client) imageExtension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallbackExtension
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	if _, ok := c.allowedExts[ext]; ok {
		return ext
	}
	return fallbackExtension
}

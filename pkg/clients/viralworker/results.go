package viralworker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/USBABC1/V75VIRAL/pkg/api/viralworker"
	"github.com/USBABC1/V75VIRAL/pkg/logging"
)

// processResults normalizes the worker's raw records, downloads images into
// the session cache directory and computes aggregate metrics. Records are
// processed sequentially in response order; a failing record is skipped and
// logged, never fatal.
func (c *Client) processResults(ctx context.Context, resp *viralworker.SearchResponse, sessionID string) *viralworker.SearchResult {
	sessionDir := filepath.Join(c.imagesDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		// Downloads will fail soft; the records themselves still process.
		c.logger.WithError(err).WithField("dir", sessionDir).Error("failed to create session image dir")
	}

	now := time.Now()
	processed := make([]viralworker.ProcessedImage, 0, len(resp.Images))
	saved := 0

	for i, raw := range resp.Images {
		raw.ApplyDefaults(now)

		// Nanosecond stamp keeps files from consecutive searches of the
		// same session from colliding.
		filenameBase := fmt.Sprintf("viral_image_%d_%d", i+1, time.Now().UnixNano())
		localPath := c.downloadImage(ctx, raw.ImageURL, sessionDir, filenameBase)
		if localPath != "" {
			saved++
			c.metrics.imageSaved()
		} else if raw.ImageURL != "" {
			c.metrics.imageFailed()
		}

		processed = append(processed, viralworker.ProcessedImage{
			ID:               fmt.Sprintf("viral_%s_%d", sessionID, i+1),
			Title:            raw.Title,
			Description:      raw.Description,
			Platform:         raw.Platform,
			EngagementScore:  raw.EngagementScore,
			ViewsEstimate:    raw.ViewsEstimate,
			LikesEstimate:    raw.LikesEstimate,
			CommentsEstimate: raw.CommentsEstimate,
			SharesEstimate:   raw.SharesEstimate,
			Author:           raw.Author,
			AuthorFollowers:  raw.AuthorFollowers,
			PostDate:         raw.PostDate,
			Hashtags:         raw.Hashtags,
			OriginalURL:      raw.PostURL,
			ImageURL:         raw.ImageURL,
			LocalImagePath:   localPath,
			CollectedAt:      time.Now(),
		})
	}

	result := &viralworker.SearchResult{
		SessionID:         sessionID,
		SearchCompletedAt: time.Now(),
		TotalImagesFound:  len(processed),
		TotalImagesSaved:  saved,
		PlatformsSearched: platformsOf(processed),
		ViralImages:       processed,
		AggregatedMetrics: aggregateMetrics(processed),
		OriginalResponse:  resp,
	}

	c.logger.WithFields(logging.Fields{
		"session_id":   sessionID,
		"images_found": result.TotalImagesFound,
		"images_saved": result.TotalImagesSaved,
	}).Info("viral results processed")

	return result
}

// platformsOf returns the distinct platforms represented, in order of first
// appearance.
func platformsOf(items []viralworker.ProcessedImage) []string {
	seen := make(map[string]struct{}, len(items))
	platforms := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Platform]; ok {
			continue
		}
		seen[item.Platform] = struct{}{}
		platforms = append(platforms, item.Platform)
	}
	return platforms
}

// aggregateMetrics sums engagement across a batch. The top platform is the
// one with the most items; on a tie the platform appearing first in item
// order wins. An empty batch yields zero metrics and the "none" sentinel.
func aggregateMetrics(items []viralworker.ProcessedImage) viralworker.AggregatedMetrics {
	metrics := viralworker.AggregatedMetrics{
		TopPerformingPlatform: viralworker.NoTopPlatform,
	}

	counts := make(map[string]int, len(items))
	var order []string

	for _, item := range items {
		metrics.TotalEngagementScore += item.EngagementScore
		metrics.TotalEstimatedViews += item.ViewsEstimate
		metrics.TotalEstimatedLikes += item.LikesEstimate

		if _, ok := counts[item.Platform]; !ok {
			order = append(order, item.Platform)
		}
		counts[item.Platform]++
	}

	if len(items) > 0 {
		metrics.AverageEngagement = metrics.TotalEngagementScore / float64(len(items))
	}

	best := 0
	for _, platform := range order {
		if counts[platform] > best {
			best = counts[platform]
			metrics.TopPerformingPlatform = platform
		}
	}

	return metrics
}

// fallbackResult is the canonical empty result used by every failure branch.
// Its shape matches a successful result so callers never branch on errors,
// only on FallbackUsed.
func (c *Client) fallbackResult(query, sessionID string) *viralworker.SearchResult {
	c.logger.WithFields(logging.Fields{
		"query":      query,
		"session_id": sessionID,
	}).Warn("returning viral fallback result")

	return &viralworker.SearchResult{
		SessionID:         sessionID,
		SearchCompletedAt: time.Now(),
		PlatformsSearched: []string{},
		ViralImages:       []viralworker.ProcessedImage{},
		AggregatedMetrics: viralworker.AggregatedMetrics{
			TopPerformingPlatform: viralworker.NoTopPlatform,
		},
		Error:         c.fallbackMessage,
		FallbackUsed:  true,
		OriginalQuery: query,
	}
}

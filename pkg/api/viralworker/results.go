package viralworker

import "time"

// NoTopPlatform is the sentinel platform ranking for an empty result.
const NoTopPlatform = "none"

// ProcessedImage is a normalized viral record with a locally cached copy of
// its image. One ProcessedImage is derived per successfully processed
// ViralImage; records that fail processing are skipped, so a result never
// holds more processed images than the worker returned raw records.
type ProcessedImage struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Platform         string   `json:"platform"`
	EngagementScore  float64  `json:"engagement_score"`
	ViewsEstimate    int64    `json:"views_estimate"`
	LikesEstimate    int64    `json:"likes_estimate"`
	CommentsEstimate int64    `json:"comments_estimate"`
	SharesEstimate   int64    `json:"shares_estimate"`
	Author           string   `json:"author"`
	AuthorFollowers  int64    `json:"author_followers"`
	PostDate         string   `json:"post_date"`
	Hashtags         []string `json:"hashtags"`
	OriginalURL      string   `json:"original_url"`
	ImageURL         string   `json:"image_url"`
	// LocalImagePath is empty when the record had no image URL or the
	// download failed.
	LocalImagePath string    `json:"local_image_path,omitempty"`
	CollectedAt    time.Time `json:"collected_at"`
}

// AggregatedMetrics summarizes engagement across a batch of processed images.
type AggregatedMetrics struct {
	TotalEngagementScore float64 `json:"total_engagement_score"`
	AverageEngagement    float64 `json:"average_engagement"`
	TotalEstimatedViews  int64   `json:"total_estimated_views"`
	TotalEstimatedLikes  int64   `json:"total_estimated_likes"`
	// TopPerformingPlatform is the platform with the most processed images,
	// ties broken by item order; NoTopPlatform when the batch is empty.
	TopPerformingPlatform string `json:"top_performing_platform"`
}

// SearchResult is the uniform return value of every search, successful or
// not. Failure paths populate Error, FallbackUsed and OriginalQuery and leave
// the rest zero-valued; callers branch on FallbackUsed, never on an error.
type SearchResult struct {
	SessionID         string            `json:"session_id"`
	SearchCompletedAt time.Time         `json:"search_completed_at"`
	TotalImagesFound  int               `json:"total_images_found"`
	TotalImagesSaved  int               `json:"total_images_saved"`
	PlatformsSearched []string          `json:"platforms_searched"`
	ViralImages       []ProcessedImage  `json:"viral_images"`
	AggregatedMetrics AggregatedMetrics `json:"aggregated_metrics"`

	// Raw worker response, retained for hosts that post-process it.
	OriginalResponse *SearchResponse `json:"original_viral_result,omitempty"`

	// Failure-path fields.
	Error         string `json:"error,omitempty"`
	FallbackUsed  bool   `json:"fallback_used,omitempty"`
	OriginalQuery string `json:"original_query,omitempty"`
}

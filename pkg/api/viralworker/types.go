package viralworker

import "time"

// SearchRequest is the JSON body for the worker's POST /api/search endpoint.
type SearchRequest struct {
	Query         string   `json:"query"`
	MaxImages     int      `json:"max_images"`
	MinEngagement int      `json:"min_engagement"`
	Platforms     []string `json:"platforms"`
}

// ViralImage is one raw record discovered by the worker. Every field is
// optional on the wire; ApplyDefaults documents and fills the blanks.
type ViralImage struct {
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	Platform         string   `json:"platform,omitempty"`
	EngagementScore  float64  `json:"engagement_score,omitempty"`
	ViewsEstimate    int64    `json:"views_estimate,omitempty"`
	LikesEstimate    int64    `json:"likes_estimate,omitempty"`
	CommentsEstimate int64    `json:"comments_estimate,omitempty"`
	SharesEstimate   int64    `json:"shares_estimate,omitempty"`
	Author           string   `json:"author,omitempty"`
	AuthorFollowers  int64    `json:"author_followers,omitempty"`
	PostDate         string   `json:"post_date,omitempty"`
	Hashtags         []string `json:"hashtags,omitempty"`
	PostURL          string   `json:"post_url,omitempty"`
	ImageURL         string   `json:"image_url,omitempty"`
}

// ApplyDefaults fills absent fields with their documented defaults:
// empty strings stay empty except Title ("Conteúdo Viral"), Platform
// ("unknown") and Author ("Desconhecido"); a missing post date becomes now.
func (v *ViralImage) ApplyDefaults(now time.Time) {
	if v.Title == "" {
		v.Title = "Conteúdo Viral"
	}
	if v.Platform == "" {
		v.Platform = "unknown"
	}
	if v.Author == "" {
		v.Author = "Desconhecido"
	}
	if v.PostDate == "" {
		v.PostDate = now.Format(time.RFC3339)
	}
	if v.Hashtags == nil {
		v.Hashtags = []string{}
	}
}

// SearchResponse is the worker's response to POST /api/search. Only the
// images array is contractual; anything else the worker sends is ignored.
type SearchResponse struct {
	Query  string       `json:"query,omitempty"`
	Images []ViralImage `json:"images"`
}

// SearchSummary is one entry of the worker's GET /api/searches listing.
type SearchSummary struct {
	ID           string `json:"id"`
	Query        string `json:"query,omitempty"`
	TotalResults int    `json:"total_results,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// SearchRecord is the worker's response to GET /api/search/{id}.
type SearchRecord struct {
	ID        string       `json:"id"`
	Query     string       `json:"query,omitempty"`
	CreatedAt string       `json:"created_at,omitempty"`
	Images    []ViralImage `json:"images,omitempty"`
}

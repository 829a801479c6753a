package viralworker

import (
	"testing"

	"github.com/USBABC1/V75VIRAL/pkg/api/viralworker"
)

func items(platforms ...string) []viralworker.ProcessedImage {
	out := make([]viralworker.ProcessedImage, len(platforms))
	for i, p := range platforms {
		out[i] = viralworker.ProcessedImage{Platform: p}
	}
	return out
}

func TestAggregateMetrics_Empty(t *testing.T) {
	m := aggregateMetrics(nil)
	if m.TopPerformingPlatform != viralworker.NoTopPlatform {
		t.Fatalf("expected %q for empty batch, got %s", viralworker.NoTopPlatform, m.TopPerformingPlatform)
	}
	if m.AverageEngagement != 0 {
		t.Fatalf("expected zero average for empty batch, got %v", m.AverageEngagement)
	}
}

func TestAggregateMetrics_Sums(t *testing.T) {
	batch := []viralworker.ProcessedImage{
		{Platform: "instagram", EngagementScore: 80, ViewsEstimate: 1000, LikesEstimate: 100},
		{Platform: "facebook", EngagementScore: 20, ViewsEstimate: 500, LikesEstimate: 50},
	}
	m := aggregateMetrics(batch)
	if m.TotalEngagementScore != 100 {
		t.Fatalf("expected total engagement 100, got %v", m.TotalEngagementScore)
	}
	if m.AverageEngagement != 50 {
		t.Fatalf("expected average 50, got %v", m.AverageEngagement)
	}
	if m.TotalEstimatedViews != 1500 || m.TotalEstimatedLikes != 150 {
		t.Fatalf("unexpected view/like totals: %v/%v", m.TotalEstimatedViews, m.TotalEstimatedLikes)
	}
}

func TestAggregateMetrics_TopPlatform(t *testing.T) {
	m := aggregateMetrics(items("facebook", "instagram", "instagram"))
	if m.TopPerformingPlatform != "instagram" {
		t.Fatalf("expected instagram on clear majority, got %s", m.TopPerformingPlatform)
	}
}

func TestAggregateMetrics_TieBreaksByItemOrder(t *testing.T) {
	m := aggregateMetrics(items("facebook", "instagram", "instagram", "facebook"))
	if m.TopPerformingPlatform != "facebook" {
		t.Fatalf("expected first-seen platform to win ties, got %s", m.TopPerformingPlatform)
	}
}

func TestPlatformsOf_DedupesInOrder(t *testing.T) {
	got := platformsOf(items("instagram", "facebook", "instagram"))
	if len(got) != 2 || got[0] != "instagram" || got[1] != "facebook" {
		t.Fatalf("unexpected platform list: %v", got)
	}
}

package assemble

import (
	"strings"
	"testing"
)

func TestBuild_SeparatorCount(t *testing.T) {
	two := []Result{{Text: "first"}, {Text: "second"}}
	ctx, _ := Build(two)
	if got := strings.Count(ctx, Separator); got != 1 {
		t.Fatalf("expected exactly one separator for two results, got %d in %q", got, ctx)
	}

	one := []Result{{Text: "only"}}
	ctx, _ = Build(one)
	if strings.Contains(ctx, Separator) {
		t.Fatalf("single result must not contain a separator: %q", ctx)
	}
}

func TestBuild_Empty(t *testing.T) {
	ctx, images := Build(nil)
	if ctx != "" {
		t.Fatalf("expected empty context, got %q", ctx)
	}
	if len(images) != 0 {
		t.Fatalf("expected no images")
	}
}

func TestBuild_ContentTypeAndPageTag(t *testing.T) {
	ctx, _ := Build([]Result{{
		Text:     "quarterly totals",
		Metadata: map[string]any{"content_type": "table", "page_number": float64(3)},
	}})
	if !strings.Contains(ctx, "[TABLE - Page 3]") {
		t.Fatalf("missing content-type/page tag in %q", ctx)
	}
}

func TestBuild_TypeWithoutPage(t *testing.T) {
	ctx, _ := Build([]Result{{
		Text:     "narrative",
		Metadata: map[string]any{"content_type": "NarrativeText"},
	}})
	if !strings.Contains(ctx, "[NARRATIVETEXT]") {
		t.Fatalf("missing content-type tag in %q", ctx)
	}
}

func TestBuild_CaptionForTable(t *testing.T) {
	ctx, _ := Build([]Result{{
		Text: "cells",
		Metadata: map[string]any{
			"content_type": "table",
			"caption":      "Tax brackets by year",
		},
	}})
	if !strings.Contains(ctx, "Caption: Tax brackets by year") {
		t.Fatalf("missing caption line in %q", ctx)
	}

	// captions only annotate table/figure/picture content
	ctx, _ = Build([]Result{{
		Text:     "plain",
		Metadata: map[string]any{"content_type": "text", "caption": "ignored"},
	}})
	if strings.Contains(ctx, "Caption:") {
		t.Fatalf("caption must not annotate plain text content: %q", ctx)
	}
}

func TestBuild_MarkerFlags(t *testing.T) {
	ctx, _ := Build([]Result{{
		Text: "mixed",
		Metadata: map[string]any{
			"contains_table":   true,
			"contains_figure":  false,
			"contains_picture": true,
		},
	}})
	if !strings.Contains(ctx, "[HAS_TABLE]") || !strings.Contains(ctx, "[HAS_PICTURE]") {
		t.Fatalf("missing marker tags in %q", ctx)
	}
	if strings.Contains(ctx, "[HAS_FIGURE]") {
		t.Fatalf("false flag rendered in %q", ctx)
	}
}

func TestBuild_CollectsImagesWithoutInlining(t *testing.T) {
	ctx, images := Build([]Result{
		{Text: "chart summary", Metadata: map[string]any{"image_base64": "aW1hZ2Ux"}},
		{Text: "no image here"},
		{Text: "photo", Metadata: map[string]any{"image_base64": "aW1hZ2Uy"}},
	})
	if len(images) != 2 || images[0] != "aW1hZ2Ux" || images[1] != "aW1hZ2Uy" {
		t.Fatalf("expected two image payloads in order, got %v", images)
	}
	if strings.Contains(ctx, "aW1hZ2Ux") || strings.Contains(ctx, "aW1hZ2Uy") {
		t.Fatalf("image payload leaked into text context: %q", ctx)
	}
}

package fallback

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		prompt string
		want   Intent
	}{
		{"Write me some ad copy for a landing page", IntentCopywriting},
		{"I need a catchy HEADLINE for this post", IntentCopywriting},
		{"Describe my product launch plan", IntentProduct},
		{"How do I get more traffic to my store", IntentTraffic},
		{"Plan a Facebook ads campaign", IntentTraffic},
		{"Write a video script about cooking", IntentVideoScript},
		{"Set up an automation with a webhook", IntentAutomation},
		{"Tell me a story about a dragon", IntentGeneric},
		{"", IntentGeneric},
	}

	for _, tc := range cases {
		if got := Classify(tc.prompt); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.prompt, got, tc.want)
		}
	}
}

func TestClassify_OrderedRulesWin(t *testing.T) {
	// "copy" is matched before "product" because copywriting rules come first.
	if got := Classify("write copy for my product"); got != IntentCopywriting {
		t.Errorf("expected copywriting to win over product, got %s", got)
	}
	// "video" outranks "traffic".
	if got := Classify("video ads for traffic"); got != IntentVideoScript {
		t.Errorf("expected video_script to win over traffic, got %s", got)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate("help with my ads campaign")
	b := Generate("help with my ads campaign")
	if a != b {
		t.Error("Generate must be deterministic for identical input")
	}
}

func TestGenerate_NeverEmpty(t *testing.T) {
	prompts := []string{"", "anything at all", "copy", "webhook", "product", "video", "traffic"}
	for _, p := range prompts {
		out := Generate(p)
		if strings.TrimSpace(out) == "" {
			t.Errorf("Generate(%q) returned empty content", p)
		}
	}
}

// Package fallback produces deterministic synthetic chat content when every
// chat provider is unavailable. It performs no I/O and depends only on the
// prompt text, so callers of the chat category never see a hard failure.
package fallback

import "strings"

// Intent is the content family a prompt is classified into.
type Intent int

const (
	IntentGeneric Intent = iota
	IntentCopywriting
	IntentProduct
	IntentTraffic
	IntentVideoScript
	IntentAutomation
)

func (i Intent) String() string {
	switch i {
	case IntentCopywriting:
		return "copywriting"
	case IntentProduct:
		return "product"
	case IntentTraffic:
		return "traffic"
	case IntentVideoScript:
		return "video_script"
	case IntentAutomation:
		return "automation"
	default:
		return "generic"
	}
}

// rules are evaluated in order; the first match wins. Keep the more specific
// families before the broader ones.
var rules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentCopywriting, []string{"copy", "headline", "hook", "slogan"}},
	{IntentVideoScript, []string{"video", "script", "scene", "voiceover"}},
	{IntentTraffic, []string{"traffic", "ads", "campaign", "audience"}},
	{IntentAutomation, []string{"automation", "webhook", "workflow", "integration"}},
	{IntentProduct, []string{"product", "offer", "pricing", "launch"}},
}

// Classify maps a prompt onto an intent by ordered keyword matching.
func Classify(prompt string) Intent {
	p := strings.ToLower(prompt)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(p, kw) {
				return r.intent
			}
		}
	}
	return IntentGeneric
}

// Generate returns the canned template for the prompt's intent. Identical
// prompts always produce identical output.
func Generate(prompt string) string {
	return templates[Classify(prompt)]
}

var templates = map[Intent]string{
	IntentCopywriting: `## Copy Framework

**Headline options**
1. Stop guessing. Start converting.
2. The shortcut your competitors hope you never find.
3. Built for people who measure results, not effort.

**Body structure**
- Hook: name the pain in the reader's own words.
- Proof: one concrete number beats three adjectives.
- Offer: say exactly what they get and when.
- CTA: one verb, one action, one link.

**Checklist**
- Read the headline out loud; cut every word that doesn't earn its place.
- Swap "we provide" for "you get".
- End with a single, unambiguous next step.`,

	IntentProduct: `## Product Positioning Brief

**One-liner template**
"[Product] helps [audience] achieve [outcome] without [main objection]."

**Launch sequence**
1. Problem post: describe the pain, no pitch.
2. Insight post: why existing fixes fall short.
3. Reveal: the product, framed as the obvious conclusion.
4. Proof: early numbers, screenshots, testimonials.
5. Close: deadline or capacity limit, stated plainly.

**Pricing sanity checks**
- Anchor against the cost of the problem, not competitor price lists.
- Offer three tiers; design the middle one to be chosen.`,

	IntentTraffic: `## Traffic Plan

**Channel split (starting point)**
- 40% — one paid channel you can measure end to end.
- 40% — one organic channel you can sustain weekly.
- 20% — experiments; kill anything that doesn't pay back in 30 days.

**Campaign structure**
1. One campaign per objective, never per idea.
2. Three ad variants per audience; rotate the loser weekly.
3. Send traffic to a page with exactly one job.

**Metrics that matter**
- Cost per qualified lead, not cost per click.
- Payback window, not ROAS screenshots.`,

	IntentVideoScript: `## Video Script Skeleton

**0–3s — Hook**
Open on the outcome or the mistake. No logos, no intros.

**3–15s — Problem**
"If you've ever [specific frustration], this is why it keeps happening."

**15–40s — Mechanism**
Show the one change that fixes it. Screen capture or hands-on beats talking head.

**40–55s — Proof**
One number, one before/after, or one short testimonial.

**55–60s — CTA**
Single instruction: "Comment X", "Grab the link", or "Follow for part 2."`,

	IntentAutomation: `## Automation Blueprint

**Trigger → Filter → Act → Log**
1. Trigger: pick one event source (form submit, new row, webhook).
2. Filter: drop anything that doesn't meet a single clear condition.
3. Act: one action per branch; chain scenarios instead of nesting.
4. Log: append every run to a sheet or log store; silent automations fail silently.

**Reliability rules**
- Every webhook needs a retry policy and a dead-letter path.
- Idempotency first: running a scenario twice must be safe.
- Alert on absence: "no runs in 24h" is also a failure.`,

	IntentGeneric: `## Working Draft

Here's a structured starting point you can refine:

**1. Clarify the goal**
Write one sentence describing what success looks like and for whom.

**2. List the constraints**
Budget, deadline, channels, tone — constraints are design inputs, not blockers.

**3. Draft three options**
Produce a safe version, an ambitious version, and a cheap version. Comparing
them will surface what actually matters.

**4. Decide and ship the smallest piece**
Pick the option you can validate this week and define the single metric that
tells you whether it worked.`,
}

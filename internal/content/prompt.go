package content

import (
	"fmt"
	"strings"
)

func systemPrompt() string {
	return `You write marketing copy for a directory of UK group accommodation used for hen parties and celebrations.
Write warm, specific, British English copy. Never invent prices, ratings or awards.
You reply with a single JSON object and nothing else.`
}

func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Property: %s\n", in.Title)
	fmt.Fprintf(&b, "Location: %s\n", valueOr(in.Location, "not specified"))
	if in.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", in.Address)
	}
	if in.Postcode != "" {
		fmt.Fprintf(&b, "Postcode: %s\n", in.Postcode)
	}

	if ex := in.Existing; ex != nil && !ex.empty() {
		b.WriteString("\n## Existing copy\nKeep what is accurate and improve the rest.\n")
		if ex.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", ex.Description)
		}
		if len(ex.Features) > 0 {
			fmt.Fprintf(&b, "Features: %s\n", strings.Join(ex.Features, "; "))
		}
		if ex.Content != "" {
			fmt.Fprintf(&b, "Content: %s\n", ex.Content)
		}
	}

	b.WriteString(`
## Write
1. description: 2-3 sentences on what makes the property special for a group (space, gardens, hot tub, setting).
2. features: 5-8 short phrases a group would care about, e.g. "Hot tub", "Large open-plan living room".
3. content: a 200-300 word sales piece on why the property suits a hen party with a life drawing session:
   the atmosphere and setting, the celebration, how the space works for the class, unique selling points.
4. meta_description: a 150-160 character search snippet.
5. sleeps: guest capacity if you know it, otherwise null.

## Output
{
  "description": "...",
  "features": ["...", "..."],
  "content": "...",
  "meta_description": "...",
  "sleeps": null
}
`)
	return b.String()
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

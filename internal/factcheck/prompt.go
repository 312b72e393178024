package factcheck

import "strings"

const promptTemplate = `You are a fact-checker. Based on the web content provided,
determine whether the following claim is true, false, or partially true.

CLAIM: {claim}

WEB CONTENT:
{content}

Respond ONLY with this exact JSON format, nothing else:
{
    "verdict": "<true|false|partially_true>",
    "explanation": "<brief 1-2 sentence explanation>"
}

Rules:
- "true" = the claim is fully supported by the source
- "false" = the claim is contradicted by the source
- "partially_true" = some parts are correct but others are wrong or misleading
- Keep the explanation concise and factual
- Your response must be valid JSON only, no extra text
`

// BuildPrompt renders the judgment prompt for a claim and its source text
func BuildPrompt(claimText, webContent string) string {
	r := strings.NewReplacer("{claim}", claimText, "{content}", webContent)
	return r.Replace(promptTemplate)
}

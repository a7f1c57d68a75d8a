package prompts

import (
	"fmt"
	"strings"
)

const RerankTemplate = `SYSTEM: You are a cryptanalysis reviewer ranking candidate decryptions.
DETECTION: %s
CANDIDATES:
%s
TASK: Order the candidates from most to least plausible English plaintext.
CRITERIA:
- Reject word salad even when the letter frequencies look English.
- Prefer readable words and names over isolated common trigrams.
- Judge only the text shown. Never rewrite or complete a plaintext.
OUTPUT: JSON { "verdicts": [ { "id": number, "rank": number, "plausibility": number, "rationale": string } ] }.
List only candidates worth presenting, best first. The id must be one of the
numbers shown above; plausibility is your own 0 to 1 estimate.`

func RerankPrompt(detectionSummary, candidateBlock string) string {
	return strings.TrimSpace(fmt.Sprintf(RerankTemplate, detectionSummary, candidateBlock))
}

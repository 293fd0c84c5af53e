package campaign

import "fmt"

const rulesSystemPrompt = `You are a helpful assistant that converts marketing descriptions into structured targeting rules in strict JSON format. Return only JSON and follow this format exactly:
{
  "rules": [
    {
      "field": "string",
      "operator": "string",
      "value": "any",
      "logicGate": "AND/OR/NOT"
    }
  ]
}`

const subjectSystemPrompt = "You are a creative assistant that writes short, catchy marketing messages based on campaign names. Keep it under 20 words."

const bodySystemPrompt = "You are a skilled email copywriter who creates personalized marketing emails. Write a 3-4 paragraph email body that is engaging and persuasive."

func rulesUserPrompt(description string) string {
	return fmt.Sprintf("Generate targeting rules for this description:\n%q", description)
}

func subjectUserPrompt(campaignName string) string {
	return fmt.Sprintf("Generate a campaign message for this campaign name: %q", campaignName)
}

func bodyUserPrompt(subject, rulesText, campaignName string) string {
	return fmt.Sprintf(`Write an email body for a marketing campaign with the subject: %q.
The campaign targets customers who match these criteria: %s.
The campaign name is: %q.
Make it personal and persuasive, encouraging action.`, subject, rulesText, campaignName)
}

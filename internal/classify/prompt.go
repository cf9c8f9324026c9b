package classify

import (
	"fmt"
	"time"

	"alertiq/internal/mail"
)

const promptTemplate = `You are an expert system administrator analyzing alert emails to determine the appropriate action.

Please analyze the following alert email and determine what action should be taken:

EMAIL DETAILS:
Subject: %s
Sender: %s
Received: %s

EMAIL BODY:
%s

INSTRUCTIONS:
Based on the alert content, determine ONE of these three actions:

1. "Re-hit" - If this appears to be a temporary issue that can be resolved by retrying the process
   Examples: timeout errors, temporary network issues, rate limiting, temporary service unavailability

2. "Backend" - If this appears to be a backend infrastructure or configuration issue
   Examples: database connection issues, server errors, service configuration problems, resource exhaustion

3. "Code" - If this appears to be a software bug or code-related issue that requires development intervention
   Examples: application errors, logic bugs, null pointer exceptions, syntax errors, failed deployments

RESPONSE FORMAT:
You must respond with a valid JSON object in exactly this format:
{
    "action": "Re-hit" | "Backend" | "Code",
    "reason": "Detailed explanation of why this action was chosen (2-3 sentences)",
    "confidence": 0.85
}

IMPORTANT:
- Only respond with the JSON object, no additional text
- The action must be exactly one of: "Re-hit", "Backend", or "Code"
- The reason should be clear and actionable
- Confidence should be between 0.0 and 1.0
- Focus on the technical indicators in the alert to make your decision

Analyze the alert now:`

// BuildPrompt renders the analysis prompt for one alert email.
func BuildPrompt(email mail.EmailData) string {
	return fmt.Sprintf(promptTemplate,
		email.Subject,
		email.Sender,
		email.ReceivedDate.Format(time.RFC1123Z),
		email.Body,
	)
}

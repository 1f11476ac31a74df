package app

import "fmt"

// Prompts sent to the text-generation gateway. The model output is treated
// as opaque text; nothing downstream parses structure out of it.

const (
	replySystemPrompt = "You are a friendly customer support assistant for a small business. " +
		"You write short, warm replies to customer reviews. Return only the reply text."

	analysisSystemPrompt = "You are an assistant helping a business understand customer feedback. " +
		"Be concise and concrete. Return only the requested text."
)

func autoReplyPrompt(rating int, body string) string {
	prompt := fmt.Sprintf(
		"A customer left a %d-star review:\n\"\"\"%s\"\"\"\nWrite a short friendly reply thanking them and acknowledging the rating.",
		rating, body,
	)
	if rating <= 2 {
		prompt += " The customer is unhappy, so also offer a concrete next step to make things right."
	}
	return prompt
}

func summaryPrompt(body string) string {
	return fmt.Sprintf("Summarize this customer review in one short sentence: \"\"\"%s\"\"\"", body)
}

func actionPrompt(body string) string {
	return fmt.Sprintf("Given the review: \"\"\"%s\"\"\". Recommend a single actionable next step for the business.", body)
}

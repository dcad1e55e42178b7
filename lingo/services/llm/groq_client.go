// lingo/services/llm/groq_client.go
package llm

// Groq’s OpenAI-compatible base path.
const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqClient returns a streaming client pointing to the Groq chat endpoint.
func NewGroqClient(apiKey, model string, temperature float64) *GPTClient {
	return NewGPTClient(groqBaseURL, apiKey, model, temperature)
}

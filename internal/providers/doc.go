// Package providers translates generic experiment configurations into the wire
// formats of individual LLM completion APIs and back.
//
// Each backend is an Adapter: a record of pure functions that build the request
// URL, headers and body and extract the completion from a reply. Adapters never
// depend on each other. The Registry maps provider names to adapters and binds
// an adapter to credentials from a config.Credentials snapshot.
//
// Wire families:
//
//   - OpenAI chat completions (openai, openrouter, ollama, lmstudio), bodies built
//     from openai-go params and replies read with gjson paths.
//   - Anthropic Messages (anthropic), bodies and replies via anthropic-sdk-go types.
//   - Gemini generateContent (google), bodies and replies via genai types. Gemini has
//     no system/user split on this path, so both prompts become one user turn.
package providers

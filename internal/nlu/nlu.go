package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
)

// Command is the structured form of one spoken instruction. Raw always
// carries the model's verbatim reply; the typed fields are best-effort
// and stay zero when the reply is not the expected JSON. Validating
// the shape is the caller's concern.
type Command struct {
	Name  string            `json:"command"`
	Args  map[string]string `json:"args"`
	Query string            `json:"query"`

	Raw string `json:"-"`
}

const systemPrompt = `
You are HARK — the command translator for a small wheeled robot.
Your ONLY job is to convert the operator's utterance into minimal structured JSON.

GENERAL RULES:
1. Do NOT converse.
2. Do NOT answer questions.
3. Do NOT add explanations.
4. Output ONLY JSON. No markdown.
5. Never invent parameters the operator did not give.

OUTPUT FORMAT:
{
  "command": "<string>",
  "args": { ... },
  "query": "<original operator text>"
}

COMMANDS (canonical, snake_case):
- "move_to"   args: {"x": "<meters>", "y": "<meters>"}
- "move"      args: {"direction": "<degrees>", "speed": "<-1..1>"}
- "scan"      args: {"direction": "<degrees or null>"}
- "halt"      args: {}
- "unknown"   (if not classifiable)

ARG NORMALIZATION:
- coordinates and distances in meters, plain decimal strings.
- directions in degrees, 0 = straight ahead, positive clockwise.
- speed: decimal in [-1, 1]; negative means reverse.
- Never invent missing values; omit the key instead.

If the meaning is unclear -> command = "unknown".

Be strict and minimal.
Do not generate text other than the JSON.
`

// Translate sends the transcript to the remote model and returns the
// structured command it produced. Transport failures propagate as-is;
// a malformed reply is not an error, it comes back raw.
func Translate(ctx context.Context, client openai.Client, transcript string) (Command, error) {
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(transcript),
		},
		Model: openai.ChatModelGPT5Nano,
	})
	if err != nil {
		return Command{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Command{}, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return Command{}, fmt.Errorf("empty message content")
	}

	log.Debug("Translated", "data", content)

	return parseCommand(content), nil
}

// parseCommand decodes the model reply, keeping the raw text whether
// or not it was valid JSON.
func parseCommand(content string) Command {
	var cmd Command
	if err := json.Unmarshal([]byte(content), &cmd); err != nil {
		log.Warn("Command is not valid JSON, passing raw", "err", err)
		return Command{Raw: content}
	}
	cmd.Raw = content
	return cmd
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"sigs.k8s.io/yaml"

	"github.com/AlexKlim/llmchat-go/metrics"
	"github.com/AlexKlim/llmchat-go/openai"
	"github.com/AlexKlim/llmchat-go/spinner"
	"github.com/AlexKlim/llmchat-go/tool"
)

// maxToolRounds bounds how long the model may keep calling tools within
// one user turn.
const maxToolRounds = 5

type weatherParams struct {
	City string `json:"city" description:"City to look up."`
	Unit string `json:"unit,omitempty" description:"celsius or fahrenheit."`
}

func main() {
	model := flag.String("model", "gpt-4o-mini", "model to talk to")
	baseURL := flag.String("base-url", os.Getenv("OPENAI_BASE_URL"), "API base URL (defaults to OpenAI)")
	withTools := flag.Bool("tools", false, "offer a demo weather tool to the model")
	debug := flag.Bool("debug", false, "dump the last exchange to debug.yaml")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	metrics.Register()

	client, err := openai.NewClient(openai.Config{
		BaseURL: *baseURL,
		APIKey:  os.Getenv("OPENAI_API_KEY"),
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not set up client")
	}
	defer client.Close()

	var toolbox *tool.Toolbox
	if *withTools {
		toolbox = tool.Box(
			tool.Func("get_weather", "Look up the current weather for a city.",
				func(ctx context.Context, p weatherParams) tool.Result {
					unit := p.Unit
					if unit == "" {
						unit = "celsius"
					}
					return tool.Success(
						fmt.Sprintf("Weather for %s", p.City),
						fmt.Sprintf("21 degrees %s and sunny in %s", unit, p.City),
					)
				}),
		)
	}

	// The liner package makes the input prompt a lot nicer to use,
	// supporting arrow keys and common keyboard shortcuts.
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	getInput := func() string {
		input, err := line.Prompt("> ")
		if err != nil || input == "exit" {
			return ""
		}
		line.AppendHistory(input)
		return input
	}

	var input string
	if flag.NArg() > 0 {
		input = strings.Join(flag.Args(), " ")
		fmt.Println("> " + input)
	} else {
		input = getInput()
	}

	var messages []openai.ChatMessage
	var usage tally
	for input != "" {
		messages = append(messages, openai.ChatMessage{Role: "user", Content: input})
		history, lastReq, completion, err := converse(client, toolbox, *model, messages, &usage)
		if err != nil {
			logger.Error().Err(err).Msg("request failed")
			// Drop the failed turn so a retry starts clean.
			messages = messages[:len(messages)-1]
		} else {
			messages = history
			if *debug {
				dumpDebug(lastReq, completion)
			}
		}
		input = getInput()
	}

	fmt.Printf("Bye! (%d prompt + %d completion tokens)\n", usage.prompt, usage.completion)
}

type tally struct {
	prompt, completion int
}

func (t *tally) add(u *openai.Usage) {
	if u == nil {
		return
	}
	t.prompt += u.PromptTokens
	t.completion += u.CompletionTokens
}

// converse sends the history and keeps the exchange going for as long
// as the model answers with tool calls. It returns the grown history
// and the final request and completion of the turn.
func converse(client *openai.Client, toolbox *tool.Toolbox, model string, messages []openai.ChatMessage, usage *tally) ([]openai.ChatMessage, *openai.ChatRequest, *openai.ChatCompletion, error) {
	for round := 0; ; round++ {
		req := &openai.ChatRequest{
			Model:    model,
			Messages: messages,
		}
		if toolbox != nil {
			req.Tools = toolbox.Definitions()
		}
		completion, err := ask(client, req)
		if err != nil {
			return messages, req, nil, err
		}
		usage.add(completion.Usage)
		if len(completion.Choices) == 0 {
			return messages, req, completion, nil
		}

		choice := completion.Choices[0]
		messages = append(messages, choice.Message)
		calls := choice.Message.ToolCalls
		if len(calls) == 0 || toolbox == nil {
			return messages, req, completion, nil
		}
		// Every call gets its reply appended even on the last round, so
		// the history never ends on an unanswered tool call.
		for _, call := range calls {
			result := toolbox.Call(context.Background(), call)
			if result.Error() != nil {
				fmt.Printf("❌ %s\n", result.Label())
			} else {
				fmt.Printf("✅ %s\n", result.Label())
			}
			messages = append(messages, tool.Message(call, result))
		}
		if round >= maxToolRounds {
			return messages, req, completion, nil
		}
	}
}

// ask streams one reply, printing content as it arrives, and returns
// the reconstructed completion.
func ask(client *openai.Client, req *openai.ChatRequest) (*openai.ChatCompletion, error) {
	spin := spinner.Dots.New(os.Stdout)
	spin.Start()
	waiting := true
	stopWaiting := func() {
		if waiting {
			spin.Stop()
			waiting = false
		}
	}
	defer stopWaiting()

	stream, err := client.CreateChatCompletionStream(context.Background(), req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	printed := false
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		stopWaiting()
		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			if choice.Delta.Content != nil {
				fmt.Print(*choice.Delta.Content)
				printed = true
			}
			for _, call := range choice.Delta.ToolCalls {
				if call.Function.Name != "" {
					fmt.Printf("[calling %s]", call.Function.Name)
					printed = true
				}
			}
		}
	}
	if printed {
		fmt.Println()
	}

	return stream.Completion()
}

// dumpDebug writes the exchange to debug.yaml so a full request and its
// reconstructed completion can be inspected side by side.
func dumpDebug(req *openai.ChatRequest, completion *openai.ChatCompletion) {
	dump := map[string]any{
		"request":    req,
		"completion": completion,
	}
	data, err := yaml.Marshal(dump)
	if err != nil {
		return
	}
	_ = os.WriteFile("debug.yaml", data, 0644)
}

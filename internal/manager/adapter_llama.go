//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"vanguardd/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaAdapter holds global config used to initialize the model instance.
type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) ChatAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

// llamaSession owns the loaded model.
type llamaSession struct {
	model   *llama.LLama
	threads int
}

func (a *llamaAdapter) Load(path string, params LoadParams) (ModelSession, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	ctxSize := params.CtxSize
	if ctxSize <= 0 {
		ctxSize = a.ctxSize
	}
	mo := []llama.ModelOption{
		llama.SetContext(ctxSize),
		llama.SetGPULayers(params.GPULayers),
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	threads := params.Threads
	if threads <= 0 {
		threads = a.threads
	}
	return &llamaSession{model: m, threads: threads}, nil
}

func (s *llamaSession) ChatComplete(ctx context.Context, msgs []types.ChatMessage, opts GenOptions) (CompletionResult, error) {
	if s.model == nil {
		return CompletionResult{}, errors.New("llama model not initialized")
	}

	// Honor cancellation: the callback returning false stops generation.
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})

	po := []llama.PredictOption{
		llama.SetTokens(maxInt(1, opts.MaxTokens)),
		llama.SetThreads(maxInt(1, s.threads)),
		llama.SetStopWords("</s>", "[INST]"),
	}
	if opts.Temperature > 0 {
		po = append(po, llama.SetTemperature(float32(opts.Temperature)))
	}
	text, err := s.model.Predict(renderInstructPrompt(msgs), po...)
	if err != nil {
		if ctx.Err() != nil {
			return CompletionResult{}, ctx.Err()
		}
		return CompletionResult{}, err
	}
	return CompletionResult{Content: strings.TrimSpace(text), FinishReason: "stop"}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// renderInstructPrompt flattens chat messages into the Mistral-instruct wire
// format used by the default artifact. System text is folded into the first
// user turn, which is what the upstream chat template does as well.
func renderInstructPrompt(msgs []types.ChatMessage) string {
	var b strings.Builder
	var system string
	pending := make([]string, 0, 2)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		b.WriteString("[INST] ")
		b.WriteString(strings.Join(pending, "\n\n"))
		b.WriteString(" [/INST]")
		pending = pending[:0]
	}
	for _, m := range msgs {
		switch m.Role {
		case types.RoleSystem:
			system = m.Content
		case types.RoleUser:
			content := m.Content
			if system != "" {
				content = system + "\n\n" + content
				system = ""
			}
			pending = append(pending, content)
		case types.RoleAssistant:
			flush()
			b.WriteString(" ")
			b.WriteString(m.Content)
			b.WriteString("</s>")
		}
	}
	flush()
	return b.String()
}

package orchestrator

import (
	"fmt"

	"vanguardd/internal/agent"
	"vanguardd/internal/retrieval"
)

// noDataMarker is embedded in primary prompts when retrieval came back empty,
// so the model knows to lean on internal knowledge instead of hallucinating
// sources.
const noDataMarker = "No real-time data found. Use your internal knowledge."

// Profile parameterizes the chain per endpoint: persona, prompt templates,
// retrieval bias and the fallback token budget.
type Profile struct {
	Name string
	// Agent persona used by the PRIMARY stage.
	Agent agent.Spec
	// Retrieval query bias and bound.
	SearchSuffix  string
	SearchResults int
	// PRIMARY prompt template.
	PrimaryPrompt func(req Request, rctx retrieval.Context) string
	// FALLBACK reduced prompt: generic persona, raw input, raw context.
	FallbackSystem func(req Request) string
	FallbackUser   func(req Request, rctx retrieval.Context) string
	// FALLBACK token budget.
	MaxTokens int
}

func renderOrMarker(rctx retrieval.Context) string {
	if rctx.Empty() {
		return noDataMarker
	}
	return rctx.Render()
}

// GuideProfile configures the research-then-write achievement guide generator.
func GuideProfile() Profile {
	return Profile{
		Name: "guide",
		Agent: agent.Spec{
			Name:      "Tactical Specialist",
			Role:      "Gaming Expert",
			Goal:      "Write the best achievement guides.",
			Backstory: "You synthesize wiki data into actionable steps.",
			Model:     "local-model",
		},
		SearchSuffix:  "achievement guide",
		SearchResults: 3,
		PrimaryPrompt: func(req Request, rctx retrieval.Context) string {
			return fmt.Sprintf(`You are a veteran gaming achievement hunter.
Using the following research context, write a professional tactical guide for '%s' in '%s'.

RESEARCH CONTEXT:
%s

GUIDE FORMAT:
- Use # for the main title.
- Use ## for sections like "Requirements", "Strategy", and "Execution".
- Use bold text for key items, locations, or boss names.
- Use numbered lists for step-by-step instructions.
- Keep it concise but professional.

Write the guide in Markdown format.`, req.Input, req.Game, renderOrMarker(rctx))
		},
		FallbackSystem: func(req Request) string {
			return "You are a gaming expert. Use the provided context to write a guide."
		},
		FallbackUser: func(req Request, rctx retrieval.Context) string {
			return fmt.Sprintf("GAME: %s\nACHIEVEMENT: %s\n\nCONTEXT:\n%s\n\nWrite a step-by-step guide.",
				req.Game, req.Input, rctx.Render())
		},
		MaxTokens: 800,
	}
}

// ExpertProfile configures the multi-turn expert Q&A mode.
func ExpertProfile() Profile {
	return Profile{
		Name: "expert",
		Agent: agent.Spec{
			Name:      "Combat Intelligence",
			Role:      "Tactical Expert",
			Goal:      "Solve the user's gaming inquiries.",
			Backstory: "You are a data-driven gaming strategist with access to global wikis.",
			Model:     "local-model",
		},
		SearchSuffix:  "guide walkthrough",
		SearchResults: 4,
		PrimaryPrompt: func(req Request, rctx retrieval.Context) string {
			return fmt.Sprintf(`You are an Expert Gaming AI.
Answer the user's question about the game '%s'.

USER QUESTION:
%s

RESEARCH CONTEXT:
%s

GUIDELINES:
- Provide exact locations, stats, or steps.
- Use Markdown formatting (headers, bolding).
- If information is missing, state what you know and suggest alternatives.
- Keep it tactical and immersive.`, req.Game, req.Input, renderOrMarker(rctx))
		},
		FallbackSystem: func(req Request) string {
			return fmt.Sprintf("You are a gaming expert for %s. Use the provided context.", req.Game)
		},
		FallbackUser: func(req Request, rctx retrieval.Context) string {
			return fmt.Sprintf("QUESTION: %s\n\nCONTEXT:\n%s\n\nProvide a detailed answer in Markdown.",
				req.Input, rctx.Render())
		},
		MaxTokens: 1024,
	}
}

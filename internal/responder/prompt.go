package responder

import (
	"fmt"
	"strings"

	"github.com/varenhold/scriven/pkg/profile"
)

// statePersona maps each user state to the persona guidance injected into
// the system prompt.
var statePersona = map[profile.UserState]string{
	profile.StateHesitant:  "Be encouraging, patient, and ask clarifying questions. Acknowledge their hesitation (e.g., 'Take your time', 'I see you're thinking carefully').",
	profile.StateFlowing:   "Be brief, efficient, and match their speed. Skip pleasantries.",
	profile.StateEditing:   "Focus on precision and detail. They are refining their thought, so you should be precise.",
	profile.StateScattered: "Help organize their thoughts. Offer structure.",
	profile.StatePasting:   "Assume they want code analysis or summarization. Be analytical.",
	profile.StateFocused:   "Stay on topic and go straight to the substance.",
}

// modeGoal maps each answer mode to its goal line in the system prompt.
var modeGoal = map[profile.AnswerMode]string{
	profile.ModeSummarize:       "Summarize the input text.",
	profile.ModeStructure:       "Structure the content with bullet points or headers.",
	profile.ModeRefine:          "Refine and polish the text for better clarity.",
	profile.ModeExplore:         "Explore the topic further and provide related information.",
	profile.ModeComplete:        "Complete the user's sentence or code.",
	profile.ModeClarifyQuestion: "The user seems to be asking a question or needs clarification. Answer it clearly.",
}

// BuildSystemPrompt renders the behavioral profile into the system prompt
// that steers the model's register, depth, and goals.
func BuildSystemPrompt(p profile.InputProfile) string {
	var b strings.Builder

	b.WriteString("You are an intelligent assistant analyzing user input behavior.\n")
	b.WriteString("Based on the following analysis of the user's input, adjust your response:\n\n")

	fmt.Fprintf(&b, "- Tone: %s\n", p.Tags.ToneHint)
	fmt.Fprintf(&b, "- Depth: %s\n", p.Tags.DepthHint)
	fmt.Fprintf(&b, "- Scope: %s\n", p.Tags.ScopeHint)
	fmt.Fprintf(&b, "- Modes: %s\n", joinModes(p.Tags.AnswerMode))
	fmt.Fprintf(&b, "- User State: %s\n", joinStates(p.Tags.UserState))
	fmt.Fprintf(&b, "- Confidence: %.2f\n\n", p.Tags.Confidence)

	if len(p.GhostText) > 0 {
		b.WriteString("GHOST TEXT (Deleted Thoughts):\n")
		for i, text := range p.GhostText {
			fmt.Fprintf(&b, "  %d. %q\n", i+1, text)
		}
		b.WriteString("\n")
	}

	b.WriteString("Guidelines:\n")
	b.WriteString("CRITICAL: You MUST adapt your persona based on the 'User State' above.\n")
	for _, s := range p.Tags.UserState {
		if persona, ok := statePersona[s]; ok {
			fmt.Fprintf(&b, "- If '%s': %s\n", s, persona)
		}
	}

	if len(p.Tags.AnswerMode) > 0 {
		b.WriteString("\nSpecific Goals:\n")
		for _, m := range p.Tags.AnswerMode {
			if goal, ok := modeGoal[m]; ok {
				fmt.Fprintf(&b, "- %s\n", goal)
			}
		}
	}

	return b.String()
}

func joinModes(modes []profile.AnswerMode) string {
	if len(modes) == 0 {
		return "none"
	}
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

func joinStates(states []profile.UserState) string {
	if len(states) == 0 {
		return "none"
	}
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// Package prompt formats system/user message pairs into the turn-delimiter
// convention a given model family expects. The assistant turn is always left
// open so the model generates the completion.
package prompt

import "strings"

// Dialect identifies a prompt-template family. The exact marker tokens are
// fixed per dialect; a model's stop tokens double as generation stop
// sequences and are carried on the catalog entry, not here.
type Dialect string

const (
	// DialectChatML is the turn-delimited format with explicit role markers
	// and a shared end-of-turn marker (Qwen, Yi and friends).
	DialectChatML Dialect = "chatml"

	// DialectLlama3 is the role-header format with a single leading
	// beginning-of-text marker and a per-turn end marker.
	DialectLlama3 Dialect = "llama3"
)

// String returns the dialect name.
func (d Dialect) String() string {
	return string(d)
}

// Valid reports whether d names a supported dialect.
func (d Dialect) Valid() bool {
	return d == DialectChatML || d == DialectLlama3
}

// Format renders a system+user prompt in the given dialect. The system block
// is omitted entirely when system is empty. Unknown dialects fall back to
// plain concatenation so a catalog mistake degrades instead of panicking.
func Format(d Dialect, system, user string) string {
	switch d {
	case DialectChatML:
		return formatChatML(system, user)
	case DialectLlama3:
		return formatLlama3(system, user)
	default:
		return formatPlain(system, user)
	}
}

func formatChatML(system, user string) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString("<|im_start|>system\n")
		sb.WriteString(system)
		sb.WriteString("<|im_end|>\n")
	}
	sb.WriteString("<|im_start|>user\n")
	sb.WriteString(user)
	sb.WriteString("<|im_end|>\n")
	sb.WriteString("<|im_start|>assistant\n")
	return sb.String()
}

func formatLlama3(system, user string) string {
	var sb strings.Builder
	sb.WriteString("<|begin_of_text|>")
	if system != "" {
		sb.WriteString("<|start_header_id|>system<|end_header_id|>\n\n")
		sb.WriteString(system)
		sb.WriteString("<|eot_id|>")
	}
	sb.WriteString("<|start_header_id|>user<|end_header_id|>\n\n")
	sb.WriteString(user)
	sb.WriteString("<|eot_id|>")
	sb.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	return sb.String()
}

func formatPlain(system, user string) string {
	if system != "" {
		return system + "\n\n" + user
	}
	return user
}

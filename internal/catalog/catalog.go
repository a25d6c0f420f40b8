// Package catalog holds the static table of downloadable model definitions.
// Entries are compile-time constants ordered by descending RAM requirement;
// there is no dynamic catalog refresh.
package catalog

import (
	"fmt"

	"github.com/GarrettC14/nutrirx-llm/internal/device"
	"github.com/GarrettC14/nutrirx-llm/internal/prompt"
)

// Model is one immutable catalog entry describing a downloadable quantized
// model and how to run it.
type Model struct {
	Tier          device.Tier    // capability tier this model targets
	Name          string         // human-readable display name
	Filename      string         // on-device filename under the models dir
	URL           string         // remote download URL
	SizeBytes     int64          // expected download size
	MinRAMGB      float64        // minimum device RAM to run this model
	ContextWindow int            // max tokens per inference call
	Threads       int            // CPU threads for the inference context
	Dialect       prompt.Dialect // prompt-template family
	StopTokens    []string       // generation stop sequences for the dialect
	SHA256        string         // optional content hash, verified when non-empty
}

// models is ordered by descending MinRAMGB. Selection invariant: exactly one
// entry matches any RAM lookup via "first entry whose requirement is <= RAM".
var models = []Model{
	{
		Tier:          device.TierStandard,
		Name:          "Llama 3.2 3B Instruct (Q4_K_M)",
		Filename:      "llama-3.2-3b-instruct-q4_k_m.gguf",
		URL:           "https://huggingface.co/bartowski/Llama-3.2-3B-Instruct-GGUF/resolve/main/Llama-3.2-3B-Instruct-Q4_K_M.gguf",
		SizeBytes:     2_019_377_696,
		MinRAMGB:      6.0,
		ContextWindow: 4096,
		Threads:       4,
		Dialect:       prompt.DialectLlama3,
		StopTokens:    []string{"<|eot_id|>", "<|end_of_text|>"},
	},
	{
		Tier:          device.TierCompact,
		Name:          "Qwen 2.5 1.5B Instruct (Q4_K_M)",
		Filename:      "qwen2.5-1.5b-instruct-q4_k_m.gguf",
		URL:           "https://huggingface.co/Qwen/Qwen2.5-1.5B-Instruct-GGUF/resolve/main/qwen2.5-1.5b-instruct-q4_k_m.gguf",
		SizeBytes:     1_117_320_736,
		MinRAMGB:      4.0,
		ContextWindow: 2048,
		Threads:       4,
		Dialect:       prompt.DialectChatML,
		StopTokens:    []string{"<|im_end|>", "<|endoftext|>"},
	},
	{
		Tier:          device.TierMinimal,
		Name:          "Qwen 2.5 0.5B Instruct (Q4_K_M)",
		Filename:      "qwen2.5-0.5b-instruct-q4_k_m.gguf",
		URL:           "https://huggingface.co/Qwen/Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q4_k_m.gguf",
		SizeBytes:     491_947_232,
		MinRAMGB:      3.0,
		ContextWindow: 2048,
		Threads:       2,
		Dialect:       prompt.DialectChatML,
		StopTokens:    []string{"<|im_end|>", "<|endoftext|>"},
	},
}

// All returns every catalog entry in priority order.
func All() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// SelectForRAM returns the first entry whose RAM requirement is at or below
// ramGB, or nil when the device falls below the smallest tier.
func SelectForRAM(ramGB float64) *Model {
	for i := range models {
		if models[i].MinRAMGB <= ramGB {
			m := models[i]
			return &m
		}
	}
	return nil
}

// ByTier returns the entry for a tier, or an error for tiers with no
// downloadable model.
func ByTier(tier device.Tier) (*Model, error) {
	for i := range models {
		if models[i].Tier == tier {
			m := models[i]
			return &m, nil
		}
	}
	return nil, fmt.Errorf("no catalog model for tier %q", tier)
}

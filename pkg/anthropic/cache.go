package anthropic

// BuildCachedSystemBlocks marks a static system prompt as a cache
// breakpoint. Stage prompts are identical across cases, so consecutive
// cases in a batch read them from the prompt cache.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: ttl},
		},
	}
}

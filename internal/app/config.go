package app

import (
	"github.com/yungbote/recall-backend/internal/platform/envutil"
)

type Config struct {
	HTTPAddr string

	// MessageLimit caps how many recent messages feed the generation
	// context and each summary pass.
	MessageLimit int
	// SummaryThreshold is the unsummarized-message count that triggers a
	// summarization job.
	SummaryThreshold int
	// MemorySearchLimit is the default retrieval depth per turn.
	MemorySearchLimit int

	WorkerConcurrency int
}

func LoadConfig() Config {
	searchLimit := envutil.Int("MEMORY_SEARCH_LIMIT", 10)
	if searchLimit > 50 {
		searchLimit = 50
	}
	return Config{
		HTTPAddr:          envutil.Str("HTTP_ADDR", ":8080"),
		MessageLimit:      envutil.Int("MESSAGE_LIMIT", 20),
		SummaryThreshold:  envutil.Int("SUMMARY_THRESHOLD", 10),
		MemorySearchLimit: searchLimit,
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
	}
}

package sources

// YouTube implementation is split across files by responsibility:
//   youtube_id.go         : video identifier extraction from URLs
//   youtube_innertube.go  : client, rate limiting, Innertube/timedtext types and HTTP primitives
//   youtube_transcript.go : the transcript strategies, cheapest first
//   fetcher.go            : ordered first-success fallback over the strategies

// Package textagg turns an incremental stream of text fragments into complete
// sentence units suitable for speech synthesis.
//
// # Aggregators
//
// The package provides two aggregators sharing the Aggregator interface:
//   - SentenceAggregator emits text up to each sentence boundary.
//   - SkipTagsAggregator does the same, but never splits inside a span delimited
//     by a configured TagPair (for example SSML-like <spell>...</spell> markup).
//
// # Usage
//
//	agg := textagg.NewSkipTagsAggregator([]textagg.TagPair{{Start: "<spell>", End: "</spell>"}})
//	for chunk := range llmTokens {
//	    if sentence, ok := agg.Aggregate(chunk); ok {
//	        session.Synthesize(ctx, sentence)
//	    }
//	}
//
// Aggregators are not safe for concurrent use.
package textagg

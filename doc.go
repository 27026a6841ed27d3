// Package mixdex ranks catalog items against a preference query and picks a
// stable random item of the day.
//
// Ranking is deterministic and explainable: every result carries the flavor,
// style and base cosine similarities and the keyword boost that produced its score.
//
//	client, _ := mixdex.New(ctx, mixdex.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	q := mixdex.NewQuery()
//	q.FlavorHighlights = []string{"sour", "fruity"}
//	q.Keywords = "lime"
//	results, _ := client.Rank(ctx, items, q)
//
//	today, ok := client.Today(ctx, items)
//
// Without a storage option the daily pick lives in process memory.
package mixdex

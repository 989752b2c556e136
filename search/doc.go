// Package search ranks an issue's chunks against a query by cosine
// similarity over the persisted vector array.
//
// The query is embedded with the same model that built the stored vectors
// (read from the issue metadata); mixing models would make the similarity
// space meaningless. Ranking uses a partial-selection algorithm when top-k
// is smaller than the corpus, and breaks similarity ties by lower original
// chunk index so results are deterministic.
package search

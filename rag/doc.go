// Package rag turns retrieved log chunks into grounded answers.
//
// ResilientGenerator wraps a generation model with retry, exponential
// backoff, and a single fallback-model switch on permanent errors.
// Generation is total: every call produces an Answer, and when every
// provider attempt fails the answer is a deterministic summary of the
// retrieved context flagged with Fallback=true.
package rag

// ABOUTME: Audio resource retrieval package
// ABOUTME: Fetches encoded audio from HTTP(S) URLs, file:// URLs and paths
// Package fetch retrieves encoded audio assets for decoding.
//
// The fetcher performs no authentication, signing, retry or caching: the
// reference is assumed to be valid for the duration of the call. Every
// request is bound to the caller's context, so abandoning the context
// aborts the transfer.
//
// Example:
//
//	f := fetch.New(fetch.Config{})
//	res, err := f.Fetch(ctx, "https://cdn.example.com/mix-v2.wav")
package fetch

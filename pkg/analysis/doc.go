// ABOUTME: Audio quality analysis engine
// ABOUTME: Decodes a resource and computes peak, average, clipping and dynamic range
// Package analysis computes objective quality metrics for an audio resource.
//
// An Analyzer decodes a resource through a Decoder capability, selects the
// analysis channel, and makes one linear pass over its samples:
//
//	peak  = max |s|
//	avg   = sum |s| / n
//	clips = count(|s| >= threshold)
//	dr    = 20 * log10(peak / avg)
//
// A silent signal (avg == 0) reports SilentDynamicRange (+Inf), never NaN.
//
// Analysis is all or nothing. Failures surface as *DecodeError when the
// resource cannot be fetched or parsed, and as ErrCancelled when the
// context ends first. The Analyzer holds no state between calls and keeps
// no cache; it is safe for concurrent use.
//
// Example:
//
//	analyzer := analysis.New(analysis.Config{Logger: logger})
//	metrics, err := analyzer.Analyze(ctx, "https://cdn.example.com/take.wav")
//	if err != nil {
//	    return err
//	}
//	if metrics.Silent() {
//	    fmt.Println("silent take")
//	}
package analysis

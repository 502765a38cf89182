// ABOUTME: Quality review workflow package
// ABOUTME: Files, policy flags, reviewer decisions and the report cache
// Package review is the consumer of the analysis engine: it tracks uploaded
// takes, runs analysis when a reviewer asks for it, grades the metrics
// against a Policy and records approve / re-record decisions.
package review

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ai calls an OpenAI-compatible chat completions endpoint to analyze
FIC feedback.

	client := ai.New(cfg.AI)
	system, user := ai.ReportPrompt(ai.Input{Dimension: "governanca", Questionnaires: qs, Tally: tally})
	out, err := client.Complete(ctx, system, user)
	report, err := ai.ParseReport(out)

Errors are TransientError (network, 429, 5xx), retried with exponential
backoff up to MaxAttempts, or FatalError (other 4xx, malformed replies).
Model output is rarely clean JSON; ExtractJSON and ExtractJSONArray strip
code fences, // comments and trailing commas before decoding.
*/
package ai

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors for the API and exposes
// them at /metrics. Route labels use the ServeMux pattern, never the raw
// path, so questionnaire IDs do not create new series.
package metrics

/*
Package observability provides tools for monitoring the cohort engine.

It turns engine lifecycle events into Prometheus metrics and structured log
records. Both are exposed as domain.LifecycleHooks, which can be combined with
LifecycleHooks.Merge and passed to cohort.WithLifecycleHooks.
*/
package observability

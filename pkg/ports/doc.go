/*
Package ports defines the driven ports (interfaces) for the cohort engine.

These interfaces decouple the simulation from external implementations, allowing
runs to be stored in memory, on disk or in Redis without touching the core.

# Key Interfaces

  - ResultStore: persists and loads run records (settings, seed and output tables).
*/
package ports

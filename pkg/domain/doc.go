/*
Package domain contains the core model of the cohort engine.

It defines the probability sources, the simulation tree and the messages the
tree sends to its controller. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Probability: a value source (RangedProbability, TimeVaryingProbability, ComplementProbability).
  - Node: a tree element (MarkovState, ChanceNode, StateTransition).
  - Report: what a node tells its Mediator each cycle (StateReport, TransitionReport).
  - Result: the per-cycle probability and variable tables of a run.
*/
package domain

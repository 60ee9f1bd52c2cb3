// Package ecg implements an offline analysis pipeline for single-lead ECG
// captures: baseline removal, band-pass FIR filtering, an energy envelope,
// adaptive R-peak detection, RR-interval statistics and a rule-based
// rhythm read.
//
// Analyze wires the stages together over one finite buffer. Every stage is
// a pure function of its inputs, so concurrent runs need no coordination
// and identical inputs produce bit-identical results. The rhythm labels
// are screening heuristics, not diagnoses; their thresholds live in Limits
// so deployments can tune them.
package ecg

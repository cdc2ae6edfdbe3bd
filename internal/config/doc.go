// Package config loads the ProofBench daemon configuration from a JSON file,
// fills defaults, applies PROOFBENCH_* environment overrides and validates the
// result before any component is constructed.
package config

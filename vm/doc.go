// Package vm implements the kutes expression evaluator.
//
// This package contains:
//   - the Cell value model and shared Series storage
//   - atoms, contexts, and word binding
//   - the explicit frame-stack evaluator and its unwinder
//   - function argument programs and path resolution
//   - control natives and the JSON bridge natives
package vm

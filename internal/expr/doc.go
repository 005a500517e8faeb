// Package expr implements the symbolic expression tree at the heart of
// the simulation pipeline.
//
// Expressions are immutable DAGs of Symbol nodes: leaves (scalars,
// vectors, matrices, named inputs, the state vector, time) combined by
// unary and binary operators. The same child instance may be shared by
// several parents; every transformation builds new nodes instead of
// mutating existing ones, so shared subtrees are safe to read from
// concurrent evaluations.
//
// The package offers four passes over a tree:
//   - Evaluate: numeric evaluation over dense (gonum) or sparse (CSR)
//     operands, optionally memoized per call by node identity
//   - Diff / Jacobian: symbolic differentiation, building new subtrees
//     under the chain, product and quotient rules with constant
//     short-circuits
//   - Simplify: constant folding and chained-operator combination
//   - String / ToJSON: infix rendering with minimal parenthesization,
//     and a JSON form for tooling
//
// Domain metadata (the spatial regions an expression is defined over)
// is merged at construction and consumed later by the discretization
// stage. Construction fails fast on operand type or domain mismatches;
// numeric edge cases such as division by zero or NaN-producing powers
// follow IEEE-754 and are not errors.
package expr

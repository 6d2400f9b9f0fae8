// Package flows contains the orchestration behind every Engine operation.
//
// Each Run function takes a dependency struct of plain function fields and
// returns results without side effects beyond those functions. The Engine
// builds the dependency sets once in Build and delegates to them, so flows can
// be tested with fakes and no store at all.
//
// Flows hold no state between calls and never import the root package.
package flows

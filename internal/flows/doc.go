// Package flows holds the orchestration logic for login, refresh, access
// validation, and logout. Each flow is a plain function over a Deps value so
// the steps and their ordering stay testable without the engine; failures
// are classified into FailureKind values that the root package maps onto its
// public error taxonomy.
package flows

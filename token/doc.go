// Package token mints, decodes, and validates the signed credentials issued
// by the engine. The Codec pins a single signature algorithm at construction
// and refuses tokens asserting any other, which blocks algorithm-confusion
// and "none"-algorithm forgeries. Decode verifies structure and signature
// only; the Validator applies the stateless claim checks (expiry, type tag,
// subject match) so the two failure families stay distinguishable.
package token

/*
Package nova is a client-side toolkit for the NOVA ledger network: it
builds, canonically serializes, signs, and verifies transactions, and
derives the key material and bech32 addresses that identify accounts.

Network access lives in the rpcclient subpackage, which speaks the node's
REST and JSON-RPC interfaces. This package holds everything that must work
without a node: the byte-exact transaction codec shared with the validator,
Ed25519 identities, encrypted keystores, seed recovery shares, and
dual-signed payment receipts.
*/

package nova

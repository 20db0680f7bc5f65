// Package integrations provides the HTTP plumbing for package index clients.
//
// # Overview
//
// The [Client] type wraps net/http with the conventions every index client
// shares: default headers, a request timeout, status-code mapping and
// observability hooks. Registry-specific clients live in subpackages:
//
//   - [pypi]: Python Package Index JSON API (and PEP 691 compatible mirrors)
//
// # Errors
//
// Status codes are mapped onto sentinel errors so callers can branch with
// errors.Is and errors.As:
//
//   - 404 → [ErrNotFound]
//   - any other non-200 → [*StatusError] (unwraps to [ErrNetwork])
//   - transport failures (DNS, refused, timeout) → wrapped [ErrNetwork]
//
// Nothing is retried and nothing is cached; each call is one round-trip.
//
// # Name Normalization
//
// [NormalizePkgName] implements PEP 503 normalization, used when comparing
// lock entries with the project name.
package integrations

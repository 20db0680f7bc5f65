// Package pkg provides the libraries behind uvbrew, a Homebrew formula
// generator for uv-managed Python projects.
//
// # Overview
//
// A formula is assembled from three sources, each handled by its own package:
//
//	pyproject.toml ──→ [pyproject]   project metadata
//	package index  ──→ [artifact]    the project's own sdist (index or local build)
//	uv export      ──→ [lock]        locked runtime dependencies
//	                        ↓
//	                   [formula]      Homebrew Ruby DSL, JSON or YAML
//
// [pipeline] runs these stages in order behind a single Runner.
//
// # Main Packages
//
// [pyproject] - Reads and validates the PEP 621 project table.
//
// [lock] - Decodes the pylock.toml document produced by `uv export` into
// sdist-pinned packages.
//
// [artifact] - Resolves the project's source archive from the index, falling
// back to `uv build`.
//
// [integrations/pypi] - PyPI JSON API client built on the shared HTTP client
// in [integrations].
//
// [uv] - Runs uv as a subprocess.
//
// [checksum] - SHA-256 digests as Homebrew expects them.
//
// [formula] - Renders formulas.
//
// # Supporting Packages
//
// [errors] - Coded errors shared by all stages.
//
// [observability] - Stage and HTTP hooks for logging and metrics.
//
// [buildinfo] - Version information injected at link time.
package pkg

// Package core defines the shared language of the explore-by-example system.
//
// This package contains:
//   - Domain entities (Template, Query, SavedQuery, ExploreDataStructure, ...)
//   - Service interfaces (Store and the per-entity APIs it is composed of)
//   - The ErrNotFound sentinel every lookup miss wraps
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

// Package database opens and manages the engine's SQLite database.
// This package is internal and should not be imported by external projects.
package database

// Package repository defines the data access interface for linkwatch.
//
// TopologyStore keeps the last imported topology so a restart without a
// topology file resumes with the same devices, edges and attachments. The
// sqlite subpackage implements it on a pure-Go SQLite driver.
//
// Edge status is never persisted; every run recomputes it from scratch.
package repository

// Package models contains the GORM persistence models for the ledger tables.
// They stay separate from the domain types: repositories load rows into these
// structs and convert them with ToDomain, which is where dates are normalized
// to calendar days and loosely typed columns are validated.
package models

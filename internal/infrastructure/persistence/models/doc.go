// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain types so the domain layer stays free of ORM
// concerns. Each model converts to its domain type with ToDomain and is built from one
// with a ...FromDomain constructor.
//
// The schema itself is owned by the SQL migrations; the models only describe the
// columns the store procedures read and write.
package models

package specification

import "gorm.io/gorm"

// Specification narrows a passage query to one predicate.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Apply chains specs onto db in order; nil entries are skipped.
func Apply(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		if spec == nil {
			continue
		}
		db = spec.Apply(db)
	}
	return db
}

// Package schema implements positional record layout management.
//
// The service layer owns validation of field layouts (bounds, overlaps,
// line-length recomputation) and the two import paths: the JSON interchange
// format and Excel-style layout sheets exported as CSV. It depends on the
// repository interface defined in this package and should never import
// from api/.
//
// Repository implementations live in repository/postgres/.
package schema

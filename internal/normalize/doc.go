// Package normalize turns long-format (period, entity, value) rows into a
// cleaned, densely indexed panel ready for frame-by-frame rendering.
//
// The pipeline is pure and synchronous:
//
//	Parse -> SelectTopEntities -> DetectOutliers -> Interpolate -> ToWidePanel
//
// Input columns are positional. The first three columns are read as period,
// entity and value whatever their header text says. A table with fewer than
// three columns fails with a *FormatError; every other defect degrades to
// "best available data":
//
//   - rows whose period or value does not coerce to a number are skipped,
//   - duplicate (entity, period) rows collapse according to a DuplicatePolicy,
//   - an outlier at a series boundary is kept unchanged because there is no
//     neighbour to interpolate from.
//
// Absent (entity, period) cells are zero in the wide panel. This treats "did
// not report" and "reported zero" alike, which is what frame rendering needs.
package normalize

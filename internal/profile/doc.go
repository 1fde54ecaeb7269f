// Package profile builds listening profiles from the data API and compares two of them.
//
// [Builder.Build] is all-or-nothing: the identity call runs first, then top artists
// and top tracks are fetched together and joined, then audio features are fetched
// for the distinct top-track ids. Any failure discards everything fetched so far.
//
// [Merge] is a pure function over two profiles. Overlap is measured by id with the
// Jaccard index; the blended mood is the per-field mean of the two moods.
//
// Profiles are persisted with [Encode] and read back with [Decode], which rejects
// structurally invalid documents with [shared.ErrValidation].
package profile

// Package blueprint provides the business logic for pretrip blueprint ingestion.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// the CLI, or tests without modification.
//
// # Pipeline
//
// A blueprint file flows through a fixed sequence of stages:
//
//  1. [Decode] resolves encoding: strips a BOM and replaces invalid UTF-8
//  2. [Tokenize] splits the text into rows of fields
//  3. [NormalizeHeaders] canonicalizes the header row
//  4. [BuildRecords] zips headers with each data row
//  5. [ValidateColumns] checks required columns are present
//  6. [Group] builds the equipment -> section -> items hierarchy
//  7. [NewSession] wraps the hierarchy in an editable model
//  8. [BuildPayload] flattens the edited session for submission
//
// [Ingest] runs stages 2-7 in one call.
//
// # Editing
//
// A [Session] is the single source of truth between ingestion and submission.
// Every edit goes through its methods:
//
//	sess.RenamePrimary("Brakes", "Air Brakes")
//	sess.DuplicateItem(ItemRef{Primary: "Air Brakes", Secondary: "Front", Index: 0})
//	sess.EditField(ItemRef{...}, "notes", "check both sides")
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL003: Validation errors (missing columns, empty name, bad body)
//   - SES001-SES006: Session errors (collisions, missing items)
//   - FILE001-FILE004: File errors (size, extension, empty)
//   - SUB001-SUB003: Submission errors (name taken, in flight)
//   - NET001-NET002: Backend exchange failures
package blueprint

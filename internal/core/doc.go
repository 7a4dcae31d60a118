// Package core provides the business logic for bulk user imports.
//
// An administrator uploads a spreadsheet of users. Each row is validated,
// checked against existing users, given an identifier when it has none, and
// written as a user record plus at most one role profile. Rows that cannot be
// imported are reported individually; they never stop the batch.
//
// # Pipeline
//
// [Service.Import] owns the upload lifecycle. It takes a slot from the
// [ImportLimiter], spools the upload to a temporary file, parses it with
// [ReadFile] and hands the rows to a [Coordinator] inside one [Session]:
//
//	RowValidator -> IdentifierSynthesizer -> DuplicateChecker -> Hasher -> RoleFanoutWriter
//
// Each row's writes run inside a savepoint. A row-scoped error rolls back to
// that savepoint; everything else rolls back the session and is reported as
// [BatchFatalError]. The session commits exactly once.
//
// # Outcomes
//
// Every row ends as success, skipped (a duplicate username, email or
// identifier) or failed (anything else row-scoped). The [Report] summary
// satisfies inserted + skipped + failed == total.
//
// # Storage
//
// The package depends only on the [Store] and [Session] interfaces. Adapters
// wrap statement-level rejections in [RejectedError]; any other error from a
// Session is treated as loss of the session.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference (FILE, IMP, VAL, DB,
// AUTH, UPL, RATE).
package core

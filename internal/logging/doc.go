// Package logging builds the slog logger used by every hermes command.
//
// Console output goes to stdout; when a workspace exists the same records are
// appended to hermes.log under the hidden cache root so harvest decisions can
// be audited after the fact. Components attach themselves with the
// FieldComponent attribute, which the console handler folds into the line
// prefix.
package logging

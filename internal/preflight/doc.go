// Package preflight provides readiness checks for the filesystem paths and
// external binaries the bot depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure before it
//     starts polling Telegram.
//   - The CLI "subembed status" command renders the same results as a table.
//
// DiskUsage is also read by the status page for its health endpoint.
package preflight

// Command subembed runs the subtitle embedding bot and offers local
// maintenance commands for its configuration, user database and staging
// directories.
package main

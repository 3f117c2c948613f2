// Package deps checks that the external binaries the bot shells out to are
// installed and reports their versions.
package deps

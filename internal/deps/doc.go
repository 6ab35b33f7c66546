// Package deps checks the external binaries sopgen shells out to.
package deps

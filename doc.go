/*
Package migasfree is the client side of the migasfree systems
management system: it registers computers at a migasfree server,
synchronizes their software against server-defined repositories, and
uploads attribute, fault, software, and hardware inventories.

# Architecture and Organization

The migasfree binary is built from the "cmd/migasfree" package, with a
command that resembles the following:

	go build -o migasfree ./cmd/migasfree

The command line interface uses the urfave/cli package, with the
implementation of entry points in the "operations" package. Core
business logic lives in the "client" package, with the package
management system abstraction in "pms" and the signed transport layer
in "transport" and "secure".
*/
package migasfree

// BuildRevision stores the commit in the git repository at build time
// and is specified with -ldflags.
var BuildRevision = ""

// ClientVersion is the released version string of the client,
// reported to the server as part of every synchronization.
const ClientVersion = "5.0"

// Package tools locates the external executables a conversion needs and,
// for tools that may be fetched, installs them into the tools directory on
// demand.
//
// Resolution looks under the tools directory first (<dir>/<exe>,
// <dir>/bin/<exe>, <dir>/<name>/<exe>) and only then, when permitted, on
// PATH. The encoder and prober are core tools and are never downloaded.
package tools
